// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hostview

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
)

// Rendering errors.
var (
	// ErrInvalidDrawContext is returned when the draw context cannot
	// draw gpucontext textures.
	ErrInvalidDrawContext = errors.New("hostview: dc cannot draw gpucontext textures")

	// ErrInvalidRenderer is returned when the host renderer doesn't
	// implement gpucontext.TextureCreator.
	ErrInvalidRenderer = errors.New("hostview: renderer must implement gpucontext.TextureCreator")
)

// RenderTo uploads the pixmap if dirty and draws it into the host draw
// context at the origin. This is the primary integration method:
//
//	app.OnDraw(func(dc *gogpu.Context) {
//	    view.RenderTo(dc.AsTextureDrawer())
//	})
func (v *View) RenderTo(dc gpucontext.TextureDrawer) error {
	return v.RenderToPosition(dc, 0, 0)
}

// RenderToPosition draws the view at the given position in the host
// context's coordinate space.
func (v *View) RenderToPosition(dc gpucontext.TextureDrawer, x, y float32) error {
	if v.closed {
		return ErrViewClosed
	}

	tex, err := v.Flush()
	if err != nil {
		return err
	}

	// If the texture is a placeholder, create the real GPU texture now
	// that the host's texture creator is reachable.
	if pending, isPending := tex.(*pendingTexture); isPending {
		creator := dc.TextureCreator()
		if creator == nil {
			return ErrInvalidRenderer
		}

		// NewTextureFromRGBA waits for the GPU internally. After it
		// returns all prior GPU work is complete, so any texture retired
		// by a resize can be destroyed without a use-after-free.
		realTex, err := creator.NewTextureFromRGBA(pending.width, pending.height, pending.data)
		if err != nil {
			return fmt.Errorf("hostview: NewTextureFromRGBA failed: %w", err)
		}

		// The pixmap holds premultiplied alpha, mark the texture so the
		// host composites with BlendFactorOne.
		if pt, ok := realTex.(interface{ SetPremultiplied(bool) }); ok {
			pt.SetPremultiplied(true)
		}

		v.texture = realTex
		tex = realTex

		if v.oldTexture != nil {
			if destroyer, ok := v.oldTexture.(textureDestroyer); ok {
				destroyer.Destroy()
			}
			v.oldTexture = nil
		}
	}

	gpuTex, ok := tex.(gpucontext.Texture)
	if !ok {
		return ErrInvalidDrawContext
	}

	return dc.DrawTexture(gpuTex, x, y)
}
