// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package hostview embeds volray output into a host application's GPU
// context. A View renders session frames into a CPU pixmap and uploads
// the result as a texture through the host's gpucontext interfaces, so
// an application built on gogpu can show volume renders inside its own
// draw loop without managing readback or texture lifetimes itself.
package hostview

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/volray"
)

// Common errors returned by View operations.
var (
	// ErrViewClosed is returned when operations are attempted on a closed view.
	ErrViewClosed = errors.New("hostview: view is closed")

	// ErrInvalidDimensions is returned when width or height is invalid.
	ErrInvalidDimensions = errors.New("hostview: invalid dimensions")

	// ErrNilProvider is returned when a nil DeviceProvider is passed.
	ErrNilProvider = errors.New("hostview: nil DeviceProvider")

	// ErrNilSession is returned when a nil session is passed.
	ErrNilSession = errors.New("hostview: nil session")
)

// textureDestroyer matches the Destroy method of host texture types.
type textureDestroyer interface {
	Destroy()
}

// View connects a volray.Session to a host GPU context. It owns the
// pixmap the session renders into and the host texture that mirrors it.
//
// View is NOT safe for concurrent use. Create one View per goroutine,
// or use external synchronization.
type View struct {
	sess        *volray.Session
	provider    gpucontext.DeviceProvider
	target      *volray.PixmapTarget
	texture     any  // Lazy-created host texture
	oldTexture  any  // Previous texture awaiting deferred destruction
	dirty       bool // Pixmap changed, needs GPU upload
	sizeChanged bool // Resize pending, texture must be recreated
	width       int
	height      int
	closed      bool
}

// New creates a View that renders sess at the given pixel dimensions.
// The provider should come from the host application's GPU context, for
// example gogpu.App.GPUContextProvider().
//
// When the session's renderer runs on the GPU, construct it with
// gpu.WithDeviceProvider(provider) so both sides share one device.
func New(provider gpucontext.DeviceProvider, sess *volray.Session, width, height int) (*View, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if sess == nil {
		return nil, ErrNilSession
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}

	return &View{
		sess:     sess,
		provider: provider,
		target:   volray.NewPixmapTarget(width, height),
		width:    width,
		height:   height,
		dirty:    true, // first Flush creates the texture
	}, nil
}

// Session returns the underlying render session, for camera and input
// access. Returns nil if the view is closed.
func (v *View) Session() *volray.Session {
	if v.closed {
		return nil
	}
	return v.sess
}

// Width returns the view width in pixels.
func (v *View) Width() int {
	return v.width
}

// Height returns the view height in pixels.
func (v *View) Height() int {
	return v.height
}

// Size returns width and height as a convenience.
func (v *View) Size() (width, height int) {
	return v.width, v.height
}

// IsDirty reports whether the pixmap has changes that have not been
// uploaded to the host texture yet.
func (v *View) IsDirty() bool {
	return v.dirty
}

// HandleInput forwards an input event to the session's camera.
// Call Frame afterwards to re-render with the updated view.
func (v *View) HandleInput(ev volray.InputEvent) {
	if v.closed {
		return
	}
	v.sess.HandleInput(ev)
}

// Frame renders the session into the view's pixmap and marks it for
// upload on the next RenderTo or Flush.
func (v *View) Frame() error {
	if v.closed {
		return ErrViewClosed
	}
	if err := v.sess.Frame(v.target); err != nil {
		return fmt.Errorf("hostview: frame failed: %w", err)
	}
	v.dirty = true
	return nil
}

// Resize changes view dimensions. The pixmap is recreated and the host
// texture is rebuilt on the next upload.
//
// Returns error if dimensions are invalid or the view is closed.
func (v *View) Resize(width, height int) error {
	if v.closed {
		return ErrViewClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}

	if v.width == width && v.height == height {
		return nil
	}

	v.target = volray.NewPixmapTarget(width, height)
	v.width = width
	v.height = height
	v.sizeChanged = true
	v.dirty = true

	return nil
}

// Flush uploads the pixmap to the host texture if dirty and returns the
// texture for manual drawing. The texture is created lazily: before the
// first RenderTo a placeholder holding the pixel data is returned, since
// texture creation needs the host's renderer.
//
// Returns error if the texture update fails or the view is closed.
func (v *View) Flush() (any, error) {
	if v.closed {
		return nil, ErrViewClosed
	}

	// After a resize the old texture may still be referenced by in-flight
	// GPU command buffers. Keep it alive and destroy it in RenderToEx
	// after the upload path has waited for the GPU.
	if v.sizeChanged {
		if v.texture != nil {
			if v.oldTexture != nil {
				if destroyer, ok := v.oldTexture.(textureDestroyer); ok {
					destroyer.Destroy()
				}
			}
			v.oldTexture = v.texture
			v.texture = nil
		}
		v.sizeChanged = false
	}

	if !v.dirty && v.texture != nil {
		return v.texture, nil
	}

	data := v.target.Pixels()

	if v.texture == nil {
		v.texture = &pendingTexture{
			width:  v.width,
			height: v.height,
			data:   data,
		}
		v.dirty = false
		return v.texture, nil
	}

	if updater, ok := v.texture.(gpucontext.TextureUpdater); ok {
		if err := updater.UpdateData(data); err != nil {
			return nil, fmt.Errorf("hostview: texture update failed: %w", err)
		}
	}

	v.dirty = false
	return v.texture, nil
}

// Texture returns the current host texture without flushing.
// Returns nil if no texture has been created yet.
func (v *View) Texture() any {
	return v.texture
}

// Provider returns the DeviceProvider associated with this view.
// Returns nil if the view is closed.
func (v *View) Provider() gpucontext.DeviceProvider {
	if v.closed {
		return nil
	}
	return v.provider
}

// Close releases the host texture. The session is NOT closed; it belongs
// to the caller. Close is idempotent.
func (v *View) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true

	if v.oldTexture != nil {
		if destroyer, ok := v.oldTexture.(textureDestroyer); ok {
			destroyer.Destroy()
		}
		v.oldTexture = nil
	}
	if v.texture != nil {
		if destroyer, ok := v.texture.(textureDestroyer); ok {
			destroyer.Destroy()
		}
		v.texture = nil
	}

	v.sess = nil
	v.provider = nil
	return nil
}

// pendingTexture holds pixel data until RenderTo has access to the
// host's texture creator.
type pendingTexture struct {
	width  int
	height int
	data   []byte
}
