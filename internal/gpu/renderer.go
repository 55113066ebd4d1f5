// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/volray"
)

// copyPitchAlignment is the BytesPerRow alignment required for
// texture-to-buffer copies.
const copyPitchAlignment = 256

// Renderer executes the ray-cast pipeline on a HAL device. It implements
// volray.Renderer.
//
// Volume and LUT uploads are versioned with a generation counter; the
// bind group is rebuilt lazily at the next Render when the generations it
// was built from no longer match. Replaced textures are destroyed only
// after the next frame's fence wait, so no in-flight dispatch can touch a
// freed resource.
type Renderer struct {
	ctx      *Context
	pipeline *raycastPipeline

	volume *volumeTexture
	lut    *lutTexture

	// textures retired by a rebind, destroyed after the next fence wait.
	retiredVolumes []*volumeTexture
	retiredLUTs    []*lutTexture

	generation uint64
	frame      frameTexture
	stats      volray.RenderStats
	closed     bool
}

// NewRenderer creates a hardware renderer over the given context. The
// renderer owns the context and releases it on Close.
func NewRenderer(ctx *Context) (*Renderer, error) {
	pipeline, err := newRaycastPipeline(ctx)
	if err != nil {
		ctx.Close()
		return nil, err
	}
	return &Renderer{ctx: ctx, pipeline: pipeline}, nil
}

// SetVolume uploads the volume as a 3D texture. The previous texture is
// retired and destroyed after the next frame completes.
func (r *Renderer) SetVolume(vol *volray.Volume) error {
	if r.closed {
		return volray.ErrClosed
	}
	r.generation++
	vt, err := uploadVolume(r.ctx, vol, r.generation)
	if err != nil {
		return fmt.Errorf("volray: upload volume: %w", err)
	}
	if r.volume != nil {
		r.retiredVolumes = append(r.retiredVolumes, r.volume)
	}
	r.volume = vt
	return nil
}

// SetTransferFunction bakes the transfer function and uploads the lookup
// table as a res x 1 2D texture.
func (r *Renderer) SetTransferFunction(tf *volray.TransferFunction, lutResolution int) error {
	if r.closed {
		return volray.ErrClosed
	}
	r.generation++
	lt, err := uploadLUT(r.ctx, tf.Bake(lutResolution), r.generation)
	if err != nil {
		return fmt.Errorf("volray: upload lut: %w", err)
	}
	if r.lut != nil {
		r.retiredLUTs = append(r.retiredLUTs, r.lut)
	}
	r.lut = lt
	return nil
}

// Stats returns the work counters of the most recent Render. The device
// does not expose per-ray counters, so only the ray count is filled.
func (r *Renderer) Stats() volray.RenderStats { return r.stats }

// Render draws one frame. CPU-accessible targets take the offscreen
// render-and-readback path; targets exposing a HAL texture view are
// rendered to directly with no copy.
func (r *Renderer) Render(target volray.RenderTarget, u *volray.FrameUniforms) error {
	if r.closed {
		return volray.ErrClosed
	}
	if r.volume == nil || r.lut == nil {
		return volray.ErrStaleBinding
	}
	if !r.pipeline.bound(r.volume.generation, r.lut.generation) {
		if err := r.pipeline.rebind(r.ctx, r.volume, r.lut); err != nil {
			return err
		}
	}

	r.ctx.queue.WriteBuffer(r.pipeline.uniformBuf, 0, u.Pack())

	w, h := target.Width(), target.Height()
	r.stats = volray.RenderStats{Rays: w * h}

	if view, ok := targetView(target); ok {
		return r.renderToView(view)
	}
	if target.Pixels() == nil {
		return errors.New("volray: target has neither CPU pixels nor a texture view")
	}
	return r.renderReadback(target, uint32(w), uint32(h))
}

// halViewTarget is implemented by render targets backed by a device
// texture (surface frames). TextureView must return a hal.TextureView.
type halViewTarget interface {
	TextureView() any
}

func targetView(target volray.RenderTarget) (hal.TextureView, bool) {
	vt, ok := target.(halViewTarget)
	if !ok {
		return nil, false
	}
	view, ok := vt.TextureView().(hal.TextureView)
	return view, ok && view != nil
}

// renderToView draws directly into the given texture view; presentation
// owns the result.
func (r *Renderer) renderToView(view hal.TextureView) error {
	encoder, err := r.ctx.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "raycast_surface_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("raycast_surface_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	r.encodePass(encoder, view)

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.ctx.device.FreeCommandBuffer(cmdBuf)

	return r.submitAndWait(cmdBuf)
}

// renderReadback draws into the cached offscreen texture, copies it to a
// staging buffer, waits, and unpacks rows into the target's pixels.
func (r *Renderer) renderReadback(target volray.RenderTarget, w, h uint32) error {
	if err := r.frame.ensure(r.ctx, w, h); err != nil {
		return err
	}

	encoder, err := r.ctx.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "raycast_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("raycast_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	r.encodePass(encoder, r.frame.view)

	// The pass leaves the texture in attachment layout; the copy needs
	// it as a transfer source.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: r.frame.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	bytesPerRow := w * 4
	alignedBytesPerRow := alignBytesPerRow(bytesPerRow)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := r.ctx.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "raycast_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer r.ctx.device.DestroyBuffer(stagingBuf)

	encoder.CopyTextureToBuffer(r.frame.tex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: r.frame.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	// Transition back so the next frame's render pass starts from
	// attachment layout again.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: r.frame.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.ctx.device.FreeCommandBuffer(cmdBuf)

	if err := r.submitAndWait(cmdBuf); err != nil {
		return err
	}

	readback := make([]byte, stagingSize)
	if err := r.ctx.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	unpackRows(readback, target.Pixels(), int(w), int(h), int(alignedBytesPerRow), target.Stride())
	return nil
}

// encodePass records the fullscreen ray-cast pass into the encoder.
func (r *Renderer) encodePass(encoder hal.CommandEncoder, view hal.TextureView) {
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "raycast_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	rp.SetPipeline(r.pipeline.pipeline)
	rp.SetBindGroup(0, r.pipeline.bindGroup, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()
}

// submitAndWait submits one command buffer, waits for its fence, and
// destroys any textures retired before this frame.
func (r *Renderer) submitAndWait(cmdBuf hal.CommandBuffer) error {
	fence, err := r.ctx.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer r.ctx.device.DestroyFence(fence)

	if err := r.ctx.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := r.ctx.device.Wait(fence, 1, 5*time.Second)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	r.reapRetired()
	return nil
}

// reapRetired destroys textures replaced before the frame that just
// completed; nothing on the device references them anymore.
func (r *Renderer) reapRetired() {
	for _, vt := range r.retiredVolumes {
		vt.destroy(r.ctx)
	}
	r.retiredVolumes = r.retiredVolumes[:0]
	for _, lt := range r.retiredLUTs {
		lt.destroy(r.ctx)
	}
	r.retiredLUTs = r.retiredLUTs[:0]
}

// Close releases all device resources and the context.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.reapRetired()
	r.volume.destroy(r.ctx)
	r.volume = nil
	r.lut.destroy(r.ctx)
	r.lut = nil
	r.frame.destroy(r.ctx)
	if r.pipeline != nil {
		r.pipeline.destroy(r.ctx)
		r.pipeline = nil
	}
	r.ctx.Close()
	return nil
}

// frameTexture caches the offscreen color target between frames,
// recreated only when the requested size changes.
type frameTexture struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
}

func (f *frameTexture) ensure(c *Context, w, h uint32) error {
	if f.width == w && f.height == h && f.tex != nil {
		return nil
	}
	f.destroy(c)

	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "raycast_color",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        targetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create color texture: %w", err)
	}
	f.tex = tex

	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "raycast_color_view",
	})
	if err != nil {
		f.destroy(c)
		return fmt.Errorf("create color view: %w", err)
	}
	f.view = view
	f.width = w
	f.height = h
	return nil
}

func (f *frameTexture) destroy(c *Context) {
	if c.device == nil {
		return
	}
	if f.view != nil {
		c.device.DestroyTextureView(f.view)
		f.view = nil
	}
	if f.tex != nil {
		c.device.DestroyTexture(f.tex)
		f.tex = nil
	}
	f.width = 0
	f.height = 0
}

// alignBytesPerRow rounds a row pitch up to the copy alignment.
func alignBytesPerRow(bytesPerRow uint32) uint32 {
	return (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// unpackRows strips the copy-pitch padding from the readback buffer into
// the target's tightly packed rows.
func unpackRows(readback, dst []byte, w, h, srcStride, dstStride int) {
	rowBytes := w * 4
	for y := 0; y < h; y++ {
		copy(dst[y*dstStride:y*dstStride+rowBytes], readback[y*srcStride:y*srcStride+rowBytes])
	}
}
