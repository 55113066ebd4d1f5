package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/volray"
)

// volumeTexture is the device-side copy of one volume: an R8Unorm 3D
// texture with a clamp-to-edge trilinear sampler. Samples are quantized
// to 8 bits at upload; the shader reads them back as normalized floats,
// matching the CPU renderer's [0, 1] scalar field to within one
// quantization step.
type volumeTexture struct {
	tex     hal.Texture
	view    hal.TextureView
	sampler hal.Sampler
	dims    [3]int

	// generation identifies this upload. The pipeline records the
	// generation its bind group was built from and rebinds when they
	// diverge, so a dispatch never reaches the device against a
	// destroyed texture.
	generation uint64
}

func uploadVolume(c *Context, vol *volray.Volume, generation uint64) (*volumeTexture, error) {
	dims := vol.Dims()
	nx, ny, nz := uint32(dims[0]), uint32(dims[1]), uint32(dims[2])

	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "volume_3d",
		Size:          hal.Extent3D{Width: nx, Height: ny, DepthOrArrayLayers: nz},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension3D,
		Format:        gputypes.TextureFormatR8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create volume texture: %w", err)
	}

	vt := &volumeTexture{tex: tex, dims: dims, generation: generation}

	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "volume_3d_view",
		Format:        gputypes.TextureFormatR8Unorm,
		Dimension:     gputypes.TextureViewDimension3D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		vt.destroy(c)
		return nil, fmt.Errorf("create volume view: %w", err)
	}
	vt.view = view

	sampler, err := c.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "volume_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
	})
	if err != nil {
		vt.destroy(c)
		return nil, fmt.Errorf("create volume sampler: %w", err)
	}
	vt.sampler = sampler

	c.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		quantizeSamples(vol.Samples()),
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: nx, RowsPerImage: ny},
		&hal.Extent3D{Width: nx, Height: ny, DepthOrArrayLayers: nz},
	)

	volray.Logger().Debug("volume uploaded", "dims", dims, "generation", generation)
	return vt, nil
}

func (vt *volumeTexture) destroy(c *Context) {
	if vt == nil || c.device == nil {
		return
	}
	if vt.sampler != nil {
		c.device.DestroySampler(vt.sampler)
		vt.sampler = nil
	}
	if vt.view != nil {
		c.device.DestroyTextureView(vt.view)
		vt.view = nil
	}
	if vt.tex != nil {
		c.device.DestroyTexture(vt.tex)
		vt.tex = nil
	}
}

// quantizeSamples packs [0, 1] scalars into unorm bytes for upload.
func quantizeSamples(samples []float32) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		out[i] = byte(s*255 + 0.5)
	}
	return out
}

// lutTexture is the device-side transfer-function table: a res x 1
// RGBA8Unorm 2D texture sampled with linear filtering, so classification
// between control points interpolates exactly as the CPU lookup does.
type lutTexture struct {
	tex        hal.Texture
	view       hal.TextureView
	sampler    hal.Sampler
	resolution int
	generation uint64
}

func uploadLUT(c *Context, lut []byte, generation uint64) (*lutTexture, error) {
	res := uint32(len(lut) / 4)

	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "transfer_lut",
		Size:          hal.Extent3D{Width: res, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create lut texture: %w", err)
	}

	lt := &lutTexture{tex: tex, resolution: int(res), generation: generation}

	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "transfer_lut_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		lt.destroy(c)
		return nil, fmt.Errorf("create lut view: %w", err)
	}
	lt.view = view

	sampler, err := c.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "transfer_lut_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
	})
	if err != nil {
		lt.destroy(c)
		return nil, fmt.Errorf("create lut sampler: %w", err)
	}
	lt.sampler = sampler

	c.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		lut,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: res * 4, RowsPerImage: 1},
		&hal.Extent3D{Width: res, Height: 1, DepthOrArrayLayers: 1},
	)

	volray.Logger().Debug("lut uploaded", "resolution", res, "generation", generation)
	return lt, nil
}

func (lt *lutTexture) destroy(c *Context) {
	if lt == nil || c.device == nil {
		return
	}
	if lt.sampler != nil {
		c.device.DestroySampler(lt.sampler)
		lt.sampler = nil
	}
	if lt.view != nil {
		c.device.DestroyTextureView(lt.view)
		lt.view = nil
	}
	if lt.tex != nil {
		c.device.DestroyTexture(lt.tex)
		lt.tex = nil
	}
}
