// Package gpu provides the hardware ray-cast renderer. It is a thin
// construction layer over internal/gpu so applications depend on the
// volray.Renderer interface rather than on HAL types.
package gpu

import (
	"errors"

	"github.com/gogpu/volray"
	internal "github.com/gogpu/volray/internal/gpu"
)

// Option configures renderer construction.
type Option func(*config)

type config struct {
	provider any
}

// WithDeviceProvider shares an existing GPU device instead of opening a
// new one. The provider must expose HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue; this keeps volume rendering on the
// same device as the host application.
func WithDeviceProvider(provider any) Option {
	return func(c *config) { c.provider = provider }
}

// NewRenderer opens a GPU device and builds the ray-cast pipeline.
// When no usable device exists the error wraps volray.ErrGPUUnavailable,
// so callers can fall back to the software renderer:
//
//	r, err := gpu.NewRenderer()
//	if errors.Is(err, volray.ErrGPUUnavailable) {
//		r = volray.NewSoftwareRenderer()
//	}
func NewRenderer(opts ...Option) (volray.Renderer, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		ctx *internal.Context
		err error
	)
	if cfg.provider != nil {
		ctx, err = internal.NewContextFromProvider(cfg.provider)
	} else {
		ctx, err = internal.NewContext()
	}
	if err != nil {
		return nil, err
	}
	return internal.NewRenderer(ctx)
}

// NewRendererWithFallback returns a hardware renderer when a device is
// available and the software reference renderer otherwise. The fallback
// is logged, never an error.
func NewRendererWithFallback(opts ...Option) volray.Renderer {
	r, err := NewRenderer(opts...)
	if err == nil {
		return r
	}
	if errors.Is(err, volray.ErrGPUUnavailable) {
		volray.Logger().Warn("gpu unavailable, using software renderer", "err", err)
	} else {
		volray.Logger().Warn("gpu renderer init failed, using software renderer", "err", err)
	}
	return volray.NewSoftwareRenderer()
}
