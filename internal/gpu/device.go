// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu implements the hardware ray-cast renderer on gogpu/wgpu.
// It owns the device context, the volume and lookup-table textures, and
// the fullscreen-triangle render pipeline. The public entry point is the
// volray/gpu package.
package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/volray"
)

// Context holds the HAL device and queue the renderer dispatches against.
// It either owns them (created via NewContext) or borrows them from a
// shared provider, in which case Close leaves them alive.
type Context struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	owned    bool
}

// NewContext brings up the Vulkan backend, picks an adapter (preferring
// discrete, then integrated GPUs), and opens a device with default
// limits. Failures wrap volray.ErrGPUUnavailable so callers can fall
// back to the software renderer.
func NewContext() (*Context, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", volray.ErrGPUUnavailable)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %v", volray.ErrGPUUnavailable, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters found", volray.ErrGPUUnavailable)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %v", volray.ErrGPUUnavailable, err)
	}

	volray.Logger().Info("gpu context ready", "adapter", selected.Info.Name)
	return &Context{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		owned:    true,
	}, nil
}

// NewContextFromProvider borrows a device and queue from an external
// provider. The provider must expose HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue; this keeps volume rendering on the
// same device as the host application without a package dependency on it.
func NewContextFromProvider(provider any) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", volray.ErrGPUUnavailable)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", volray.ErrGPUUnavailable)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", volray.ErrGPUUnavailable)
	}
	volray.Logger().Info("gpu context ready", "adapter", "shared device")
	return &Context{device: device, queue: queue, owned: false}, nil
}

// Device returns the HAL device.
func (c *Context) Device() hal.Device { return c.device }

// Queue returns the HAL queue.
func (c *Context) Queue() hal.Queue { return c.queue }

// Close releases the device and instance when the context owns them.
// Borrowed devices are left untouched.
func (c *Context) Close() {
	if c.owned {
		if c.device != nil {
			c.device.Destroy()
		}
		if c.instance != nil {
			c.instance.Destroy()
		}
	}
	c.device = nil
	c.queue = nil
	c.instance = nil
}
