// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/volray"
)

//go:embed shaders/raycast.wgsl
var raycastShaderSource string

// targetFormat is the color format of every offscreen frame. RGBA8Unorm
// readback matches the CPU target's pixel layout byte for byte.
const targetFormat = gputypes.TextureFormatRGBA8Unorm

// raycastPipeline owns the render pipeline for the fullscreen ray-cast
// pass and its bind group.
//
// Bind group layout, matching raycast.wgsl:
//
//	binding 0: Uniforms (uniform buffer, vertex+fragment)
//	binding 1: volume (texture_3d<f32>, fragment)
//	binding 2: volume sampler (filtering, fragment)
//	binding 3: transfer LUT (texture_2d<f32>, fragment)
//	binding 4: LUT sampler (filtering, fragment)
type raycastPipeline struct {
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	uniformBuf hal.Buffer

	// bindGroup is rebuilt whenever the bound resource generations
	// change; boundVolume/boundLUT record what it was built from.
	bindGroup   hal.BindGroup
	boundVolume uint64
	boundLUT    uint64
}

func newRaycastPipeline(c *Context) (*raycastPipeline, error) {
	// Validate the shader before handing it to the backend; the HAL
	// error on failure points at the pipeline, not the WGSL.
	if _, err := naga.Compile(raycastShaderSource); err != nil {
		volray.Logger().Warn("raycast shader validation failed", "err", err)
	}

	p := &raycastPipeline{}

	shader, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "raycast_shader",
		Source: hal.ShaderSource{WGSL: raycastShaderSource},
	})
	if err != nil {
		return nil, fmt.Errorf("compile raycast shader: %w", err)
	}
	p.shader = shader

	bindLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "raycast_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension3D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    3,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    4,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		p.destroy(c)
		return nil, fmt.Errorf("create raycast bind layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "raycast_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		p.destroy(c)
		return nil, fmt.Errorf("create raycast pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	pipeline, err := c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "raycast_pipeline",
		Layout: pipeLayout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.destroy(c)
		return nil, fmt.Errorf("create raycast pipeline: %w", err)
	}
	p.pipeline = pipeline

	uniformBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "raycast_uniforms",
		Size:  volray.FrameUniformsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		p.destroy(c)
		return nil, fmt.Errorf("create uniform buffer: %w", err)
	}
	p.uniformBuf = uniformBuf

	return p, nil
}

// bound reports whether the current bind group matches the given
// resource generations.
func (p *raycastPipeline) bound(volumeGen, lutGen uint64) bool {
	return p.bindGroup != nil && p.boundVolume == volumeGen && p.boundLUT == lutGen
}

// rebind drops the stale bind group and builds one over the current
// volume and LUT resources.
func (p *raycastPipeline) rebind(c *Context, vt *volumeTexture, lt *lutTexture) error {
	if p.bindGroup != nil {
		c.device.DestroyBindGroup(p.bindGroup)
		p.bindGroup = nil
	}

	bg, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "raycast_bind",
		Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: p.uniformBuf.NativeHandle(), Offset: 0, Size: volray.FrameUniformsSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: vt.view.NativeHandle(),
			}},
			{Binding: 2, Resource: gputypes.SamplerBinding{
				Sampler: vt.sampler.NativeHandle(),
			}},
			{Binding: 3, Resource: gputypes.TextureViewBinding{
				TextureView: lt.view.NativeHandle(),
			}},
			{Binding: 4, Resource: gputypes.SamplerBinding{
				Sampler: lt.sampler.NativeHandle(),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create raycast bind group: %w", err)
	}
	p.bindGroup = bg
	p.boundVolume = vt.generation
	p.boundLUT = lt.generation
	return nil
}

// destroy releases pipeline resources in reverse creation order.
func (p *raycastPipeline) destroy(c *Context) {
	if c.device == nil {
		return
	}
	if p.bindGroup != nil {
		c.device.DestroyBindGroup(p.bindGroup)
		p.bindGroup = nil
	}
	if p.uniformBuf != nil {
		c.device.DestroyBuffer(p.uniformBuf)
		p.uniformBuf = nil
	}
	if p.pipeline != nil {
		c.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		c.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		c.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		c.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
