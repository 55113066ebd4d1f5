package volray

import (
	"encoding/binary"
	"math"
)

// FrameUniformsSize is the byte size of the packed per-frame uniform
// block. It must match the WGSL Uniforms struct consumed by the ray-cast
// shader.
const FrameUniformsSize = 256

// FrameUniforms carries everything the ray-cast pipeline needs for one
// frame: camera matrices, volume bounds, and sampling parameters. It is
// rebuilt from the camera and volume every frame and discarded after use;
// there is no cross-frame identity.
type FrameUniforms struct {
	View        Mat4
	Proj        Mat4
	InvViewProj Mat4

	BoundsMin Vec3
	BoundsMax Vec3
	CameraPos Vec3

	StepSize   float32
	Saturation float32 // early-termination alpha threshold
	MaxSteps   int
	Background RGBA

	// Jitter enables per-pixel march-start offsets. Not part of the
	// packed uniform block; only the software renderer applies it, the
	// GPU pipeline ignores it.
	Jitter bool
}

// BuildFrameUniforms derives the per-frame uniforms from camera, volume,
// and render options for a viewport of the given aspect ratio.
func BuildFrameUniforms(cam *Camera, vol *Volume, opts RenderOptions, aspect float32) FrameUniforms {
	view := cam.ViewMatrix()
	proj := cam.ProjectionMatrix(aspect)
	inv, _ := proj.Mul(view).Inverse()

	min, max := vol.Bounds()
	step := opts.StepSize
	if step <= 0 {
		step = vol.Diagonal() / float32(DefaultStepsPerDiagonal)
	}
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		// The longest ray through the box is the diagonal; a small
		// cushion absorbs entry rounding.
		maxSteps = int(vol.Diagonal()/step) + 2
	}

	return FrameUniforms{
		View:        view,
		Proj:        proj,
		InvViewProj: inv,
		BoundsMin:   min,
		BoundsMax:   max,
		CameraPos:   cam.Eye(),
		StepSize:    step,
		Saturation:  opts.Saturation,
		MaxSteps:    maxSteps,
		Background:  opts.Background,
		Jitter:      opts.Jitter,
	}
}

// Pack serializes the uniforms little-endian into the exact layout of the
// WGSL uniform block:
//
//	offset   0  view           mat4x4<f32>
//	offset  64  proj           mat4x4<f32>
//	offset 128  inv_view_proj  mat4x4<f32>
//	offset 192  bounds_min     vec4<f32>  (xyz bounds, w saturation)
//	offset 208  bounds_max     vec4<f32>  (xyz bounds, w max steps)
//	offset 224  camera_pos     vec4<f32>  (xyz position, w step size)
//	offset 240  background     vec4<f32>
func (u *FrameUniforms) Pack() []byte {
	buf := make([]byte, FrameUniformsSize)
	putMat4(buf[0:], u.View)
	putMat4(buf[64:], u.Proj)
	putMat4(buf[128:], u.InvViewProj)
	putVec4(buf[192:], u.BoundsMin, u.Saturation)
	putVec4(buf[208:], u.BoundsMax, float32(u.MaxSteps))
	putVec4(buf[224:], u.CameraPos, u.StepSize)
	putF32(buf[240:], u.Background.R)
	putF32(buf[244:], u.Background.G)
	putF32(buf[248:], u.Background.B)
	putF32(buf[252:], u.Background.A)
	return buf
}

func putF32(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}

func putVec4(b []byte, v Vec3, w float32) {
	putF32(b[0:], v.X)
	putF32(b[4:], v.Y)
	putF32(b[8:], v.Z)
	putF32(b[12:], w)
}

func putMat4(b []byte, m Mat4) {
	for i, f := range m {
		putF32(b[i*4:], f)
	}
}
