package volray

import "github.com/chewxy/math32"

// Volume is an immutable regular 3D scalar grid. Samples are stored
// densely in x-fastest order: sample (x, y, z) lives at index
// x + y*nx + z*nx*ny. Sample values are normalized to [0, 1]; the
// original scalar range is preserved in ValueRange for re-windowing.
//
// A Volume is owned by the caller and never mutated by the renderer;
// reloading a dataset produces a new Volume and the renderer is repointed
// at it.
type Volume struct {
	dims     [3]int
	spacing  [3]float32
	samples  []float32
	valueMin float32
	valueMax float32
}

// NewVolume validates the shape contract and constructs a volume.
// It fails with a *VolumeLoadError when the dimension product does not
// match the sample count, a dimension is < 1, or a spacing component
// is <= 0. Sample values outside [0, 1] are clamped.
func NewVolume(samples []float32, dims [3]int, spacing [3]float32) (*Volume, error) {
	for i, d := range dims {
		if d < 1 {
			return nil, &VolumeLoadError{
				Dims: dims, Spacing: spacing, Samples: len(samples),
				Reason: "dimension " + axisName(i) + " is not positive",
			}
		}
	}
	for i, s := range spacing {
		if !(s > 0) {
			return nil, &VolumeLoadError{
				Dims: dims, Spacing: spacing, Samples: len(samples),
				Reason: "spacing " + axisName(i) + " is not positive",
			}
		}
	}
	if dims[0]*dims[1]*dims[2] != len(samples) {
		return nil, &VolumeLoadError{
			Dims: dims, Spacing: spacing, Samples: len(samples),
			Reason: "dimension product does not match sample count",
		}
	}

	v := &Volume{dims: dims, spacing: spacing, samples: samples}
	v.valueMin, v.valueMax = sampleRange(samples)
	clampSamples(samples)
	return v, nil
}

func axisName(i int) string {
	return [...]string{"x", "y", "z"}[i]
}

func sampleRange(samples []float32) (lo, hi float32) {
	lo, hi = math32.Inf(1), math32.Inf(-1)
	for _, s := range samples {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	if lo > hi {
		lo, hi = 0, 0
	}
	return lo, hi
}

func clampSamples(samples []float32) {
	for i, s := range samples {
		if s < 0 {
			samples[i] = 0
		} else if s > 1 {
			samples[i] = 1
		}
	}
}

// Dims returns the grid dimensions (nx, ny, nz).
func (v *Volume) Dims() [3]int {
	return v.dims
}

// Spacing returns the physical voxel spacing in world units.
func (v *Volume) Spacing() [3]float32 {
	return v.spacing
}

// Samples returns the normalized scalar field. The slice is shared;
// callers must not modify it.
func (v *Volume) Samples() []float32 {
	return v.samples
}

// ValueRange returns the minimum and maximum sample values observed at
// construction, before clamping.
func (v *Volume) ValueRange() (lo, hi float32) {
	return v.valueMin, v.valueMax
}

// Bounds returns the volume's axis-aligned extent in world units,
// dimensions * spacing, centered at the origin. Centering keeps the orbit
// camera target at the volume center without extra bookkeeping.
func (v *Volume) Bounds() (min, max Vec3) {
	half := Vec3{
		X: float32(v.dims[0]) * v.spacing[0] / 2,
		Y: float32(v.dims[1]) * v.spacing[1] / 2,
		Z: float32(v.dims[2]) * v.spacing[2] / 2,
	}
	return half.Neg(), half
}

// Diagonal returns the length of the bounding-box diagonal. This is the
// natural scale for choosing a step size: diagonal/N yields at most N
// samples along the longest possible ray.
func (v *Volume) Diagonal() float32 {
	min, max := v.Bounds()
	return max.Sub(min).Length()
}

// At returns the sample at integer grid coordinates, clamped to the
// volume extent (clamp-to-edge addressing).
func (v *Volume) At(x, y, z int) float32 {
	x = clampInt(x, 0, v.dims[0]-1)
	y = clampInt(y, 0, v.dims[1]-1)
	z = clampInt(z, 0, v.dims[2]-1)
	return v.samples[x+y*v.dims[0]+z*v.dims[0]*v.dims[1]]
}

// SampleTrilinear samples the volume at normalized texture coordinates
// (u, v, w) in [0, 1] with trilinear filtering and clamp-to-edge
// addressing, matching GPU sampler semantics: texel centers sit at
// (i + 0.5) / n.
func (v *Volume) SampleTrilinear(u, vv, w float32) float32 {
	fx := u*float32(v.dims[0]) - 0.5
	fy := vv*float32(v.dims[1]) - 0.5
	fz := w*float32(v.dims[2]) - 0.5

	x0 := int(math32.Floor(fx))
	y0 := int(math32.Floor(fy))
	z0 := int(math32.Floor(fz))
	tx := fx - float32(x0)
	ty := fy - float32(y0)
	tz := fz - float32(z0)

	c000 := v.At(x0, y0, z0)
	c100 := v.At(x0+1, y0, z0)
	c010 := v.At(x0, y0+1, z0)
	c110 := v.At(x0+1, y0+1, z0)
	c001 := v.At(x0, y0, z0+1)
	c101 := v.At(x0+1, y0, z0+1)
	c011 := v.At(x0, y0+1, z0+1)
	c111 := v.At(x0+1, y0+1, z0+1)

	c00 := lerp(c000, c100, tx)
	c10 := lerp(c010, c110, tx)
	c01 := lerp(c001, c101, tx)
	c11 := lerp(c011, c111, tx)

	c0 := lerp(c00, c10, ty)
	c1 := lerp(c01, c11, ty)
	return lerp(c0, c1, tz)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
