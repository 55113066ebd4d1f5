package volray

import (
	"errors"
	"sync/atomic"

	"github.com/gogpu/volray/internal/parallel"
)

// SoftwareRenderer executes the ray-cast pipeline on the CPU. It is the
// reference implementation: the GPU renderer's shader follows the same
// marching, classification, and compositing steps sample for sample.
//
// Rows are rendered in parallel; pixels within a row are independent, so
// no synchronization beyond the row handout is needed.
type SoftwareRenderer struct {
	vol     *Volume
	lut     []byte
	workers int
	closed  bool

	stats RenderStats
}

// SoftwareOption configures a SoftwareRenderer.
type SoftwareOption func(*SoftwareRenderer)

// WithWorkers sets the number of row workers. Zero selects GOMAXPROCS.
func WithWorkers(n int) SoftwareOption {
	return func(r *SoftwareRenderer) { r.workers = n }
}

// NewSoftwareRenderer creates a CPU renderer. A volume and transfer
// function must be set before the first Render.
func NewSoftwareRenderer(opts ...SoftwareOption) *SoftwareRenderer {
	r := &SoftwareRenderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetVolume repoints the renderer at a volume. The previous volume
// remains valid for callers still holding it.
func (r *SoftwareRenderer) SetVolume(vol *Volume) error {
	if r.closed {
		return ErrClosed
	}
	r.vol = vol
	return nil
}

// SetTransferFunction bakes the transfer function into the renderer's
// lookup table.
func (r *SoftwareRenderer) SetTransferFunction(tf *TransferFunction, lutResolution int) error {
	if r.closed {
		return ErrClosed
	}
	r.lut = tf.Bake(lutResolution)
	return nil
}

// Stats returns the work counters of the most recent Render.
func (r *SoftwareRenderer) Stats() RenderStats {
	return r.stats
}

// Close releases the renderer. Subsequent calls return ErrClosed from
// every other method.
func (r *SoftwareRenderer) Close() error {
	r.closed = true
	r.vol = nil
	r.lut = nil
	return nil
}

// Render casts one ray per target pixel and composites the result.
// The target must provide CPU pixel access.
func (r *SoftwareRenderer) Render(target RenderTarget, u *FrameUniforms) error {
	if r.closed {
		return ErrClosed
	}
	if r.vol == nil || r.lut == nil {
		return ErrStaleBinding
	}
	pix := target.Pixels()
	if pix == nil {
		return errors.New("volray: software renderer requires a CPU-accessible target")
	}

	w, h := target.Width(), target.Height()
	stride := target.Stride()

	var misses, samples, early atomic.Int64
	parallel.Rows(h, r.workers, func(y int) {
		var rowMisses, rowSamples, rowEarly int
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			ray := PixelRay(u.InvViewProj, x, y, w, h)
			trace := traceRay(r.vol, r.lut, ray, u, jitterOffset(u, x, y))
			rowSamples += trace.Samples
			if trace.Missed {
				rowMisses++
			}
			if trace.EarlyTerminated {
				rowEarly++
			}
			row[x*4+0] = toByte(trace.Color.R)
			row[x*4+1] = toByte(trace.Color.G)
			row[x*4+2] = toByte(trace.Color.B)
			row[x*4+3] = toByte(trace.Color.A)
		}
		misses.Add(int64(rowMisses))
		samples.Add(int64(rowSamples))
		early.Add(int64(rowEarly))
	})

	r.stats = RenderStats{
		Rays:            w * h,
		Misses:          int(misses.Load()),
		VolumeSamples:   int(samples.Load()),
		EarlyTerminated: int(early.Load()),
	}
	Logger().Debug("software frame",
		"rays", r.stats.Rays,
		"misses", r.stats.Misses,
		"samples", r.stats.VolumeSamples,
		"early", r.stats.EarlyTerminated)
	return nil
}

// RayTrace records the observable outcome of marching one ray: the
// composited color, the per-step accumulated alpha, and the termination
// cause. The saturation condition and the step bound are part of the
// rendering contract, so they are exposed for inspection rather than
// buried in loop mechanics.
type RayTrace struct {
	Color           RGBA
	AlphaHistory    []float32
	Samples         int
	Missed          bool
	EarlyTerminated bool
}

// TraceRay marches a single ray through the renderer's current volume
// using the given uniforms and returns the full trace. Intended for
// inspection and testing; Render uses the same code path without
// recording the history.
func (r *SoftwareRenderer) TraceRay(ray Ray, u *FrameUniforms) RayTrace {
	trace := traceRayRecorded(r.vol, r.lut, ray, u, 0)
	return trace
}

// traceRay marches one ray front to back and composites with the "over"
// operator. jitter shifts the march start by a fraction of a step.
func traceRay(vol *Volume, lut []byte, ray Ray, u *FrameUniforms, jitter float32) RayTrace {
	return march(vol, lut, ray, u, jitter, false)
}

func traceRayRecorded(vol *Volume, lut []byte, ray Ray, u *FrameUniforms, jitter float32) RayTrace {
	return march(vol, lut, ray, u, jitter, true)
}

func march(vol *Volume, lut []byte, ray Ray, u *FrameUniforms, jitter float32, record bool) RayTrace {
	tNear, tFar, hit := ray.IntersectBox(u.BoundsMin, u.BoundsMax)
	if !hit {
		return RayTrace{Color: u.Background, Missed: true}
	}

	extent := u.BoundsMax.Sub(u.BoundsMin)
	invExtent := Vec3{X: 1 / extent.X, Y: 1 / extent.Y, Z: 1 / extent.Z}

	var acc RGBA
	trace := RayTrace{}
	t := tNear + jitter*u.StepSize
	for step := 0; step < u.MaxSteps && t <= tFar; step++ {
		p := ray.Origin.Add(ray.Dir.Mul(t))
		local := p.Sub(u.BoundsMin).MulVec(invExtent)
		s := vol.SampleTrilinear(local.X, local.Y, local.Z)
		trace.Samples++

		cls := SampleLUT(lut, s)
		// Front-to-back "over": LUT opacity is not premultiplied, so
		// each step weights its color by its own opacity and by the
		// remaining transparency.
		w := (1 - acc.A) * cls.A
		acc.R += w * cls.R
		acc.G += w * cls.G
		acc.B += w * cls.B
		acc.A += w

		if record {
			trace.AlphaHistory = append(trace.AlphaHistory, acc.A)
		}
		if acc.A >= u.Saturation {
			trace.EarlyTerminated = true
			break
		}
		t += u.StepSize
	}

	// Composite the result over the background so rays that exit with
	// partial opacity blend toward the clear color.
	rem := 1 - acc.A
	trace.Color = RGBA{
		R: acc.R + rem*u.Background.R*u.Background.A,
		G: acc.G + rem*u.Background.G*u.Background.A,
		B: acc.B + rem*u.Background.B*u.Background.A,
		A: acc.A + rem*u.Background.A,
	}
	return trace
}

// jitterOffset returns the march-start offset for a pixel as a fraction
// of the step size. Disabled (zero) unless the frame requests jittering;
// the hash is a fixed integer scramble so renders stay reproducible for
// a given viewport.
func jitterOffset(u *FrameUniforms, x, y int) float32 {
	if !u.Jitter {
		return 0
	}
	h := uint32(x)*0x9E3779B9 + uint32(y)*0x85EBCA6B
	h ^= h >> 16
	h *= 0x7FEB352D
	h ^= h >> 15
	return float32(h&0xFFFF) / 0x10000
}
