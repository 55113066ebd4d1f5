package volray

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/gogpu/volray/cache"
	"gonum.org/v1/gonum/stat"
)

// DefaultLUTResolution is the texel count of baked lookup tables.
// 256 texels resolve 8-bit source data exactly.
const DefaultLUTResolution = 256

// ControlPoint maps a normalized scalar position to a color and opacity.
type ControlPoint struct {
	// Position is the scalar value this point classifies, in [0, 1].
	Position float32

	// Color is the emitted color at this scalar value.
	Color RGB

	// Opacity is the absorption at this scalar value, in [0, 1].
	// Opacity is not premultiplied into Color at bake time; compositing
	// applies it per step, so step-size changes never require a rebake.
	Opacity float32
}

// TransferFunction classifies scalar field values into color and opacity.
// It is an ordered sequence of control points spanning [0, 1], materialized
// into a fixed-resolution RGBA lookup table by linear interpolation.
// Immutable once constructed; editing builds a new TransferFunction.
type TransferFunction struct {
	points []ControlPoint
}

// bakeCache holds baked LUTs across all transfer functions. Baking is
// deterministic, so the cache is keyed purely by content.
var bakeCache = cache.NewLUTCache(cache.DefaultCapacity)

// NewTransferFunction validates control points and constructs a transfer
// function. It fails with an *InvalidTransferFunctionError unless the
// positions are strictly increasing, the first point sits at 0, the last
// at 1, and every opacity is in [0, 1].
func NewTransferFunction(points []ControlPoint) (*TransferFunction, error) {
	if len(points) < 2 {
		return nil, &InvalidTransferFunctionError{Index: -1, Reason: "need at least 2 control points"}
	}
	if points[0].Position != 0 {
		return nil, &InvalidTransferFunctionError{Index: 0, Reason: "first position must be 0"}
	}
	if points[len(points)-1].Position != 1 {
		return nil, &InvalidTransferFunctionError{Index: len(points) - 1, Reason: "last position must be 1"}
	}
	for i, p := range points {
		// Negated comparison also rejects NaN positions.
		if i > 0 && !(p.Position > points[i-1].Position) {
			return nil, &InvalidTransferFunctionError{Index: i, Reason: "positions must be strictly increasing"}
		}
		if p.Opacity < 0 || p.Opacity > 1 || isNaN32(p.Opacity) {
			return nil, &InvalidTransferFunctionError{Index: i, Reason: "opacity outside [0, 1]"}
		}
	}
	return &TransferFunction{points: slices.Clone(points)}, nil
}

func isNaN32(f float32) bool { return f != f }

// ControlPoints returns a copy of the control points.
func (tf *TransferFunction) ControlPoints() []ControlPoint {
	return slices.Clone(tf.points)
}

// Bake materializes the transfer function into an RGBA8 lookup table of
// the given resolution (texel count). For each texel's normalized center
// position, the bracketing control points are located and color and
// opacity are linearly interpolated independently.
//
// Baking is deterministic: identical control points and resolution always
// produce a byte-identical table. Results are cached by content hash; the
// returned slice is shared and must be treated as read-only.
func (tf *TransferFunction) Bake(resolution int) []byte {
	if resolution < 2 {
		resolution = DefaultLUTResolution
	}
	key := cache.HashPoints(tf.contentBytes(), resolution)
	return bakeCache.GetOrBake(key, func() []byte {
		return tf.bake(resolution)
	})
}

func (tf *TransferFunction) bake(resolution int) []byte {
	lut := make([]byte, resolution*4)
	for i := 0; i < resolution; i++ {
		// Texel i is addressed by a sampler at coordinate (i+0.5)/res,
		// which linear LUT lookup maps back to position i/(res-1).
		pos := float32(i) / float32(resolution-1)
		c, a := tf.Evaluate(pos)
		lut[i*4+0] = toByte(c.R)
		lut[i*4+1] = toByte(c.G)
		lut[i*4+2] = toByte(c.B)
		lut[i*4+3] = toByte(a)
	}
	return lut
}

// Evaluate returns the interpolated color and opacity at a normalized
// scalar position. Positions outside [0, 1] clamp to the endpoints.
func (tf *TransferFunction) Evaluate(pos float32) (RGB, float32) {
	pts := tf.points
	if pos <= pts[0].Position {
		return pts[0].Color, pts[0].Opacity
	}
	last := pts[len(pts)-1]
	if pos >= last.Position {
		return last.Color, last.Opacity
	}

	// Locate the bracketing pair. Control point counts are small, so a
	// linear scan beats binary search in practice.
	hi := 1
	for pts[hi].Position < pos {
		hi++
	}
	lo := hi - 1
	t := (pos - pts[lo].Position) / (pts[hi].Position - pts[lo].Position)

	c := RGB{
		R: lerp(pts[lo].Color.R, pts[hi].Color.R, t),
		G: lerp(pts[lo].Color.G, pts[hi].Color.G, t),
		B: lerp(pts[lo].Color.B, pts[hi].Color.B, t),
	}
	return c, lerp(pts[lo].Opacity, pts[hi].Opacity, t)
}

// contentBytes serializes the control points little-endian for hashing.
func (tf *TransferFunction) contentBytes() []byte {
	buf := make([]byte, 0, len(tf.points)*20)
	var tmp [4]byte
	put := func(f float32) {
		binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(f))
		buf = append(buf, tmp[:]...)
	}
	for _, p := range tf.points {
		put(p.Position)
		put(p.Color.R)
		put(p.Color.G)
		put(p.Color.B)
		put(p.Opacity)
	}
	return buf
}

// SampleLUT reads a baked RGBA8 lookup table at a normalized scalar
// position with linear filtering and clamp-to-edge addressing, emulating
// the GPU sampler exactly. The software renderer uses this so both
// renderers classify identically.
func SampleLUT(lut []byte, pos float32) RGBA {
	res := len(lut) / 4
	if res == 0 {
		return Transparent
	}
	f := clamp01(pos)*float32(res) - 0.5
	i0 := int(floorf(f))
	t := f - float32(i0)
	i1 := clampInt(i0+1, 0, res-1)
	i0 = clampInt(i0, 0, res-1)

	texel := func(i int) RGBA {
		return RGBA{
			R: float32(lut[i*4+0]) / 255,
			G: float32(lut[i*4+1]) / 255,
			B: float32(lut[i*4+2]) / 255,
			A: float32(lut[i*4+3]) / 255,
		}
	}
	a, b := texel(i0), texel(i1)
	return RGBA{
		R: lerp(a.R, b.R, t),
		G: lerp(a.G, b.G, t),
		B: lerp(a.B, b.B, t),
		A: lerp(a.A, b.A, t),
	}
}

func floorf(f float32) float32 {
	return float32(math.Floor(float64(f)))
}

// GrayscaleRamp returns a transfer function mapping scalar value linearly
// to gray with linearly increasing opacity. A reasonable default for
// unknown data.
func GrayscaleRamp() *TransferFunction {
	tf, _ := NewTransferFunction([]ControlPoint{
		{Position: 0, Color: RGB{0, 0, 0}, Opacity: 0},
		{Position: 1, Color: RGB{1, 1, 1}, Opacity: 1},
	})
	return tf
}

// BoneCT returns a transfer function tuned for CT bone windows: soft
// tissue fades out, dense material renders warm white.
func BoneCT() *TransferFunction {
	tf, _ := NewTransferFunction([]ControlPoint{
		{Position: 0, Color: RGB{0, 0, 0}, Opacity: 0},
		{Position: 0.3, Color: RGB{0.4, 0.15, 0.1}, Opacity: 0},
		{Position: 0.5, Color: RGB{0.8, 0.6, 0.4}, Opacity: 0.15},
		{Position: 0.75, Color: RGB{0.95, 0.9, 0.8}, Opacity: 0.6},
		{Position: 1, Color: RGB{1, 1, 1}, Opacity: 0.95},
	})
	return tf
}

// PresetFromVolume derives an opacity ramp from the sample distribution
// of a volume: values below the lo quantile are transparent, values above
// the hi quantile fully opaque, with a linear ramp between. The color
// ramps from dark to white across the same span. Quantiles are estimated
// with gonum's empirical quantile on the sorted samples.
func PresetFromVolume(vol *Volume, loQ, hiQ float64) (*TransferFunction, error) {
	sorted := make([]float64, len(vol.Samples()))
	for i, s := range vol.Samples() {
		sorted[i] = float64(s)
	}
	slices.Sort(sorted)

	lo := float32(stat.Quantile(loQ, stat.Empirical, sorted, nil))
	hi := float32(stat.Quantile(hiQ, stat.Empirical, sorted, nil))
	if hi-lo < 1e-4 {
		// Degenerate distribution (uniform volume): fall back to a
		// plain ramp.
		return GrayscaleRamp(), nil
	}

	pts := []ControlPoint{
		{Position: 0, Color: RGB{0, 0, 0}, Opacity: 0},
	}
	if lo > 0 {
		pts = append(pts, ControlPoint{Position: lo, Color: RGB{0.1, 0.1, 0.1}, Opacity: 0})
	}
	if hi < 1 {
		pts = append(pts, ControlPoint{Position: hi, Color: RGB{0.9, 0.9, 0.9}, Opacity: 0.9})
	}
	pts = append(pts, ControlPoint{Position: 1, Color: RGB{1, 1, 1}, Opacity: 1})
	return NewTransferFunction(pts)
}
