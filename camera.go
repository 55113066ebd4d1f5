package volray

import "github.com/chewxy/math32"

// Camera orbit defaults.
const (
	// DefaultFOV is the vertical field of view in radians (45 degrees).
	DefaultFOV = math32.Pi / 4

	// maxElevation keeps the eye off the poles so the fixed +Y up vector
	// never degenerates (89 degrees).
	maxElevation = 89 * math32.Pi / 180
)

// Camera is an orbit camera: a fixed look-at target plus azimuth,
// elevation, and distance. View and projection matrices are pure
// functions of this state, recomputed on demand and never stored.
//
// Camera is mutated only by discrete input deltas on the driving
// goroutine; it is not safe for concurrent use.
type Camera struct {
	Target    Vec3
	Azimuth   float32 // radians around +Y, 0 looks down -Z
	Elevation float32 // radians above the horizon
	Distance  float32

	FOV  float32
	Near float32
	Far  float32

	MinDistance float32
	MaxDistance float32
}

// NewCamera returns an orbit camera framing a volume: the target is the
// volume center and the distance is derived from the bounding diagonal so
// the whole volume is visible at the default field of view.
func NewCamera(vol *Volume) *Camera {
	diag := vol.Diagonal()
	return &Camera{
		Target:      Vec3{},
		Azimuth:     0,
		Elevation:   0,
		Distance:    1.5 * diag,
		FOV:         DefaultFOV,
		Near:        0.01 * diag,
		Far:         10 * diag,
		MinDistance: 0.6 * diag,
		MaxDistance: 5 * diag,
	}
}

// Rotate adjusts azimuth and elevation by the given deltas in radians.
// Azimuth wraps freely; elevation clamps short of the poles to avoid a
// degenerate up vector.
func (c *Camera) Rotate(deltaAzimuth, deltaElevation float32) {
	c.Azimuth += deltaAzimuth
	c.Elevation = clampf(c.Elevation+deltaElevation, -maxElevation, maxElevation)
}

// Zoom adjusts the orbit distance by delta (positive moves away), clamped
// to [MinDistance, MaxDistance].
func (c *Camera) Zoom(delta float32) {
	c.Distance = clampf(c.Distance+delta, c.MinDistance, c.MaxDistance)
}

// Eye returns the camera position derived from the orbit state.
func (c *Camera) Eye() Vec3 {
	ce := math32.Cos(c.Elevation)
	dir := Vec3{
		X: ce * math32.Sin(c.Azimuth),
		Y: math32.Sin(c.Elevation),
		Z: ce * math32.Cos(c.Azimuth),
	}
	return c.Target.Add(dir.Mul(c.Distance))
}

// ViewMatrix returns the look-at matrix from the orbit-derived eye toward
// the target with a fixed +Y up vector.
func (c *Camera) ViewMatrix() Mat4 {
	return LookAt(c.Eye(), c.Target, Vec3{Y: 1})
}

// ProjectionMatrix returns the perspective projection for the given
// viewport aspect ratio (width / height).
func (c *Camera) ProjectionMatrix(aspect float32) Mat4 {
	return Perspective(c.FOV, aspect, c.Near, c.Far)
}

func clampf(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
