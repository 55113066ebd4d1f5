package volray

import "github.com/chewxy/math32"

// Ray is a view ray in world space, derived per pixel and never
// persisted.
type Ray struct {
	Origin Vec3
	Dir    Vec3 // unit length
}

// PixelRay derives the world-space ray for a pixel by unprojecting its
// center at the near and far depth planes through the inverse
// view-projection matrix. Pixel (0, 0) is the top-left corner of a
// width x height viewport.
func PixelRay(invViewProj Mat4, x, y, width, height int) Ray {
	u := (float32(x) + 0.5) / float32(width)
	v := (float32(y) + 0.5) / float32(height)
	ndcX := 2*u - 1
	ndcY := 1 - 2*v

	near := invViewProj.TransformPoint(Vec3{X: ndcX, Y: ndcY, Z: 0})
	far := invViewProj.TransformPoint(Vec3{X: ndcX, Y: ndcY, Z: 1})
	return Ray{Origin: near, Dir: far.Sub(near).Normalize()}
}

// IntersectBox intersects the ray with an axis-aligned box using the slab
// method. It returns the entry and exit distances along the ray and
// whether the box is hit in front of the origin. When the origin lies
// inside the box, tNear is clamped to 0.
func (r Ray) IntersectBox(min, max Vec3) (tNear, tFar float32, hit bool) {
	tNear = math32.Inf(-1)
	tFar = math32.Inf(1)

	o := [3]float32{r.Origin.X, r.Origin.Y, r.Origin.Z}
	d := [3]float32{r.Dir.X, r.Dir.Y, r.Dir.Z}
	lo := [3]float32{min.X, min.Y, min.Z}
	hi := [3]float32{max.X, max.Y, max.Z}

	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			// Parallel to the slab: miss unless the origin lies
			// between the planes.
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (lo[i] - o[i]) * inv
		t2 := (hi[i] - o[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tNear {
			tNear = t1
		}
		if t2 < tFar {
			tFar = t2
		}
	}

	if tNear > tFar || tFar < 0 {
		return 0, 0, false
	}
	if tNear < 0 {
		tNear = 0
	}
	return tNear, tFar, true
}
