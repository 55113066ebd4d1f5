package volray

import "testing"

func TestIntersectBox(t *testing.T) {
	min, max := V3(-1, -1, -1), V3(1, 1, 1)
	tests := []struct {
		name     string
		ray      Ray
		wantHit  bool
		wantNear float32
		wantFar  float32
	}{
		{"through center", Ray{V3(0, 0, 5), V3(0, 0, -1)}, true, 4, 6},
		{"origin inside", Ray{V3(0, 0, 0), V3(0, 0, -1)}, true, 0, 1},
		{"pointing away", Ray{V3(0, 0, 5), V3(0, 0, 1)}, false, 0, 0},
		{"parallel miss", Ray{V3(5, 0, 5), V3(0, 0, -1)}, false, 0, 0},
		{"parallel inside slab", Ray{V3(0.5, 0.5, 5), V3(0, 0, -1)}, true, 4, 6},
		{"edge graze", Ray{V3(5, 1, 1), V3(-1, 0, 0)}, true, 4, 6},
		{"off-axis hit", Ray{V3(0.5, -0.5, 3), V3(0, 0, -1)}, true, 2, 4},
		{"behind origin", Ray{V3(0, 0, -5), V3(0, 0, -1)}, false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tNear, tFar, hit := tt.ray.IntersectBox(min, max)
			if hit != tt.wantHit {
				t.Fatalf("hit = %v, want %v", hit, tt.wantHit)
			}
			if !hit {
				return
			}
			if !near(tNear, tt.wantNear, 1e-4) || !near(tFar, tt.wantFar, 1e-4) {
				t.Errorf("t = [%g, %g], want [%g, %g]", tNear, tFar, tt.wantNear, tt.wantFar)
			}
		})
	}
}

func TestPixelRayCenter(t *testing.T) {
	cam := NewCamera(testVolume(t))
	view := cam.ViewMatrix()
	proj := cam.ProjectionMatrix(1)
	inv, ok := proj.Mul(view).Inverse()
	if !ok {
		t.Fatal("view-projection not invertible")
	}

	// Rays sample pixel centers, so pixel (32,32) of a 65x65 viewport is
	// the exact viewport center and its ray points from eye to target.
	ray := PixelRay(inv, 32, 32, 65, 65)
	wantDir := cam.Target.Sub(cam.Eye()).Normalize()
	if !vecNear(ray.Dir, wantDir, 1e-3) {
		t.Errorf("center ray dir = %v, want %v", ray.Dir, wantDir)
	}

	// The origin sits on the near plane between eye and target.
	toOrigin := ray.Origin.Sub(cam.Eye())
	if toOrigin.Dot(wantDir) < 0 {
		t.Error("ray origin is behind the eye")
	}

	// An even viewport has no center pixel: (32,32) of 64x64 samples half
	// a pixel off axis and must not coincide with the target direction.
	offCenter := PixelRay(inv, 32, 32, 64, 64)
	if vecNear(offCenter.Dir, wantDir, 1e-4) {
		t.Error("64x64 pixel (32,32) should be half a pixel off center")
	}
}

func TestPixelRaySymmetry(t *testing.T) {
	cam := NewCamera(testVolume(t))
	inv, ok := cam.ProjectionMatrix(1).Mul(cam.ViewMatrix()).Inverse()
	if !ok {
		t.Fatal("view-projection not invertible")
	}

	left := PixelRay(inv, 0, 32, 64, 64)
	right := PixelRay(inv, 63, 32, 64, 64)
	// Mirrored pixels produce mirrored x components for a camera on the
	// +Z axis looking down -Z.
	if !near(left.Dir.X, -right.Dir.X, 1e-4) {
		t.Errorf("dir x = %g vs %g, want mirrored", left.Dir.X, right.Dir.X)
	}
	if !near(left.Dir.Y, right.Dir.Y, 1e-4) {
		t.Errorf("dir y = %g vs %g, want equal", left.Dir.Y, right.Dir.Y)
	}
}
