package volray

import (
	"testing"
)

// lowOpacityTF maps every scalar to a small opacity so marches accumulate
// gradually.
func lowOpacityTF(t *testing.T) *TransferFunction {
	t.Helper()
	tf, err := NewTransferFunction([]ControlPoint{
		{Position: 0, Color: RGB{1, 1, 1}, Opacity: 0},
		{Position: 1, Color: RGB{1, 1, 1}, Opacity: 0.2},
	})
	if err != nil {
		t.Fatalf("NewTransferFunction failed: %v", err)
	}
	return tf
}

func newTestRenderer(t *testing.T, vol *Volume, tf *TransferFunction) *SoftwareRenderer {
	t.Helper()
	r := NewSoftwareRenderer(WithWorkers(1))
	if err := r.SetVolume(vol); err != nil {
		t.Fatalf("SetVolume failed: %v", err)
	}
	if err := r.SetTransferFunction(tf, DefaultLUTResolution); err != nil {
		t.Fatalf("SetTransferFunction failed: %v", err)
	}
	return r
}

func centerRay(vol *Volume) (Ray, FrameUniforms) {
	cam := NewCamera(vol)
	u := BuildFrameUniforms(cam, vol, RenderOptions{}.withDefaults(), 1)
	return PixelRay(u.InvViewProj, 32, 32, 64, 64), u
}

func TestMissWritesBackgroundAndSamplesNothing(t *testing.T) {
	vol := testVolume(t)
	r := newTestRenderer(t, vol, lowOpacityTF(t))

	cam := NewCamera(vol)
	opts := RenderOptions{Background: RGBA{0, 0, 1, 1}}.withDefaults()
	u := BuildFrameUniforms(cam, vol, opts, 1)
	// Move the box far outside the frustum so every ray misses.
	u.BoundsMin = V3(1000, 1000, 1000)
	u.BoundsMax = V3(1008, 1008, 1008)

	target := NewPixmapTarget(32, 32)
	if err := r.Render(target, &u); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	stats := r.Stats()
	if stats.VolumeSamples != 0 {
		t.Errorf("VolumeSamples = %d, want 0 for all-miss frame", stats.VolumeSamples)
	}
	if stats.Misses != stats.Rays {
		t.Errorf("Misses = %d, want %d (every ray)", stats.Misses, stats.Rays)
	}
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if got := target.At(x, y); got != (RGBA{0, 0, 1, 1}) {
				t.Fatalf("pixel (%d,%d) = %v, want background", x, y, got)
			}
		}
	}
}

func TestAlphaAccumulationMonotonic(t *testing.T) {
	vol := testVolume(t)
	r := newTestRenderer(t, vol, lowOpacityTF(t))
	ray, u := centerRay(vol)

	trace := r.TraceRay(ray, &u)
	if trace.Missed {
		t.Fatal("center ray missed the volume")
	}
	if len(trace.AlphaHistory) < 2 {
		t.Fatalf("trace recorded %d steps, want several", len(trace.AlphaHistory))
	}
	prev := float32(0)
	for i, a := range trace.AlphaHistory {
		if a < prev {
			t.Fatalf("alpha decreased at step %d: %g -> %g", i, prev, a)
		}
		if a > 1+1e-5 {
			t.Fatalf("alpha exceeded 1 at step %d: %g", i, a)
		}
		prev = a
	}
}

func TestStepRefinementNeverLosesAlpha(t *testing.T) {
	vol := testVolume(t)
	r := newTestRenderer(t, vol, lowOpacityTF(t))
	diag := vol.Diagonal()

	// Finer steps take more samples and can only accumulate more
	// opacity. The finest march is the reference.
	var prevAlpha float32
	for _, div := range []float32{8, 16, 32, 64, 128, 256} {
		cam := NewCamera(vol)
		opts := RenderOptions{StepSize: diag / div}.withDefaults()
		u := BuildFrameUniforms(cam, vol, opts, 1)
		ray := PixelRay(u.InvViewProj, 32, 32, 64, 64)

		trace := r.TraceRay(ray, &u)
		if trace.Missed {
			t.Fatal("center ray missed the volume")
		}
		final := trace.AlphaHistory[len(trace.AlphaHistory)-1]
		if final < prevAlpha-1e-5 {
			t.Errorf("step diag/%g produced final alpha %g, below coarser march %g",
				div, final, prevAlpha)
		}
		prevAlpha = final
	}
}

func TestEarlyTermination(t *testing.T) {
	vol := testVolume(t)
	opaque, err := NewTransferFunction([]ControlPoint{
		{Position: 0, Color: RGB{1, 0, 0}, Opacity: 1},
		{Position: 1, Color: RGB{1, 0, 0}, Opacity: 1},
	})
	if err != nil {
		t.Fatalf("NewTransferFunction failed: %v", err)
	}
	r := newTestRenderer(t, vol, opaque)
	ray, u := centerRay(vol)

	trace := r.TraceRay(ray, &u)
	if !trace.EarlyTerminated {
		t.Error("fully opaque march did not terminate early")
	}
	if trace.Samples != 1 {
		t.Errorf("Samples = %d, want 1 (first sample saturates)", trace.Samples)
	}
}

func TestMaxStepsBoundsWork(t *testing.T) {
	vol := testVolume(t)
	r := newTestRenderer(t, vol, lowOpacityTF(t))
	ray, u := centerRay(vol)
	u.MaxSteps = 3

	trace := r.TraceRay(ray, &u)
	if trace.Samples > 3 {
		t.Errorf("Samples = %d, want at most 3", trace.Samples)
	}
}

func TestRenderRequiresBindings(t *testing.T) {
	r := NewSoftwareRenderer()
	target := NewPixmapTarget(8, 8)
	u := FrameUniforms{}
	if err := r.Render(target, &u); err != ErrStaleBinding {
		t.Errorf("Render without bindings = %v, want ErrStaleBinding", err)
	}
}

func TestClosedRenderer(t *testing.T) {
	vol := testVolume(t)
	r := newTestRenderer(t, vol, lowOpacityTF(t))
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := r.SetVolume(vol); err != ErrClosed {
		t.Errorf("SetVolume after close = %v, want ErrClosed", err)
	}
	u := FrameUniforms{}
	if err := r.Render(NewPixmapTarget(4, 4), &u); err != ErrClosed {
		t.Errorf("Render after close = %v, want ErrClosed", err)
	}
}

func TestJitterOffsetsAreStable(t *testing.T) {
	u := FrameUniforms{Jitter: true}
	a := jitterOffset(&u, 13, 27)
	b := jitterOffset(&u, 13, 27)
	if a != b {
		t.Error("jitter offset not reproducible for a fixed pixel")
	}
	if a < 0 || a >= 1 {
		t.Errorf("jitter offset %g outside [0, 1)", a)
	}
	u.Jitter = false
	if got := jitterOffset(&u, 13, 27); got != 0 {
		t.Errorf("jitter disabled returned %g, want 0", got)
	}
}
