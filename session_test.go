package volray

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
)

// fakeRenderer records binding and render calls without touching pixels.
type fakeRenderer struct {
	volumes   int
	transfers int
	renders   int
	closed    bool
	renderErr error
}

func (f *fakeRenderer) SetVolume(*Volume) error { f.volumes++; return nil }
func (f *fakeRenderer) SetTransferFunction(*TransferFunction, int) error {
	f.transfers++
	return nil
}
func (f *fakeRenderer) Render(RenderTarget, *FrameUniforms) error {
	f.renders++
	return f.renderErr
}
func (f *fakeRenderer) Close() error { f.closed = true; return nil }

// fakeSurface fails Acquire with ErrSurfaceLost for the first lostFrames
// calls, then succeeds.
type fakeSurface struct {
	lostFrames   int
	acquires     int
	reconfigures int
	presents     int
}

type fakeFrame struct {
	surface *fakeSurface
	target  *PixmapTarget
}

func (f *fakeFrame) Target() RenderTarget { return f.target }
func (f *fakeFrame) Present() error       { f.surface.presents++; return nil }

func (f *fakeSurface) Acquire() (SurfaceFrame, error) {
	f.acquires++
	if f.lostFrames > 0 {
		f.lostFrames--
		return nil, ErrSurfaceLost
	}
	return &fakeFrame{surface: f, target: NewPixmapTarget(16, 16)}, nil
}

func (f *fakeSurface) Reconfigure() error { f.reconfigures++; return nil }

func (f *fakeSurface) Size() (int, int) { return 16, 16 }

func newTestSession(t *testing.T, opts ...SessionOption) (*Session, *fakeRenderer) {
	t.Helper()
	r := &fakeRenderer{}
	s, err := NewSession(testVolume(t), lowOpacityTF(t), r, opts...)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s, r
}

func TestNewSessionBindsResources(t *testing.T) {
	_, r := newTestSession(t)
	if r.volumes != 1 {
		t.Errorf("SetVolume called %d times, want 1", r.volumes)
	}
	if r.transfers != 1 {
		t.Errorf("SetTransferFunction called %d times, want 1", r.transfers)
	}
}

func TestNewSessionValidation(t *testing.T) {
	vol := testVolume(t)
	tf := lowOpacityTF(t)
	r := &fakeRenderer{}
	if _, err := NewSession(nil, tf, r); err == nil {
		t.Error("nil volume accepted")
	}
	if _, err := NewSession(vol, nil, r); err == nil {
		t.Error("nil transfer function accepted")
	}
	if _, err := NewSession(vol, tf, nil); err == nil {
		t.Error("nil renderer accepted")
	}
}

func TestHandleInputMapsToCameraMutations(t *testing.T) {
	s, _ := newTestSession(t)
	cam := s.Camera()
	step := DefaultInputConfig(s.Volume())

	az := cam.Azimuth
	s.HandleInput(RotateRight)
	if got := cam.Azimuth - az; !near(got, step.RotateStep, 1e-6) {
		t.Errorf("RotateRight moved azimuth by %g, want %g", got, step.RotateStep)
	}
	s.HandleInput(RotateLeft)
	if !near(cam.Azimuth, az, 1e-6) {
		t.Errorf("RotateLeft did not undo RotateRight: azimuth %g, want %g", cam.Azimuth, az)
	}

	dist := cam.Distance
	s.HandleInput(ZoomIn)
	if got := dist - cam.Distance; !near(got, step.ZoomStep, 1e-5) {
		t.Errorf("ZoomIn moved distance by %g, want %g", got, step.ZoomStep)
	}
	el := cam.Elevation
	s.HandleInput(ZoomOut)
	if cam.Elevation != el {
		t.Error("zoom event changed elevation")
	}
}

func TestHandleInputCustomConfig(t *testing.T) {
	cfg := InputConfig{RotateStep: math32.Pi / 2, ZoomStep: 1}
	s, _ := newTestSession(t, WithInputConfig(cfg))
	az := s.Camera().Azimuth
	s.HandleInput(RotateRight)
	if got := s.Camera().Azimuth - az; !near(got, math32.Pi/2, 1e-6) {
		t.Errorf("custom rotate step applied %g, want %g", got, math32.Pi/2)
	}
}

func TestFrameBuildsUniformsAndRenders(t *testing.T) {
	s, r := newTestSession(t)
	if err := s.Frame(NewPixmapTarget(8, 8)); err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if r.renders != 1 {
		t.Errorf("Render called %d times, want 1", r.renders)
	}
}

func TestFrameToSurfaceRetriesOnceOnLoss(t *testing.T) {
	surface := &fakeSurface{lostFrames: 1}
	s, r := newTestSession(t, WithSurface(surface))

	if err := s.FrameToSurface(); err != nil {
		t.Fatalf("FrameToSurface failed after one loss: %v", err)
	}
	if surface.reconfigures != 1 {
		t.Errorf("Reconfigure called %d times, want 1", surface.reconfigures)
	}
	if surface.acquires != 2 {
		t.Errorf("Acquire called %d times, want 2", surface.acquires)
	}
	if surface.presents != 1 {
		t.Errorf("Present called %d times, want 1", surface.presents)
	}
	if r.renders != 1 {
		t.Errorf("Render called %d times, want 1 (the retried frame)", r.renders)
	}
}

func TestFrameToSurfaceSecondLossPropagates(t *testing.T) {
	surface := &fakeSurface{lostFrames: 2}
	s, _ := newTestSession(t, WithSurface(surface))

	err := s.FrameToSurface()
	if !errors.Is(err, ErrSurfaceLost) {
		t.Fatalf("FrameToSurface = %v, want ErrSurfaceLost", err)
	}
	if surface.reconfigures != 1 {
		t.Errorf("Reconfigure called %d times, want exactly 1 (no retry loop)", surface.reconfigures)
	}
	if surface.acquires != 2 {
		t.Errorf("Acquire called %d times, want 2", surface.acquires)
	}
}

func TestFrameToSurfaceRequiresSurface(t *testing.T) {
	s, _ := newTestSession(t)
	if err := s.FrameToSurface(); err == nil {
		t.Error("FrameToSurface without a surface succeeded")
	}
}

func TestRebindPublishesNewResources(t *testing.T) {
	s, r := newTestSession(t)

	if err := s.SetVolume(denseVolume(t)); err != nil {
		t.Fatalf("SetVolume failed: %v", err)
	}
	if r.volumes != 2 {
		t.Errorf("SetVolume called %d times, want 2", r.volumes)
	}
	if err := s.SetTransferFunction(opaqueRedTF(t)); err != nil {
		t.Fatalf("SetTransferFunction failed: %v", err)
	}
	if r.transfers != 2 {
		t.Errorf("SetTransferFunction called %d times, want 2", r.transfers)
	}

	if err := s.SetVolume(nil); err == nil {
		t.Error("nil volume accepted by SetVolume")
	}
	if err := s.SetTransferFunction(nil); err == nil {
		t.Error("nil transfer function accepted by SetTransferFunction")
	}
}

func TestCloseReleasesRenderer(t *testing.T) {
	s, r := newTestSession(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !r.closed {
		t.Error("renderer not closed")
	}
	if err := s.Frame(NewPixmapTarget(4, 4)); err != ErrClosed {
		t.Errorf("Frame after close = %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}
