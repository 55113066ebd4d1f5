package volray

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// InputEvent is a discrete camera input from the host's input
// collaborator. Each event maps to exactly one camera mutation; no other
// event types affect the core.
type InputEvent int

const (
	// RotateLeft decreases the camera azimuth.
	RotateLeft InputEvent = iota

	// RotateRight increases the camera azimuth.
	RotateRight

	// ZoomIn decreases the orbit distance.
	ZoomIn

	// ZoomOut increases the orbit distance.
	ZoomOut
)

// InputConfig sets the camera delta applied per input event.
type InputConfig struct {
	// RotateStep is the azimuth change per rotate event, in radians.
	RotateStep float32

	// ZoomStep is the distance change per zoom event, in world units.
	ZoomStep float32
}

// DefaultInputConfig returns per-event deltas scaled to a volume: 5
// degrees per rotate, 2% of the bounding diagonal per zoom.
func DefaultInputConfig(vol *Volume) InputConfig {
	return InputConfig{
		RotateStep: 5 * math32.Pi / 180,
		ZoomStep:   0.02 * vol.Diagonal(),
	}
}

// Session drives the per-frame control flow: input deltas mutate the
// camera, frame uniforms are repacked, the renderer is dispatched against
// the current volume and transfer-function resources, and the result is
// presented.
//
// A session is driven by a single goroutine. The renderer may execute
// asynchronously on the device; Close waits for in-flight work before
// releasing resources.
type Session struct {
	cam      *Camera
	vol      *Volume
	tf       *TransferFunction
	renderer Renderer
	surface  Surface
	opts     RenderOptions
	input    InputConfig
	closed   bool
}

// NewSession creates a session over a volume, transfer function, and
// renderer. The camera is framed to the volume; options tune sampling and
// presentation.
func NewSession(vol *Volume, tf *TransferFunction, renderer Renderer, opts ...SessionOption) (*Session, error) {
	if vol == nil {
		return nil, errors.New("volray: session requires a volume")
	}
	if tf == nil {
		return nil, errors.New("volray: session requires a transfer function")
	}
	if renderer == nil {
		return nil, errors.New("volray: session requires a renderer")
	}

	s := &Session{
		vol:      vol,
		tf:       tf,
		renderer: renderer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.opts = s.opts.withDefaults()
	s.cam = NewCamera(vol)
	if s.input == (InputConfig{}) {
		s.input = DefaultInputConfig(vol)
	}

	if err := renderer.SetVolume(vol); err != nil {
		return nil, fmt.Errorf("volray: bind volume: %w", err)
	}
	if err := renderer.SetTransferFunction(tf, s.opts.LUTResolution); err != nil {
		return nil, fmt.Errorf("volray: bind transfer function: %w", err)
	}
	return s, nil
}

// Camera returns the session's orbit camera for direct manipulation.
func (s *Session) Camera() *Camera { return s.cam }

// Volume returns the currently bound volume.
func (s *Session) Volume() *Volume { return s.vol }

// Options returns the effective render options.
func (s *Session) Options() RenderOptions { return s.opts }

// HandleInput applies one input event as one camera mutation.
// Unknown events are ignored.
func (s *Session) HandleInput(ev InputEvent) {
	switch ev {
	case RotateLeft:
		s.cam.Rotate(-s.input.RotateStep, 0)
	case RotateRight:
		s.cam.Rotate(s.input.RotateStep, 0)
	case ZoomIn:
		s.cam.Zoom(-s.input.ZoomStep)
	case ZoomOut:
		s.cam.Zoom(s.input.ZoomStep)
	}
}

// SetVolume replaces the session's volume. The new volume is published to
// the renderer before the next frame; the old volume remains valid for
// any frame still in flight (the renderer defers destruction of replaced
// device resources until their last referencing frame completes).
func (s *Session) SetVolume(vol *Volume) error {
	if s.closed {
		return ErrClosed
	}
	if vol == nil {
		return errors.New("volray: nil volume")
	}
	if err := s.renderer.SetVolume(vol); err != nil {
		return fmt.Errorf("volray: rebind volume: %w", err)
	}
	s.vol = vol
	return nil
}

// SetTransferFunction replaces the session's transfer function and
// rebakes the lookup table.
func (s *Session) SetTransferFunction(tf *TransferFunction) error {
	if s.closed {
		return ErrClosed
	}
	if tf == nil {
		return errors.New("volray: nil transfer function")
	}
	if err := s.renderer.SetTransferFunction(tf, s.opts.LUTResolution); err != nil {
		return fmt.Errorf("volray: rebind transfer function: %w", err)
	}
	s.tf = tf
	return nil
}

// Frame renders one frame offscreen into the target: camera state is
// read, uniforms repacked, and the renderer dispatched, in strict
// sequence.
func (s *Session) Frame(target RenderTarget) error {
	if s.closed {
		return ErrClosed
	}
	aspect := float32(target.Width()) / float32(target.Height())
	u := BuildFrameUniforms(s.cam, s.vol, s.opts, aspect)
	return s.renderer.Render(target, &u)
}

// FrameToSurface renders one frame to the attached surface and presents
// it. A lost surface is reconfigured and the same frame retried exactly
// once; a second loss propagates as ErrSurfaceLost.
func (s *Session) FrameToSurface() error {
	if s.closed {
		return ErrClosed
	}
	if s.surface == nil {
		return errors.New("volray: session has no surface")
	}

	err := s.presentOnce()
	if !errors.Is(err, ErrSurfaceLost) {
		return err
	}

	Logger().Warn("surface lost, reconfiguring and retrying frame")
	if rerr := s.surface.Reconfigure(); rerr != nil {
		return fmt.Errorf("volray: reconfigure surface: %w", rerr)
	}
	return s.presentOnce()
}

func (s *Session) presentOnce() error {
	frame, err := s.surface.Acquire()
	if err != nil {
		return err
	}
	w, h := s.surface.Size()
	aspect := float32(w) / float32(h)
	u := BuildFrameUniforms(s.cam, s.vol, s.opts, aspect)
	if err := s.renderer.Render(frame.Target(), &u); err != nil {
		return err
	}
	return frame.Present()
}

// Close releases the session's renderer. All fatal errors propagate to
// the driving loop, which is expected to call Close so device resources
// are released rather than leaked mid-session.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.renderer.Close()
}
