package volray

// Sampling defaults.
const (
	// DefaultStepsPerDiagonal sets the default step size to
	// diagonal / 256: at most 256 samples along the longest ray.
	DefaultStepsPerDiagonal = 256

	// DefaultSaturation is the accumulated-alpha threshold at which a
	// ray terminates early. Beyond 0.98 further samples contribute less
	// than one 8-bit quantization step.
	DefaultSaturation = 0.98
)

// RenderOptions are the tunable sampling and output parameters of a
// session. The zero value of a field selects its default.
type RenderOptions struct {
	// StepSize is the marching increment in world units. Smaller steps
	// trade performance for accuracy and reduce banding. Defaults to
	// volume diagonal / DefaultStepsPerDiagonal.
	StepSize float32

	// Saturation is the early-termination alpha threshold.
	Saturation float32

	// MaxSteps bounds the per-ray sample count. Defaults to the number
	// of steps covering the bounding-box diagonal.
	MaxSteps int

	// LUTResolution is the texel count of the baked transfer-function
	// table. Defaults to DefaultLUTResolution.
	LUTResolution int

	// Background is the clear color written for rays that miss the
	// volume. Defaults to Transparent.
	Background RGBA

	// Jitter offsets each ray's march start by a per-pixel fraction of
	// the step size to trade banding for noise. Off by default; when
	// enabled, renders are no longer bit-reproducible across renderers.
	Jitter bool
}

// withDefaults fills zero-valued fields.
func (o RenderOptions) withDefaults() RenderOptions {
	if o.Saturation <= 0 || o.Saturation > 1 {
		o.Saturation = DefaultSaturation
	}
	if o.LUTResolution < 2 {
		o.LUTResolution = DefaultLUTResolution
	}
	return o
}

// SessionOption configures a Session during creation.
type SessionOption func(*Session)

// WithStepSize sets the marching step size in world units.
func WithStepSize(step float32) SessionOption {
	return func(s *Session) { s.opts.StepSize = step }
}

// WithSaturation sets the early-termination alpha threshold.
func WithSaturation(threshold float32) SessionOption {
	return func(s *Session) { s.opts.Saturation = threshold }
}

// WithMaxSteps bounds the per-ray sample count.
func WithMaxSteps(n int) SessionOption {
	return func(s *Session) { s.opts.MaxSteps = n }
}

// WithBackground sets the clear color for rays that miss the volume.
func WithBackground(c RGBA) SessionOption {
	return func(s *Session) { s.opts.Background = c }
}

// WithLUTResolution sets the baked lookup-table texel count.
func WithLUTResolution(res int) SessionOption {
	return func(s *Session) { s.opts.LUTResolution = res }
}

// WithJitter enables per-pixel march-start jittering. Only the software
// renderer applies it.
func WithJitter(enabled bool) SessionOption {
	return func(s *Session) { s.opts.Jitter = enabled }
}

// WithSurface attaches a presentation surface to the session. Without a
// surface the session renders offscreen via Session.Frame.
func WithSurface(surf Surface) SessionOption {
	return func(s *Session) { s.surface = surf }
}

// WithInputConfig sets the per-event camera deltas applied by
// Session.HandleInput.
func WithInputConfig(cfg InputConfig) SessionOption {
	return func(s *Session) { s.input = cfg }
}
