package volray

// Renderer executes the ray-cast pipeline: it holds GPU-side (or
// CPU-side) handles to the current volume and transfer-function
// resources and turns per-frame uniforms into a composited image.
//
// Implementations:
//   - SoftwareRenderer (this package): pure Go reference path.
//   - gpu.NewRenderer (volray/gpu): hardware path via gogpu/wgpu.
//
// A renderer is driven by a single goroutine. SetVolume and
// SetTransferFunction publish a new immutable resource version; the
// renderer must repoint its bindings before the next Render so a dispatch
// never reaches the device with mismatched resources.
type Renderer interface {
	// SetVolume uploads or repoints the sampled volume resource.
	SetVolume(vol *Volume) error

	// SetTransferFunction rebakes and repoints the lookup-table
	// resource at the given resolution.
	SetTransferFunction(tf *TransferFunction, lutResolution int) error

	// Render executes the per-pixel marching and compositing algorithm
	// for one frame into the target.
	Render(target RenderTarget, u *FrameUniforms) error

	// Close releases the renderer's resources. Close blocks until
	// in-flight device work referencing them has completed.
	Close() error
}

// RenderStats reports per-frame work counters. The software renderer
// fills these exactly; GPU renderers report only what the device exposes.
type RenderStats struct {
	// Rays is the number of rays cast (one per pixel).
	Rays int

	// Misses is the number of rays that did not intersect the volume
	// bounding box.
	Misses int

	// VolumeSamples is the total number of volume texture samples taken.
	// A frame whose every ray misses the box performs zero samples.
	VolumeSamples int

	// EarlyTerminated is the number of rays that reached the saturation
	// threshold before exiting the box.
	EarlyTerminated int
}

// StatsProvider is implemented by renderers that expose per-frame work
// counters.
type StatsProvider interface {
	Stats() RenderStats
}
