package volray

// Surface is a presentable display surface provided by the host
// application (window system integration is outside the core). The
// session acquires a frame, renders into its target, and presents.
//
// Acquire may fail with ErrSurfaceLost after a resize or device reset;
// the session then calls Reconfigure and retries the same frame exactly
// once. Acquire must not block indefinitely: implementations time out and
// report the timeout as a lost surface.
type Surface interface {
	// Acquire returns the next presentable frame.
	Acquire() (SurfaceFrame, error)

	// Reconfigure re-creates the surface swapchain at its current size.
	// Called after Acquire or Present reports ErrSurfaceLost.
	Reconfigure() error

	// Size returns the current surface dimensions in pixels.
	Size() (width, height int)
}

// SurfaceFrame is one acquired swapchain image.
type SurfaceFrame interface {
	// Target returns the render target backed by this frame's image.
	Target() RenderTarget

	// Present submits the frame to the display. The frame is invalid
	// afterwards. Present may fail with ErrSurfaceLost.
	Present() error
}
