package volray

import (
	"errors"
	"fmt"
)

// ErrSurfaceLost indicates the display surface became invalid (typically
// after a resize or a device reset) and must be reconfigured. The session
// reconfigures the surface and retries the current frame's submission once;
// a second consecutive loss propagates to the caller.
var ErrSurfaceLost = errors.New("volray: surface lost")

// ErrStaleBinding indicates a frame was dispatched while the pipeline's
// bind groups still referenced a replaced volume or lookup-table resource.
// This is a programming error in the driving loop, not a user-facing
// condition: resources must be rebound after a reload before the next
// dispatch.
var ErrStaleBinding = errors.New("volray: stale resource binding")

// ErrGPUUnavailable indicates no usable GPU backend could be initialized.
// Callers should fall back to the software renderer.
var ErrGPUUnavailable = errors.New("volray: no GPU backend available")

// ErrClosed indicates an operation was attempted on a closed session or
// renderer.
var ErrClosed = errors.New("volray: closed")

// VolumeLoadError reports a volume whose shape contract is violated:
// the product of the dimensions does not match the sample count, or a
// dimension or spacing component is not positive. Load failures are fatal
// at startup; no GPU resource is allocated for a rejected volume.
type VolumeLoadError struct {
	Dims    [3]int
	Spacing [3]float32
	Samples int
	Reason  string
}

func (e *VolumeLoadError) Error() string {
	return fmt.Sprintf("volray: invalid volume %dx%dx%d (spacing %g,%g,%g, %d samples): %s",
		e.Dims[0], e.Dims[1], e.Dims[2],
		e.Spacing[0], e.Spacing[1], e.Spacing[2],
		e.Samples, e.Reason)
}

// InvalidTransferFunctionError reports malformed transfer-function control
// points. The point index is -1 when the violation concerns the sequence
// as a whole (missing endpoints, too few points).
type InvalidTransferFunctionError struct {
	Index  int
	Reason string
}

func (e *InvalidTransferFunctionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("volray: invalid transfer function: %s", e.Reason)
	}
	return fmt.Sprintf("volray: invalid transfer function: control point %d: %s", e.Index, e.Reason)
}
