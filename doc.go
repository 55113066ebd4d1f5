// Package volray renders regular 3D scalar grids (CT-style volumetric
// datasets) by casting view rays through the volume and compositing
// color-mapped density into a 2D image.
//
// # Overview
//
// volray is a volumetric ray-casting renderer for the GoGPU ecosystem.
// A session owns an orbit camera, an immutable volume, and a transfer
// function that classifies scalar values into color and opacity. Each
// frame the camera state is packed into uniforms and dispatched through
// a renderer that marches every view ray front to back through the
// volume.
//
// # Quick Start
//
//	import "github.com/gogpu/volray"
//
//	vol, err := volray.NewVolume(samples, [3]int{256, 256, 109}, [3]float32{1, 1, 2.5})
//	tf := volray.GrayscaleRamp()
//
//	sess, err := volray.NewSession(vol, tf, volray.NewSoftwareRenderer())
//	target := volray.NewPixmapTarget(800, 600)
//	err = sess.Frame(target)
//	_ = target.SavePNG("out.png")
//
// # Renderers
//
// Two renderers implement the same marching and compositing contract:
//
//   - SoftwareRenderer: pure Go, runs everywhere, used as the reference
//     implementation and for headless rendering.
//   - gpu.NewRenderer: hardware ray casting via gogpu/wgpu. The volume is
//     uploaded as a 3D texture, the transfer function as a lookup-table
//     texture, and a fullscreen-triangle fragment shader performs the
//     march.
//
// # Architecture
//
// The library is organized into:
//   - Public API: Session, Camera, Volume, TransferFunction, FrameUniforms
//   - Renderers: software (this package), gpu (volray/gpu)
//   - Loading: rawvol (raw scalar files with YAML descriptors)
//
// # Coordinate System
//
// The volume is axis-aligned and centered at the world origin; its extent
// is dimensions * spacing. The camera orbits the volume center with a
// fixed +Y up vector. Angles are in radians.
package volray

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 0
)
