package volray

// RGB is a color with float32 channels in [0, 1].
type RGB struct {
	R, G, B float32
}

// RGBA is a color with an alpha channel, float32 channels in [0, 1].
// Used for the background clear color and composited ray output.
type RGBA struct {
	R, G, B, A float32
}

// Common colors.
var (
	Black       = RGBA{0, 0, 0, 1}
	White       = RGBA{1, 1, 1, 1}
	Transparent = RGBA{0, 0, 0, 0}
)

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// toByte converts a [0, 1] channel to an 8-bit value with rounding.
func toByte(x float32) byte {
	return byte(clamp01(x)*255 + 0.5)
}
