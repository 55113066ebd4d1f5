package volray

import (
	"fmt"
	"image"
	"image/png"
	"os"
)

// RenderTarget defines where a frame's output goes.
//
// Targets may support CPU access (Pixels), GPU access, or both. The
// software renderer requires Pixels; the GPU renderer reads back into
// Pixels when present and otherwise renders straight to the target's
// texture view (surface presentation).
type RenderTarget interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Pixels returns direct access to RGBA8 pixel data, 4 bytes per
	// pixel, row by row. Returns nil for GPU-only targets.
	Pixels() []byte

	// Stride returns the number of bytes per row.
	Stride() int
}

// PixmapTarget is a CPU-backed render target over *image.RGBA. It is the
// default target for headless rendering and tests.
type PixmapTarget struct {
	img *image.RGBA
}

// NewPixmapTarget creates a CPU-backed render target.
func NewPixmapTarget(width, height int) *PixmapTarget {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &PixmapTarget{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int { return t.img.Bounds().Dx() }

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int { return t.img.Bounds().Dy() }

// Pixels returns the underlying RGBA8 pixel data.
func (t *PixmapTarget) Pixels() []byte { return t.img.Pix }

// Stride returns the number of bytes per row.
func (t *PixmapTarget) Stride() int { return t.img.Stride }

// Image returns the underlying image without copying.
func (t *PixmapTarget) Image() *image.RGBA { return t.img }

// At returns the composited color at pixel (x, y).
func (t *PixmapTarget) At(x, y int) RGBA {
	i := t.img.PixOffset(x, y)
	p := t.img.Pix
	return RGBA{
		R: float32(p[i+0]) / 255,
		G: float32(p[i+1]) / 255,
		B: float32(p[i+2]) / 255,
		A: float32(p[i+3]) / 255,
	}
}

// SavePNG writes the target contents to a PNG file.
func (t *PixmapTarget) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("volray: create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, t.img); err != nil {
		return fmt.Errorf("volray: encode %s: %w", path, err)
	}
	return nil
}
