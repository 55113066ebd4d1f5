// Command volray renders volumetric datasets headlessly to PNG. With no
// dataset it renders a synthetic radial-falloff volume, which makes it a
// quick smoke test for both render paths.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chewxy/math32"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/volray"
	"github.com/gogpu/volray/gpu"
	"github.com/gogpu/volray/rawvol"
)

func main() {
	var (
		config  = flag.String("config", "", "render configuration (YAML); flags override its values")
		data    = flag.String("data", "", "volume descriptor (YAML); empty renders a synthetic dataset")
		out     = flag.String("out", "volray.png", "output PNG (frame index appended when -frames > 1)")
		width   = flag.Int("width", 800, "image width")
		height  = flag.Int("height", 600, "image height")
		frames  = flag.Int("frames", 1, "number of orbit frames to render")
		orbit   = flag.Float64("orbit", 5, "azimuth degrees per frame")
		useGPU  = flag.Bool("gpu", false, "render on the GPU (falls back to software)")
		steps   = flag.Int("steps", 0, "samples per bounding-box diagonal (0 = default)")
		preset  = flag.String("preset", "gray", "transfer function: gray, bone, or auto")
		jitter  = flag.Bool("jitter", false, "jitter ray starts to trade banding for noise")
		scale   = flag.Int("scale", 1, "supersampling factor (render larger, downscale)")
		window  = flag.Bool("window", false, "quantile-window the dataset values (1%..99%)")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	var background *volray.RGBA
	if *config != "" {
		cfg, err := loadConfig(*config)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		set := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		background = applyConfig(cfg, set,
			data, out, width, height, frames, orbit,
			useGPU, steps, preset, jitter, scale, window)
	}

	if *verbose {
		volray.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	vol, err := loadVolume(*data, *window)
	if err != nil {
		log.Fatalf("Failed to load volume: %v", err)
	}

	tf, err := pickTransferFunction(*preset, vol)
	if err != nil {
		log.Fatalf("Failed to build transfer function: %v", err)
	}

	var renderer volray.Renderer
	if *useGPU {
		renderer = gpu.NewRendererWithFallback()
	} else {
		renderer = volray.NewSoftwareRenderer()
	}

	opts := []volray.SessionOption{volray.WithJitter(*jitter)}
	if *steps > 0 {
		opts = append(opts, volray.WithStepSize(vol.Diagonal()/float32(*steps)))
	}
	if background != nil {
		opts = append(opts, volray.WithBackground(*background))
	}

	session, err := volray.NewSession(vol, tf, renderer, opts...)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer session.Close()

	if *scale < 1 {
		*scale = 1
	}
	target := volray.NewPixmapTarget(*width**scale, *height**scale)
	orbitStep := float32(*orbit) * math32.Pi / 180

	for f := 0; f < *frames; f++ {
		if f > 0 {
			session.Camera().Rotate(orbitStep, 0)
		}
		if err := session.Frame(target); err != nil {
			log.Fatalf("Failed to render frame %d: %v", f, err)
		}

		path := framePath(*out, f, *frames)
		if err := save(target, path, *width, *height, *scale); err != nil {
			log.Fatalf("Failed to save %s: %v", path, err)
		}
		log.Printf("Rendered %s (%dx%d)", path, *width, *height)
	}
}

// loadVolume reads the dataset, or synthesizes a demo volume when no
// path is given.
func loadVolume(path string, window bool) (*volray.Volume, error) {
	if path == "" {
		return synthVolume()
	}
	var opts []rawvol.Option
	if window {
		opts = append(opts, rawvol.WithWindow(0.01, 0.99))
	}
	return rawvol.Load(path, opts...)
}

// synthVolume builds a 64-cubed radial falloff: dense at the center,
// empty at the corners. It exercises the full pipeline without input.
func synthVolume() (*volray.Volume, error) {
	const n = 64
	samples := make([]float32, n*n*n)
	c := float32(n-1) / 2
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				dx := (float32(x) - c) / c
				dy := (float32(y) - c) / c
				dz := (float32(z) - c) / c
				d := math32.Sqrt(dx*dx + dy*dy + dz*dz)
				v := 1 - d
				if v < 0 {
					v = 0
				}
				samples[x+y*n+z*n*n] = v
			}
		}
	}
	return volray.NewVolume(samples, [3]int{n, n, n}, [3]float32{1, 1, 1})
}

func pickTransferFunction(preset string, vol *volray.Volume) (*volray.TransferFunction, error) {
	switch strings.ToLower(preset) {
	case "gray":
		return volray.GrayscaleRamp(), nil
	case "bone":
		return volray.BoneCT(), nil
	case "auto":
		return volray.PresetFromVolume(vol, 0.05, 0.95)
	default:
		return nil, fmt.Errorf("unknown preset %q (want gray, bone, or auto)", preset)
	}
}

// framePath appends the frame index before the extension for animations.
func framePath(out string, frame, frames int) string {
	if frames <= 1 {
		return out
	}
	ext := filepath.Ext(out)
	return fmt.Sprintf("%s_%03d%s", strings.TrimSuffix(out, ext), frame, ext)
}

// save writes the target to disk, downscaling supersampled renders with
// a Catmull-Rom kernel.
func save(target *volray.PixmapTarget, path string, w, h, scale int) error {
	if scale == 1 {
		return target.SavePNG(path)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), target.Image(), target.Image().Bounds(), xdraw.Src, nil)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, dst)
}
