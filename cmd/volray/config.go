package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/volray"
)

// renderConfig is the optional YAML render configuration. Every field
// maps to a command-line flag; flags given explicitly override the file.
type renderConfig struct {
	Data         string   `yaml:"data"`
	Out          string   `yaml:"out"`
	Width        int      `yaml:"width"`
	Height       int      `yaml:"height"`
	Frames       int      `yaml:"frames"`
	OrbitDegrees *float64 `yaml:"orbit_degrees"`
	GPU          *bool    `yaml:"gpu"`
	Steps        int      `yaml:"steps"`
	Preset       string   `yaml:"preset"`
	Jitter       *bool    `yaml:"jitter"`
	Scale        int      `yaml:"scale"`
	Window       *bool    `yaml:"window"`

	// Background is the RGBA clear color in [0,1]. Nil keeps the
	// transparent default.
	Background *[4]float32 `yaml:"background"`
}

// Validate checks fields that were actually set. Zero values mean "not
// configured" and are skipped.
func (c *renderConfig) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("config: invalid size %dx%d", c.Width, c.Height)
	}
	if c.Frames < 0 {
		return fmt.Errorf("config: invalid frames %d", c.Frames)
	}
	if c.Scale < 0 {
		return fmt.Errorf("config: invalid scale %d", c.Scale)
	}
	if c.Background != nil {
		for _, v := range *c.Background {
			if v < 0 || v > 1 {
				return fmt.Errorf("config: background component %g outside [0,1]", v)
			}
		}
	}
	return nil
}

// applyConfig copies configured values into the flag variables, skipping
// any flag the user set on the command line. Returns the configured
// background color, if any.
func applyConfig(cfg *renderConfig, set map[string]bool,
	data, out *string, width, height, frames *int, orbit *float64,
	gpu *bool, steps *int, preset *string, jitter *bool, scale *int, window *bool) *volray.RGBA {

	if !set["data"] && cfg.Data != "" {
		*data = cfg.Data
	}
	if !set["out"] && cfg.Out != "" {
		*out = cfg.Out
	}
	if !set["width"] && cfg.Width > 0 {
		*width = cfg.Width
	}
	if !set["height"] && cfg.Height > 0 {
		*height = cfg.Height
	}
	if !set["frames"] && cfg.Frames > 0 {
		*frames = cfg.Frames
	}
	if !set["orbit"] && cfg.OrbitDegrees != nil {
		*orbit = *cfg.OrbitDegrees
	}
	if !set["gpu"] && cfg.GPU != nil {
		*gpu = *cfg.GPU
	}
	if !set["steps"] && cfg.Steps > 0 {
		*steps = cfg.Steps
	}
	if !set["preset"] && cfg.Preset != "" {
		*preset = cfg.Preset
	}
	if !set["jitter"] && cfg.Jitter != nil {
		*jitter = *cfg.Jitter
	}
	if !set["scale"] && cfg.Scale > 0 {
		*scale = cfg.Scale
	}
	if !set["window"] && cfg.Window != nil {
		*window = *cfg.Window
	}

	if cfg.Background == nil {
		return nil
	}
	b := *cfg.Background
	return &volray.RGBA{R: b[0], G: b[1], B: b[2], A: b[3]}
}

// loadConfig reads and validates a YAML render configuration.
func loadConfig(path string) (*renderConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var cfg renderConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
