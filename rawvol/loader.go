// Package rawvol loads scalar volumes from raw binary files. A dataset
// is a flat little-endian sample array plus a YAML descriptor naming its
// dimensions, voxel spacing, and sample format. Compressed data files
// (.gz, .zst) are decompressed transparently.
package rawvol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/volray"
)

// Sample formats accepted in a descriptor.
const (
	FormatUint8     = "uint8"
	FormatUint16LE  = "uint16le"
	FormatFloat32LE = "float32le"
)

// Descriptor describes a raw volume file. It is the YAML sidecar next to
// the data file.
type Descriptor struct {
	// Dims is the voxel count along X, Y, Z.
	Dims [3]int `yaml:"dims"`

	// Spacing is the physical voxel size along each axis, in world units.
	Spacing [3]float32 `yaml:"spacing"`

	// Format is the sample encoding: uint8, uint16le, or float32le.
	Format string `yaml:"format"`

	// Data is the path to the sample file, relative to the descriptor.
	// A .gz or .zst extension selects the matching decompressor.
	Data string `yaml:"data"`
}

// Validate checks the descriptor fields without touching the data file.
func (d *Descriptor) Validate() error {
	for i, n := range d.Dims {
		if n < 1 {
			return fmt.Errorf("rawvol: dims[%d] = %d, want at least 1", i, n)
		}
	}
	for i, s := range d.Spacing {
		if !(s > 0) {
			return fmt.Errorf("rawvol: spacing[%d] = %g, want positive", i, s)
		}
	}
	switch d.Format {
	case FormatUint8, FormatUint16LE, FormatFloat32LE:
	default:
		return fmt.Errorf("rawvol: unknown format %q", d.Format)
	}
	if d.Data == "" {
		return fmt.Errorf("rawvol: descriptor names no data file")
	}
	return nil
}

// SampleCount returns the number of scalar samples the data file must
// contain.
func (d *Descriptor) SampleCount() int {
	return d.Dims[0] * d.Dims[1] * d.Dims[2]
}

// bytesPerSample returns the encoded size of one sample.
func (d *Descriptor) bytesPerSample() int {
	switch d.Format {
	case FormatUint8:
		return 1
	case FormatUint16LE:
		return 2
	default:
		return 4
	}
}

// LoadDescriptor reads and validates a YAML descriptor.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rawvol: read descriptor: %w", err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("rawvol: parse descriptor %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Option tunes loading.
type Option func(*loadOptions)

type loadOptions struct {
	windowLo float64
	windowHi float64
	window   bool
}

// WithWindow rescales samples so the lo and hi quantiles of the raw
// value distribution map to 0 and 1, clamping outliers. Typical medical
// presets use (0.01, 0.99) to discard scanner noise at both tails.
func WithWindow(lo, hi float64) Option {
	return func(o *loadOptions) {
		o.windowLo = lo
		o.windowHi = hi
		o.window = true
	}
}

// Load reads the descriptor at path and its data file and returns the
// decoded volume. Integer formats normalize by their type range; float
// data normalizes by its observed range. WithWindow overrides both.
func Load(path string, opts ...Option) (*volray.Volume, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	desc, err := LoadDescriptor(path)
	if err != nil {
		return nil, err
	}

	dataPath := desc.Data
	if !filepath.IsAbs(dataPath) {
		dataPath = filepath.Join(filepath.Dir(path), dataPath)
	}
	raw, err := readAll(dataPath, desc.SampleCount()*desc.bytesPerSample())
	if err != nil {
		return nil, err
	}

	samples, err := decode(desc, raw)
	if err != nil {
		return nil, err
	}
	if o.window {
		windowSamples(samples, o.windowLo, o.windowHi)
	}

	vol, err := volray.NewVolume(samples, desc.Dims, desc.Spacing)
	if err != nil {
		return nil, err
	}
	volray.Logger().Info("volume loaded",
		"path", path,
		"dims", desc.Dims,
		"format", desc.Format)
	return vol, nil
}

// readAll opens the data file, stripping one layer of compression when
// the extension asks for it, and reads exactly want bytes.
func readAll(path string, want int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rawvol: open data: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("rawvol: gzip %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("rawvol: zstd %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	buf := make([]byte, want)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("rawvol: data file %s truncated: %w", path, err)
	}
	return buf, nil
}

// decode converts the packed sample bytes into float32 scalars.
// Integer samples divide by the type maximum; float samples rescale by
// their observed min and max so constant volumes map to zero.
func decode(desc *Descriptor, raw []byte) ([]float32, error) {
	n := desc.SampleCount()
	samples := make([]float32, n)

	switch desc.Format {
	case FormatUint8:
		for i, b := range raw {
			samples[i] = float32(b) / 255
		}
	case FormatUint16LE:
		for i := 0; i < n; i++ {
			samples[i] = float32(binary.LittleEndian.Uint16(raw[i*2:])) / 65535
		}
	case FormatFloat32LE:
		lo := float32(math.Inf(1))
		hi := float32(math.Inf(-1))
		for i := 0; i < n; i++ {
			v := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
			if v != v {
				return nil, fmt.Errorf("rawvol: sample %d is NaN", i)
			}
			samples[i] = v
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi > lo {
			scale := 1 / (hi - lo)
			for i := range samples {
				samples[i] = (samples[i] - lo) * scale
			}
		} else {
			for i := range samples {
				samples[i] = 0
			}
		}
	}
	return samples, nil
}

// windowSamples rescales in place so the lo and hi value quantiles map
// to 0 and 1, clamping everything outside.
func windowSamples(samples []float32, loQ, hiQ float64) {
	sorted := make([]float64, len(samples))
	for i, s := range samples {
		sorted[i] = float64(s)
	}
	sort.Float64s(sorted)
	lo := stat.Quantile(loQ, stat.Empirical, sorted, nil)
	hi := stat.Quantile(hiQ, stat.Empirical, sorted, nil)
	if hi-lo < 1e-9 {
		return
	}
	scale := float32(1 / (hi - lo))
	for i, s := range samples {
		v := (s - float32(lo)) * scale
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		samples[i] = v
	}
}
