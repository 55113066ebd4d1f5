package volray

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chewxy/math32"
)

func rampPoints() []ControlPoint {
	return []ControlPoint{
		{Position: 0, Color: RGB{0, 0, 0}, Opacity: 0},
		{Position: 0.5, Color: RGB{1, 0, 0}, Opacity: 0.5},
		{Position: 1, Color: RGB{1, 1, 1}, Opacity: 1},
	}
}

func TestNewTransferFunction(t *testing.T) {
	tests := []struct {
		name    string
		points  []ControlPoint
		wantErr bool
	}{
		{"valid ramp", rampPoints(), false},
		{"two endpoints", []ControlPoint{
			{Position: 0}, {Position: 1, Opacity: 1},
		}, false},
		{"single point", []ControlPoint{{Position: 0}}, true},
		{"empty", nil, true},
		{"missing start", []ControlPoint{
			{Position: 0.1}, {Position: 1},
		}, true},
		{"missing end", []ControlPoint{
			{Position: 0}, {Position: 0.9},
		}, true},
		{"duplicate positions", []ControlPoint{
			{Position: 0}, {Position: 0.5}, {Position: 0.5}, {Position: 1},
		}, true},
		{"decreasing positions", []ControlPoint{
			{Position: 0}, {Position: 0.7}, {Position: 0.3}, {Position: 1},
		}, true},
		{"NaN position", []ControlPoint{
			{Position: 0}, {Position: math32.NaN()}, {Position: 1},
		}, true},
		{"opacity above one", []ControlPoint{
			{Position: 0}, {Position: 1, Opacity: 1.5},
		}, true},
		{"negative opacity", []ControlPoint{
			{Position: 0, Opacity: -0.1}, {Position: 1},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransferFunction(tt.points)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewTransferFunction succeeded, want error")
				}
				var tfErr *InvalidTransferFunctionError
				if !errors.As(err, &tfErr) {
					t.Errorf("error %v is not a *InvalidTransferFunctionError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTransferFunction failed: %v", err)
			}
		})
	}
}

func TestBakeDeterministic(t *testing.T) {
	tf1, err := NewTransferFunction(rampPoints())
	if err != nil {
		t.Fatalf("NewTransferFunction failed: %v", err)
	}
	tf2, err := NewTransferFunction(rampPoints())
	if err != nil {
		t.Fatalf("NewTransferFunction failed: %v", err)
	}

	a := tf1.Bake(256)
	b := tf1.Bake(256)
	c := tf2.Bake(256)
	if !bytes.Equal(a, b) {
		t.Error("rebaking the same transfer function produced different bytes")
	}
	if !bytes.Equal(a, c) {
		t.Error("identical control points produced different LUTs")
	}
	if len(a) != 256*4 {
		t.Errorf("LUT length = %d, want %d", len(a), 256*4)
	}
}

func TestBakeEndpoints(t *testing.T) {
	tf, err := NewTransferFunction(rampPoints())
	if err != nil {
		t.Fatalf("NewTransferFunction failed: %v", err)
	}
	lut := tf.Bake(256)

	// First texel classifies position 0, last texel position 1.
	if lut[0] != 0 || lut[3] != 0 {
		t.Errorf("texel 0 = %v, want transparent black", lut[0:4])
	}
	last := lut[255*4:]
	if last[0] != 255 || last[1] != 255 || last[2] != 255 || last[3] != 255 {
		t.Errorf("texel 255 = %v, want opaque white", last)
	}
}

func TestEvaluate(t *testing.T) {
	tf, err := NewTransferFunction(rampPoints())
	if err != nil {
		t.Fatalf("NewTransferFunction failed: %v", err)
	}
	tests := []struct {
		name     string
		pos      float32
		wantC    RGB
		wantA    float32
	}{
		{"start", 0, RGB{0, 0, 0}, 0},
		{"quarter", 0.25, RGB{0.5, 0, 0}, 0.25},
		{"middle point", 0.5, RGB{1, 0, 0}, 0.5},
		{"three quarters", 0.75, RGB{1, 0.5, 0.5}, 0.75},
		{"end", 1, RGB{1, 1, 1}, 1},
		{"clamp below", -1, RGB{0, 0, 0}, 0},
		{"clamp above", 2, RGB{1, 1, 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, a := tf.Evaluate(tt.pos)
			if !near(c.R, tt.wantC.R, 1e-5) || !near(c.G, tt.wantC.G, 1e-5) ||
				!near(c.B, tt.wantC.B, 1e-5) || !near(a, tt.wantA, 1e-5) {
				t.Errorf("Evaluate(%g) = %v, %g; want %v, %g", tt.pos, c, a, tt.wantC, tt.wantA)
			}
		})
	}
}

func TestSampleLUT(t *testing.T) {
	// Two-texel LUT: transparent black, opaque white.
	lut := []byte{0, 0, 0, 0, 255, 255, 255, 255}
	tests := []struct {
		name string
		pos  float32
		want RGBA
	}{
		{"left texel center", 0.25, RGBA{0, 0, 0, 0}},
		{"right texel center", 0.75, RGBA{1, 1, 1, 1}},
		{"midpoint", 0.5, RGBA{0.5, 0.5, 0.5, 0.5}},
		{"clamped low", -1, RGBA{0, 0, 0, 0}},
		{"clamped high", 2, RGBA{1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SampleLUT(lut, tt.pos)
			if !near(got.R, tt.want.R, 1e-5) || !near(got.A, tt.want.A, 1e-5) {
				t.Errorf("SampleLUT(%g) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestPresetFromVolume(t *testing.T) {
	// Bimodal data: mostly low values with a high cluster.
	samples := make([]float32, 1000)
	for i := 0; i < 900; i++ {
		samples[i] = 0.1
	}
	for i := 900; i < 1000; i++ {
		samples[i] = 0.9
	}
	vol, err := NewVolume(samples, [3]int{10, 10, 10}, [3]float32{1, 1, 1})
	if err != nil {
		t.Fatalf("NewVolume failed: %v", err)
	}

	tf, err := PresetFromVolume(vol, 0.05, 0.95)
	if err != nil {
		t.Fatalf("PresetFromVolume failed: %v", err)
	}
	// Background values must stay transparent, the dense cluster opaque.
	_, lowA := tf.Evaluate(0.05)
	_, highA := tf.Evaluate(0.95)
	if lowA > 0.05 {
		t.Errorf("low-quantile opacity = %g, want near 0", lowA)
	}
	if highA < 0.8 {
		t.Errorf("high-quantile opacity = %g, want near opaque", highA)
	}
}

func TestPresetFromUniformVolume(t *testing.T) {
	vol, err := NewVolume(uniformSamples(64, 0.5), [3]int{4, 4, 4}, [3]float32{1, 1, 1})
	if err != nil {
		t.Fatalf("NewVolume failed: %v", err)
	}
	tf, err := PresetFromVolume(vol, 0.01, 0.99)
	if err != nil {
		t.Fatalf("PresetFromVolume failed: %v", err)
	}
	if tf == nil {
		t.Fatal("PresetFromVolume returned nil for degenerate distribution")
	}
}
