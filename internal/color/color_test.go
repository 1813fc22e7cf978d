package color

import (
	"math"
	"testing"
)

func TestRGBToHSV(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		h, s, v float64
	}{
		{name: "black", r: 0, g: 0, b: 0, h: 0, s: 0, v: 0},
		{name: "white", r: 255, g: 255, b: 255, h: 0, s: 0, v: 100},
		{name: "red", r: 255, g: 0, b: 0, h: 0, s: 100, v: 100},
		{name: "green", r: 0, g: 255, b: 0, h: 120, s: 100, v: 100},
		{name: "blue", r: 0, g: 0, b: 255, h: 240, s: 100, v: 100},
		{name: "orange", r: 255, g: 128, b: 0, h: 30.12, s: 100, v: 100},
		{name: "mid grey", r: 128, g: 128, b: 128, h: 0, s: 0, v: 50.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, v := RGBToHSV(tt.r, tt.g, tt.b)
			if !closeTo(h, tt.h, 0.1) || !closeTo(s, tt.s, 0.1) || !closeTo(v, tt.v, 0.1) {
				t.Errorf("RGBToHSV(%d,%d,%d) = (%.2f,%.2f,%.2f), want (%.2f,%.2f,%.2f)",
					tt.r, tt.g, tt.b, h, s, v, tt.h, tt.s, tt.v)
			}
		})
	}
}

func TestHSVToRGB(t *testing.T) {
	tests := []struct {
		name    string
		h, s, v float64
		r, g, b uint8
	}{
		{name: "red", h: 0, s: 100, v: 100, r: 255, g: 0, b: 0},
		{name: "green", h: 120, s: 100, v: 100, r: 0, g: 255, b: 0},
		{name: "blue", h: 240, s: 100, v: 100, r: 0, g: 0, b: 255},
		{name: "white", h: 0, s: 0, v: 100, r: 255, g: 255, b: 255},
		{name: "black", h: 0, s: 0, v: 0, r: 0, g: 0, b: 0},
		{name: "hue wraps", h: 360, s: 100, v: 100, r: 255, g: 0, b: 0},
		{name: "negative hue wraps", h: -120, s: 100, v: 100, r: 0, g: 0, b: 255},
		{name: "saturation clamps", h: 0, s: 150, v: 100, r: 255, g: 0, b: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := HSVToRGB(tt.h, tt.s, tt.v)
			if r != tt.r || g != tt.g || b != tt.b {
				t.Errorf("HSVToRGB(%.0f,%.0f,%.0f) = (%d,%d,%d), want (%d,%d,%d)",
					tt.h, tt.s, tt.v, r, g, b, tt.r, tt.g, tt.b)
			}
		})
	}
}

// TestRoundTrip checks that RGB→HSV→RGB is stable within rounding error.
func TestRoundTrip(t *testing.T) {
	colours := []struct{ r, g, b uint8 }{
		{255, 128, 0},
		{10, 200, 90},
		{1, 1, 1},
		{255, 255, 255},
		{0, 0, 0},
	}

	for _, c := range colours {
		h, s, v := RGBToHSV(c.r, c.g, c.b)
		r, g, b := HSVToRGB(h, s, v)
		if absDiff(r, c.r) > 1 || absDiff(g, c.g) > 1 || absDiff(b, c.b) > 1 {
			t.Errorf("round trip (%d,%d,%d) -> (%d,%d,%d)", c.r, c.g, c.b, r, g, b)
		}
	}
}

func TestHexToRGB(t *testing.T) {
	tests := []struct {
		name    string
		hex     string
		r, g, b uint8
		wantErr bool
	}{
		{name: "with hash", hex: "#FF8000", r: 255, g: 128, b: 0},
		{name: "without hash", hex: "00ff00", r: 0, g: 255, b: 0},
		{name: "too short", hex: "#FFF", wantErr: true},
		{name: "not hex", hex: "#GGGGGG", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, err := HexToRGB(tt.hex)
			if tt.wantErr {
				if err == nil {
					t.Errorf("HexToRGB(%q) expected error", tt.hex)
				}
				return
			}
			if err != nil {
				t.Fatalf("HexToRGB(%q) error = %v", tt.hex, err)
			}
			if r != tt.r || g != tt.g || b != tt.b {
				t.Errorf("HexToRGB(%q) = (%d,%d,%d), want (%d,%d,%d)", tt.hex, r, g, b, tt.r, tt.g, tt.b)
			}
		})
	}
}

func TestRGBToHex(t *testing.T) {
	if got := RGBToHex(255, 128, 0); got != "#FF8000" {
		t.Errorf("RGBToHex(255,128,0) = %q, want #FF8000", got)
	}
}

func closeTo(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
