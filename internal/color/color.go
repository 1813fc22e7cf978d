// Package color provides RGB/HSV conversions for LED bulb control.
//
// Conventions throughout: R, G, B are 8-bit channel values (0-255);
// hue is degrees (0-360), saturation and value are percentages (0-100).
// All functions are pure and safe for concurrent use.
package color

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	maxChannel  = 255
	maxPercent  = 100
	hueFullTurn = 360
	hueSector   = 60
)

// HSVToRGB converts a hue/saturation/value triple to 8-bit RGB channels.
//
// Hue wraps modulo 360; saturation and value are clamped to [0,100].
func HSVToRGB(h, s, v float64) (r, g, b uint8) {
	h = math.Mod(h, hueFullTurn)
	if h < 0 {
		h += hueFullTurn
	}
	s = clampPercent(s) / maxPercent
	v = clampPercent(v) / maxPercent

	if s == 0 {
		// Greyscale
		val := uint8(math.Round(v * maxChannel))
		return val, val, val
	}

	sector := h / hueSector
	i := int(sector)
	f := sector - float64(i)

	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var rf, gf, bf float64
	switch i {
	case 0:
		rf, gf, bf = v, t, p
	case 1:
		rf, gf, bf = q, v, p
	case 2:
		rf, gf, bf = p, v, t
	case 3:
		rf, gf, bf = p, q, v
	case 4:
		rf, gf, bf = t, p, v
	default: // sector 5
		rf, gf, bf = v, p, q
	}

	return uint8(math.Round(rf * maxChannel)),
		uint8(math.Round(gf * maxChannel)),
		uint8(math.Round(bf * maxChannel))
}

// RGBToHSV converts 8-bit RGB channels to hue (0-360), saturation and
// value (both 0-100).
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	rf := float64(r) / maxChannel
	gf := float64(g) / maxChannel
	bf := float64(b) / maxChannel

	maxVal := math.Max(rf, math.Max(gf, bf))
	minVal := math.Min(rf, math.Min(gf, bf))
	delta := maxVal - minVal

	v = maxVal * maxPercent

	if maxVal == 0 {
		s = 0
	} else {
		s = (delta / maxVal) * maxPercent
	}

	switch {
	case delta == 0:
		h = 0
	case maxVal == rf:
		h = hueSector * math.Mod((gf-bf)/delta, 6)
		if h < 0 {
			h += hueFullTurn
		}
	case maxVal == gf:
		h = hueSector * ((bf-rf)/delta + 2)
	default: // maxVal == bf
		h = hueSector * ((rf-gf)/delta + 4)
	}

	return h, s, v
}

// HexToRGB parses a "#RRGGBB" or "RRGGBB" hex colour string.
func HexToRGB(hex string) (r, g, b uint8, err error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q", hex)
	}

	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: %w", hex, err)
	}

	return uint8(val >> 16), uint8(val >> 8), uint8(val), nil
}

// RGBToHex formats RGB channels as an uppercase "#RRGGBB" string.
func RGBToHex(r, g, b uint8) string {
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// clampPercent restricts a percentage to [0,100].
func clampPercent(p float64) float64 {
	return math.Max(0, math.Min(maxPercent, p))
}
