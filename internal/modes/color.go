package modes

import (
	"image/color"
	"math"
)

// hsv converts HSV to linear RGB components (hue: 0-360, saturation: 0-1,
// value: 0-1).
func hsv(h, s, v float64) (r, g, b float64) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

// hsvColor is hsv as an opaque color.
func hsvColor(h, s, v float64) color.RGBA {
	r, g, b := hsv(h, s, v)
	return color.RGBA{R: unit8(r), G: unit8(g), B: unit8(b), A: 0xff}
}

func unit8(v float64) uint8 { return uint8(clamp01(v)*255 + 0.5) }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
