// Package colormap provides color scales for eyemap visualization.
package colormap

import (
	"fmt"
	"image/color"
)

// Colormap maps normalized values [0, 1] to colors.
type Colormap interface {
	At(t float64) color.Color
}

// LinearColormap is a linear interpolation colormap.
type LinearColormap struct {
	colors []color.RGBA
}

// At returns the color at position t (0-1). Inputs outside [0, 1] clamp to
// the endpoints.
func (c LinearColormap) At(t float64) color.Color {
	if t <= 0 {
		return c.colors[0]
	}
	if t >= 1 {
		return c.colors[len(c.colors)-1]
	}

	idx := t * float64(len(c.colors)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(c.colors) {
		upper = len(c.colors) - 1
	}

	frac := idx - float64(lower)
	return interpolate(c.colors[lower], c.colors[upper], frac)
}

// MapValue maps a raw value onto the colormap using the given range. The
// interpolation factor (value - min) / (max - min) is clamped to [0, 1].
// Callers must supply min < max; degenerate ranges are expanded upstream.
func (c LinearColormap) MapValue(value, min, max float64) color.Color {
	t := (value - min) / (max - min)
	return c.At(t)
}

func interpolate(c1, c2 color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c1.R) + t*(float64(c2.R)-float64(c1.R))),
		G: uint8(float64(c1.G) + t*(float64(c2.G)-float64(c1.G))),
		B: uint8(float64(c1.B) + t*(float64(c2.B)-float64(c1.B))),
		A: 255,
	}
}

// Fixed status colors. These are assigned directly by the classification
// stage and are never produced by a scale.
var (
	// White marks lattice cells with no recorded observation.
	White = color.RGBA{255, 255, 255, 255}
	// DarkGray marks lattice cells that belong to another region.
	DarkGray = color.RGBA{74, 74, 74, 255}
)

// Reds is the default eyemap gradient, light cream to deep red
// (colorbrewer Reds).
var Reds = LinearColormap{
	colors: []color.RGBA{
		{255, 245, 240, 255},
		{254, 224, 210, 255},
		{252, 187, 161, 255},
		{252, 146, 114, 255},
		{251, 106, 74, 255},
		{239, 59, 44, 255},
		{203, 24, 29, 255},
		{165, 15, 21, 255},
		{103, 0, 13, 255},
	},
}

// Viridis colormap (matplotlib viridis).
var Viridis = LinearColormap{
	colors: []color.RGBA{
		{68, 1, 84, 255},
		{72, 35, 116, 255},
		{64, 67, 135, 255},
		{52, 94, 141, 255},
		{41, 120, 142, 255},
		{32, 144, 140, 255},
		{34, 167, 132, 255},
		{68, 190, 112, 255},
		{121, 209, 81, 255},
		{189, 222, 38, 255},
		{253, 231, 37, 255},
	},
}

// Plasma colormap.
var Plasma = LinearColormap{
	colors: []color.RGBA{
		{13, 8, 135, 255},
		{75, 3, 161, 255},
		{125, 3, 168, 255},
		{168, 34, 150, 255},
		{203, 70, 121, 255},
		{229, 107, 93, 255},
		{248, 148, 65, 255},
		{253, 195, 40, 255},
		{240, 249, 33, 255},
	},
}

// ByName resolves a colormap by its configuration name. Unknown names fall
// back to the default eyemap gradient.
func ByName(name string) LinearColormap {
	switch name {
	case "viridis":
		return Viridis
	case "plasma":
		return Plasma
	default:
		return Reds
	}
}

// Hex formats a color as a "#rrggbb" string for SVG emission.
func Hex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", uint8(r>>8), uint8(g>>8), uint8(b>>8))
}
