package render

import (
	"fmt"
	"strings"

	"github.com/eyemap-vis/server/internal/hexgrid"
	"github.com/eyemap-vis/server/pkg/colormap"
)

// Layout margins and fixed gutters, in pixels.
const (
	titleBand    = 36.0
	legendGutter = 72.0
	legendWidth  = 12.0
	legendHeight = 60.0
	legendBins   = 5
)

// Title and subtitle baselines inside the title band, in pixels. Both
// emitters anchor text on these.
const (
	titleY     = 14.0
	subtitle1Y = 26.0
	subtitle2Y = 34.0
)

// Layout holds the computed canvas geometry for one grid.
type Layout struct {
	Width  int
	Height int

	// OffsetX/OffsetY translate hexagon pixel coordinates onto the canvas.
	OffsetX float64
	OffsetY float64

	Margin float64

	// HexPoints is the shared vertex list of one hexagon, relative to its
	// center, formatted for an SVG polygon.
	HexPoints string

	// TitleX centers the title lines; the Y fields are the baselines of
	// the title and the two subtitle lines.
	TitleX     float64
	TitleY     float64
	Subtitle1Y float64
	Subtitle2Y float64

	LegendX float64
	LegendY float64
}

// Swatch is one legend ramp bin.
type Swatch struct {
	Color  string
	Y      float64
	Height float64
}

// Tick is one numeric legend label.
type Tick struct {
	Label string
	Y     float64
}

// Legend holds the computed color ramp and tick labels for one grid. It is
// derived from the same value range used for hexagon coloring.
type Legend struct {
	Title    string
	Width    float64
	Height   float64
	Swatches []Swatch
	Ticks    []Tick
}

// LayoutCalculator computes canvas geometry from hexagon positions.
type LayoutCalculator struct {
	coords hexgrid.CoordinateSystem
	margin float64
}

// NewLayoutCalculator creates a layout calculator.
func NewLayoutCalculator(coords hexgrid.CoordinateSystem, margin float64) *LayoutCalculator {
	if margin <= 0 {
		margin = 10
	}
	return &LayoutCalculator{coords: coords, margin: margin}
}

// CalculateLayout derives canvas size and anchor positions from the bounding
// box of all hexagon centers plus fixed margins. An empty hexagon list or a
// degenerate bounding box is a RenderingError.
func (lc *LayoutCalculator) CalculateLayout(hexagons []Hexagon) (Layout, error) {
	if len(hexagons) == 0 {
		return Layout{}, &hexgrid.RenderingError{
			Op:  "layout",
			Err: fmt.Errorf("hexagon list is empty"),
		}
	}

	minX, maxX := hexagons[0].X, hexagons[0].X
	minY, maxY := hexagons[0].Y, hexagons[0].Y
	for _, h := range hexagons[1:] {
		if h.X < minX {
			minX = h.X
		}
		if h.X > maxX {
			maxX = h.X
		}
		if h.Y < minY {
			minY = h.Y
		}
		if h.Y > maxY {
			maxY = h.Y
		}
	}

	// Extend the center bbox by the hexagon extent.
	ext := lc.coords.HexSize
	minX -= ext
	maxX += ext
	minY -= ext
	maxY += ext

	gridW := maxX - minX
	gridH := maxY - minY
	if gridW <= 0 || gridH <= 0 {
		return Layout{}, &hexgrid.RenderingError{
			Op:  "layout",
			Err: fmt.Errorf("degenerate canvas bounding box (%gx%g)", gridW, gridH),
		}
	}

	width := gridW + 2*lc.margin + legendGutter
	height := gridH + 2*lc.margin + titleBand

	l := Layout{
		Width:      int(width + 0.5),
		Height:     int(height + 0.5),
		OffsetX:    lc.margin - minX,
		OffsetY:    titleBand + lc.margin - minY,
		Margin:     lc.margin,
		HexPoints:  lc.hexPoints(),
		TitleX:     width / 2,
		TitleY:     titleY,
		Subtitle1Y: subtitle1Y,
		Subtitle2Y: subtitle2Y,
		LegendX:    gridW + 2*lc.margin,
		LegendY:    titleBand + lc.margin,
	}
	return l, nil
}

// hexPoints renders the shared hexagon vertex list.
func (lc *LayoutCalculator) hexPoints() string {
	var b strings.Builder
	for i, v := range lc.coords.VertexOffsets() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.2f,%.2f", v[0], v[1])
	}
	return b.String()
}

// CalculateLegend derives the legend ramp and ticks from the value range
// used for hexagon coloring, on the same colormap, so legend colors match
// hexagon colors exactly.
func (lc *LayoutCalculator) CalculateLegend(vr hexgrid.ValueRange, metric hexgrid.MetricType, cmap colormap.LinearColormap) Legend {
	binH := legendHeight / legendBins

	// Swatches stack bottom-up: the highest value bin sits at the top.
	swatches := make([]Swatch, legendBins)
	for i := 0; i < legendBins; i++ {
		t := (float64(i) + 0.5) / legendBins
		swatches[i] = Swatch{
			Color:  colormap.Hex(cmap.At(t)),
			Y:      legendHeight - float64(i+1)*binH,
			Height: binH,
		}
	}

	ticks := []Tick{
		{Label: formatTick(vr.Max), Y: 0},
		{Label: formatTick((vr.Min + vr.Max) / 2), Y: legendHeight / 2},
		{Label: formatTick(vr.Min), Y: legendHeight},
	}

	return Legend{
		Title:    metric.Label(),
		Width:    legendWidth,
		Height:   legendHeight,
		Swatches: swatches,
		Ticks:    ticks,
	}
}

func formatTick(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
