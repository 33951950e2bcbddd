// Package render provides layout, legend, tooltip, and SVG/PNG emission
// for hexagonal eyemap grids.
package render

import "github.com/eyemap-vis/server/internal/hexgrid"

// Hexagon is one render-ready grid cell. It is created once per cell per
// render call and not mutated afterwards, except for tooltip attachment in
// the finalize step.
type Hexagon struct {
	X           float64
	Y           float64
	Hex1        int
	Hex2        int
	Status      hexgrid.ColumnStatus
	Value       float64
	LayerValues []float64

	// Color is the fill color as "#rrggbb". LayerColors is index-aligned
	// with LayerValues.
	Color       string
	LayerColors []string

	Region string
	Side   hexgrid.Side

	Tooltip       string
	TooltipLayers []string
}

// Meta carries the grid description strings used for titles and filenames.
type Meta struct {
	PlotDesc   string // e.g. "Synapses (All Columns)"
	NeuronDesc string // e.g. "ME (R)"
	RegionDesc string // e.g. "Tm1 (R)"
}
