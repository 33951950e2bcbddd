// Package hexgrid provides the column data model, status classification,
// and coordinate transforms for hexagonal eyemap grids.
package hexgrid

import (
	"fmt"
	"strings"
)

// MetricType selects which scalar is visualized per column.
type MetricType string

const (
	MetricSynapseDensity MetricType = "synapse_density"
	MetricCellCount      MetricType = "cell_count"
)

// ParseMetric converts a metric name into a MetricType.
func ParseMetric(s string) (MetricType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "synapse_density", "synapses":
		return MetricSynapseDensity, nil
	case "cell_count", "cells":
		return MetricCellCount, nil
	default:
		return "", &ValidationError{Field: "metric_type", Value: s}
	}
}

// Label returns the human-readable label used in tooltips and legends.
func (m MetricType) Label() string {
	if m == MetricCellCount {
		return "Cells"
	}
	return "Synapses"
}

// Side designates a hemisphere, or both hemispheres rendered independently.
type Side string

const (
	SideLeft     Side = "left"
	SideRight    Side = "right"
	SideCombined Side = "combined"
)

// ParseSide converts a side selector string into a Side. It accepts the
// long and single-letter forms used by upstream data sources.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return SideLeft, nil
	case "right", "r":
		return SideRight, nil
	case "combined", "c":
		return SideCombined, nil
	default:
		return "", &ValidationError{Field: "side", Value: s}
	}
}

// Short returns the single-letter display form ("L", "R", "C").
func (s Side) Short() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[0]))
}

// Hemispheres returns the concrete hemispheres a selector expands to.
// Combined expands to both; a dedicated side expands to itself.
func (s Side) Hemispheres() []Side {
	if s == SideCombined {
		return []Side{SideLeft, SideRight}
	}
	return []Side{s}
}

// MirrorForSide reports whether grids for this hemisphere are mirrored
// horizontally. Right-hemisphere grids are mirrored so both hemispheres
// read in the same anatomical orientation.
func MirrorForSide(s Side) bool {
	return s == SideRight
}

// ColumnStatus classifies a lattice cell in a rendered grid. Every cell
// has exactly one status.
type ColumnStatus string

const (
	// StatusHasData means an observation exists for the cell, even if the
	// observed value is zero.
	StatusHasData ColumnStatus = "has_data"
	// StatusNoData means the cell exists in the region lattice but no
	// observation was recorded for the neuron type under consideration.
	StatusNoData ColumnStatus = "no_data"
	// StatusNotInRegion means the cell belongs to another region's lattice.
	StatusNotInRegion ColumnStatus = "not_in_region"
)

// Coord addresses a cell on the hexagonal lattice in axial coordinates.
type Coord struct {
	Hex1 int
	Hex2 int
}

// LayerCounts holds the per-anatomical-layer sub-counts of one column.
// Layer slices are index-aligned across columns of the same region.
type LayerCounts struct {
	SynapseCount float64 `json:"synapse_count"`
	NeuronCount  float64 `json:"neuron_count"`
}

// ColumnObservation is one observed column record for a neuron type,
// produced upstream and immutable thereafter.
type ColumnObservation struct {
	Region       string        `json:"region"`
	Hex1         int           `json:"hex1"`
	Hex2         int           `json:"hex2"`
	Side         Side          `json:"side"`
	SynapseCount float64       `json:"synapse_count"`
	NeuronCount  float64       `json:"neuron_count"`
	Layers       []LayerCounts `json:"layers,omitempty"`
}

// Coord returns the observation's lattice coordinate.
func (o *ColumnObservation) Coord() Coord {
	return Coord{Hex1: o.Hex1, Hex2: o.Hex2}
}

// MetricValue returns the observation's value for the requested metric.
func (o *ColumnObservation) MetricValue(m MetricType) float64 {
	if m == MetricCellCount {
		return o.NeuronCount
	}
	return o.SynapseCount
}

// LayerValues returns the per-layer values for the requested metric,
// index-aligned with Layers.
func (o *ColumnObservation) LayerValues(m MetricType) []float64 {
	if len(o.Layers) == 0 {
		return nil
	}
	out := make([]float64, len(o.Layers))
	for i, l := range o.Layers {
		if m == MetricCellCount {
			out[i] = l.NeuronCount
		} else {
			out[i] = l.SynapseCount
		}
	}
	return out
}

// PossibleColumn is one cell of a region's full legal lattice, independent
// of any neuron type.
type PossibleColumn struct {
	Region string `json:"region"`
	Hex1   int    `json:"hex1"`
	Hex2   int    `json:"hex2"`
}

// Coord returns the lattice coordinate of the possible column.
func (p *PossibleColumn) Coord() Coord {
	return Coord{Hex1: p.Hex1, Hex2: p.Hex2}
}

// ProcessedColumn is a classified lattice cell ready for color mapping.
type ProcessedColumn struct {
	Hex1        int
	Hex2        int
	Status      ColumnStatus
	Value       float64
	LayerValues []float64
}

// RegionMinMax holds optional global per-region normalization data used
// for cross-region layer color consistency.
type RegionMinMax struct {
	MinSynRegion   map[string]float64 `json:"min_syn_region,omitempty"`
	MaxSynRegion   map[string]float64 `json:"max_syn_region,omitempty"`
	MinCellsRegion map[string]float64 `json:"min_cells_region,omitempty"`
	MaxCellsRegion map[string]float64 `json:"max_cells_region,omitempty"`
}

// Range returns the normalization range for a region and metric. ok is
// false when no range is recorded for the region.
func (mm *RegionMinMax) Range(region string, metric MetricType) (min, max float64, ok bool) {
	if mm == nil {
		return 0, 0, false
	}
	var minTab, maxTab map[string]float64
	if metric == MetricCellCount {
		minTab, maxTab = mm.MinCellsRegion, mm.MaxCellsRegion
	} else {
		minTab, maxTab = mm.MinSynRegion, mm.MaxSynRegion
	}
	min, okMin := minTab[region]
	max, okMax := maxTab[region]
	if !okMin || !okMax {
		return 0, 0, false
	}
	return min, max, true
}

// valueRangeEpsilon is the symmetric expansion applied to a degenerate
// threshold pair so color scaling stays well-defined.
const valueRangeEpsilon = 0.1

// ValueRange is the active color-scaling range. Min is strictly less
// than Max for every constructed range.
type ValueRange struct {
	Min float64
	Max float64
}

// NewValueRange builds a ValueRange from caller-supplied thresholds.
// A collapsed pair (min == max) is expanded symmetrically around the
// shared value; an inverted pair is rejected.
func NewValueRange(min, max float64) (ValueRange, error) {
	if min > max {
		return ValueRange{}, &DataProcessingError{
			Op:  "value_range",
			Err: fmt.Errorf("threshold minimum %g exceeds maximum %g", min, max),
		}
	}
	if min == max {
		return ValueRange{Min: min - valueRangeEpsilon, Max: max + valueRangeEpsilon}, nil
	}
	return ValueRange{Min: min, Max: max}, nil
}

// Span returns Max - Min. Always positive.
func (r ValueRange) Span() float64 {
	return r.Max - r.Min
}
