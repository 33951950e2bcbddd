package service

import (
	"github.com/eyemap-vis/server/internal/hexgrid"
	"github.com/eyemap-vis/server/internal/render"
)

// validateGridGenerationRequest is the structural validation pass run once
// at ingress, before any processing begins.
func validateGridGenerationRequest(req *GridGenerationRequest) error {
	if req.NeuronType == "" {
		return &hexgrid.ValidationError{Field: "neuron_type", Value: req.NeuronType}
	}
	if len(req.Lattice) == 0 {
		return &hexgrid.ValidationError{Field: "lattice", Value: "empty"}
	}
	switch req.Side {
	case hexgrid.SideLeft, hexgrid.SideRight, hexgrid.SideCombined:
	default:
		return &hexgrid.ValidationError{Field: "side", Value: string(req.Side)}
	}
	switch req.Format {
	case render.FormatSVG, render.FormatPNG:
	default:
		return &hexgrid.ValidationError{Field: "output_format", Value: string(req.Format)}
	}
	for _, m := range req.Metrics {
		switch m {
		case hexgrid.MetricSynapseDensity, hexgrid.MetricCellCount:
		default:
			return &hexgrid.ValidationError{Field: "metric_type", Value: string(m)}
		}
	}
	return nil
}

// validateSingleRegionRequest is the runtime-precondition pass: it checks
// that the data a pipeline stage depends on is present before that stage
// runs.
func validateSingleRegionRequest(req *SingleRegionGridRequest) error {
	if req.Region == "" {
		return &hexgrid.ValidationError{Field: "region", Value: req.Region}
	}
	if req.Side != hexgrid.SideLeft && req.Side != hexgrid.SideRight {
		return &hexgrid.ValidationError{Field: "side", Value: string(req.Side)}
	}
	switch req.Metric {
	case hexgrid.MetricSynapseDensity, hexgrid.MetricCellCount:
	default:
		return &hexgrid.ValidationError{Field: "metric_type", Value: string(req.Metric)}
	}
	if len(req.Lattice) == 0 {
		return &hexgrid.ValidationError{Field: "lattice", Value: "empty"}
	}
	if len(req.RegionCoords) == 0 {
		return &hexgrid.ValidationError{Field: "region_coords", Value: "empty"}
	}
	if req.Observed == nil {
		return &hexgrid.ValidationError{Field: "observed", Value: nil}
	}
	switch req.Format {
	case render.FormatSVG, render.FormatPNG:
	default:
		return &hexgrid.ValidationError{Field: "output_format", Value: string(req.Format)}
	}
	return nil
}
