package hexgrid

import "fmt"

// DataProcessor merges a region's lattice with the observed column records
// for one neuron type and classifies every cell.
type DataProcessor struct{}

// NewDataProcessor creates a data processor.
func NewDataProcessor() *DataProcessor {
	return &DataProcessor{}
}

// Classify walks the full lattice in input order and assigns each cell
// exactly one status:
//
//   - a cell outside regionCoords belongs to another region's lattice and
//     becomes StatusNotInRegion;
//   - a region cell without an observation becomes StatusNoData;
//   - otherwise the cell is StatusHasData, carrying the metric value and
//     index-aligned layer values from its observation.
//
// A zero-valued observation is still StatusHasData: zero is a renderable
// value, distinguished from no-data by color only. Output order follows
// lattice order, so repeated calls produce identical slices.
func (p *DataProcessor) Classify(
	lattice []PossibleColumn,
	regionCoords map[Coord]struct{},
	observed map[Coord]*ColumnObservation,
	metric MetricType,
) ([]ProcessedColumn, error) {
	if len(lattice) == 0 {
		return nil, &DataProcessingError{
			Op:  "classify",
			Err: fmt.Errorf("possible-column lattice is empty"),
		}
	}
	if len(regionCoords) == 0 {
		return nil, &DataProcessingError{
			Op:  "classify",
			Err: fmt.Errorf("region has no lattice coordinates"),
		}
	}

	out := make([]ProcessedColumn, 0, len(lattice))
	for _, pc := range lattice {
		coord := pc.Coord()
		col := ProcessedColumn{Hex1: pc.Hex1, Hex2: pc.Hex2}

		if _, inRegion := regionCoords[coord]; !inRegion {
			col.Status = StatusNotInRegion
		} else if obs, ok := observed[coord]; !ok || obs == nil {
			col.Status = StatusNoData
		} else {
			col.Status = StatusHasData
			col.Value = obs.MetricValue(metric)
			col.LayerValues = obs.LayerValues(metric)
		}

		out = append(out, col)
	}
	return out, nil
}

// ObservationsByCoord indexes observations for one region and hemisphere.
// Combined selects observations from both hemispheres; a dedicated side
// keeps only matching records (records without a side are kept as well,
// since some upstream datasets omit it for midline types).
func ObservationsByCoord(observations []ColumnObservation, region string, side Side) map[Coord]*ColumnObservation {
	out := make(map[Coord]*ColumnObservation)
	for i := range observations {
		obs := &observations[i]
		if obs.Region != region {
			continue
		}
		if side != SideCombined && obs.Side != "" && obs.Side != side {
			continue
		}
		out[obs.Coord()] = obs
	}
	return out
}

// LatticeCoords returns the coordinate set of one region's possible columns.
func LatticeCoords(lattice []PossibleColumn, region string) map[Coord]struct{} {
	out := make(map[Coord]struct{})
	for i := range lattice {
		if lattice[i].Region == region {
			out[lattice[i].Coord()] = struct{}{}
		}
	}
	return out
}
