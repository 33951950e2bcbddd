package hexgrid

import (
	"errors"
	"testing"
)

func TestParseSide(t *testing.T) {
	t.Parallel()

	cases := map[string]Side{
		"left":     SideLeft,
		"L":        SideLeft,
		"right":    SideRight,
		"r":        SideRight,
		"combined": SideCombined,
		"C":        SideCombined,
		" Right ":  SideRight,
	}
	for in, want := range cases {
		got, err := ParseSide(in)
		if err != nil {
			t.Errorf("ParseSide(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseSide(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseSide("dorsal"); err == nil {
		t.Fatal("expected error for unknown side")
	} else {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %T", err)
		}
	}
}

func TestSideHemispheres(t *testing.T) {
	t.Parallel()

	got := SideCombined.Hemispheres()
	if len(got) != 2 || got[0] != SideLeft || got[1] != SideRight {
		t.Fatalf("combined should expand to [left right], got %v", got)
	}

	got = SideLeft.Hemispheres()
	if len(got) != 1 || got[0] != SideLeft {
		t.Fatalf("left should expand to itself, got %v", got)
	}
}

func TestMirrorForSide(t *testing.T) {
	t.Parallel()

	if !MirrorForSide(SideRight) {
		t.Error("right hemisphere grids should mirror")
	}
	if MirrorForSide(SideLeft) {
		t.Error("left hemisphere grids should not mirror")
	}
}

func TestParseMetric(t *testing.T) {
	t.Parallel()

	if m, err := ParseMetric("synapse_density"); err != nil || m != MetricSynapseDensity {
		t.Errorf("ParseMetric(synapse_density) = %q, %v", m, err)
	}
	if m, err := ParseMetric("cell_count"); err != nil || m != MetricCellCount {
		t.Errorf("ParseMetric(cell_count) = %q, %v", m, err)
	}
	if _, err := ParseMetric("volume"); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestMetricLabel(t *testing.T) {
	t.Parallel()

	if got := MetricSynapseDensity.Label(); got != "Synapses" {
		t.Errorf("unexpected label %q", got)
	}
	if got := MetricCellCount.Label(); got != "Cells" {
		t.Errorf("unexpected label %q", got)
	}
}

func TestNewValueRange(t *testing.T) {
	t.Parallel()

	t.Run("normal", func(t *testing.T) {
		vr, err := NewValueRange(2, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if vr.Min != 2 || vr.Max != 10 {
			t.Fatalf("unexpected range %+v", vr)
		}
	})

	t.Run("degenerateExpands", func(t *testing.T) {
		vr, err := NewValueRange(5, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if vr.Min != 4.9 || vr.Max != 5.1 {
			t.Fatalf("expected [4.9, 5.1], got [%g, %g]", vr.Min, vr.Max)
		}
		if vr.Span() <= 0 {
			t.Fatalf("span must stay positive, got %g", vr.Span())
		}
	})

	t.Run("invertedRejected", func(t *testing.T) {
		_, err := NewValueRange(10, 2)
		if err == nil {
			t.Fatal("expected error for inverted range")
		}
		var derr *DataProcessingError
		if !errors.As(err, &derr) {
			t.Fatalf("expected DataProcessingError, got %T", err)
		}
	})
}

func TestRegionMinMaxRange(t *testing.T) {
	t.Parallel()

	var nilMM *RegionMinMax
	if _, _, ok := nilMM.Range("ME", MetricSynapseDensity); ok {
		t.Fatal("nil RegionMinMax should report no range")
	}

	mm := &RegionMinMax{
		MinSynRegion:   map[string]float64{"ME": 1},
		MaxSynRegion:   map[string]float64{"ME": 9},
		MinCellsRegion: map[string]float64{"ME": 0},
		MaxCellsRegion: map[string]float64{"ME": 3},
	}

	min, max, ok := mm.Range("ME", MetricSynapseDensity)
	if !ok || min != 1 || max != 9 {
		t.Fatalf("unexpected synapse range %g %g %v", min, max, ok)
	}
	min, max, ok = mm.Range("ME", MetricCellCount)
	if !ok || min != 0 || max != 3 {
		t.Fatalf("unexpected cell range %g %g %v", min, max, ok)
	}
	if _, _, ok := mm.Range("LO", MetricSynapseDensity); ok {
		t.Fatal("unknown region should report no range")
	}
}

func TestObservationMetricValue(t *testing.T) {
	t.Parallel()

	obs := ColumnObservation{
		SynapseCount: 12,
		NeuronCount:  3,
		Layers: []LayerCounts{
			{SynapseCount: 7, NeuronCount: 1},
			{SynapseCount: 5, NeuronCount: 2},
		},
	}

	if got := obs.MetricValue(MetricSynapseDensity); got != 12 {
		t.Errorf("synapse value = %g", got)
	}
	if got := obs.MetricValue(MetricCellCount); got != 3 {
		t.Errorf("cell value = %g", got)
	}

	layers := obs.LayerValues(MetricCellCount)
	if len(layers) != 2 || layers[0] != 1 || layers[1] != 2 {
		t.Errorf("unexpected layer values %v", layers)
	}
}
