package cache

import (
	"testing"
	"time"

	"github.com/eyemap-vis/server/internal/hexgrid"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		ArtifactCacheSizeMB: 16,
		ArtifactTTL:         1 * time.Minute,
		ColumnsCacheSize:    16,
	})
	if err != nil {
		t.Fatalf("failed to create cache manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestArtifactRoundTrip(t *testing.T) {
	m := testManager(t)

	key := ArtifactKey("Tm1", "ME", hexgrid.SideLeft, hexgrid.MetricSynapseDensity, "svg", "none")
	if _, ok := m.GetArtifact(key); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	want := []byte("<svg/>")
	if err := m.SetArtifact(key, want); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, ok := m.GetArtifact(key)
	if !ok || string(got) != string(want) {
		t.Fatalf("expected %q, got %q (hit=%v)", want, got, ok)
	}
}

func TestColumnsRoundTrip(t *testing.T) {
	m := testManager(t)

	key := ColumnsKey("Tm1", "ME", hexgrid.SideLeft, hexgrid.MetricSynapseDensity)
	cols := []hexgrid.ProcessedColumn{
		{Hex1: 0, Hex2: 0, Status: hexgrid.StatusHasData, Value: 3},
	}
	m.SetColumns(key, cols)

	got, ok := m.GetColumns(key)
	if !ok || len(got) != 1 || got[0].Value != 3 {
		t.Fatalf("unexpected columns %v (hit=%v)", got, ok)
	}
}

func TestClear(t *testing.T) {
	m := testManager(t)

	artKey := ArtifactKey("Tm1", "ME", hexgrid.SideLeft, hexgrid.MetricSynapseDensity, "svg", "none")
	colKey := ColumnsKey("Tm1", "ME", hexgrid.SideLeft, hexgrid.MetricSynapseDensity)
	m.SetArtifact(artKey, []byte("x"))
	m.SetColumns(colKey, []hexgrid.ProcessedColumn{{}})

	if err := m.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok := m.GetArtifact(artKey); ok {
		t.Error("artifact survived clear")
	}
	if _, ok := m.GetColumns(colKey); ok {
		t.Error("columns survived clear")
	}
}

func TestNilManagerIsSafe(t *testing.T) {
	t.Parallel()

	var m *Manager
	if _, ok := m.GetArtifact("k"); ok {
		t.Error("nil manager should never hit")
	}
	if err := m.SetArtifact("k", []byte("v")); err != nil {
		t.Errorf("nil manager set should be a no-op, got %v", err)
	}
	m.SetColumns("k", nil)
	if _, ok := m.GetColumns("k"); ok {
		t.Error("nil manager should never hit")
	}
	if err := m.Clear(); err != nil {
		t.Errorf("nil manager clear should be a no-op, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("nil manager close should be a no-op, got %v", err)
	}
}

func TestThresholdSignature(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		if got := ThresholdSignature(nil); got != "none" {
			t.Fatalf("expected \"none\", got %q", got)
		}
	})

	t.Run("orderIndependent", func(t *testing.T) {
		a := ThresholdSignature(map[string][2]float64{"ME": {0, 10}, "LO": {1, 5}})
		b := ThresholdSignature(map[string][2]float64{"LO": {1, 5}, "ME": {0, 10}})
		if a != b {
			t.Fatalf("signature must not depend on map order: %q vs %q", a, b)
		}
		if len(a) != 16 {
			t.Fatalf("expected 16 hex chars, got %q", a)
		}
	})

	t.Run("valueSensitive", func(t *testing.T) {
		a := ThresholdSignature(map[string][2]float64{"ME": {0, 10}})
		b := ThresholdSignature(map[string][2]float64{"ME": {0, 11}})
		if a == b {
			t.Fatal("different thresholds must produce different signatures")
		}
	})
}

func TestKeys(t *testing.T) {
	t.Parallel()

	art := ArtifactKey("Tm1", "ME", hexgrid.SideRight, hexgrid.MetricCellCount, "png", "abc")
	if art != "art:Tm1:ME:right:cell_count:png:abc" {
		t.Errorf("unexpected artifact key %q", art)
	}

	cols := ColumnsKey("Tm1", "ME", hexgrid.SideRight, hexgrid.MetricCellCount)
	if cols != "cols:Tm1:ME:right:cell_count" {
		t.Errorf("unexpected columns key %q", cols)
	}
}
