package hexgrid

import (
	"math"
	"testing"
)

func TestToPixel(t *testing.T) {
	t.Parallel()

	cs := NewCoordinateSystem(6, 1.1)
	step := 6.0 * 1.1

	t.Run("origin", func(t *testing.T) {
		x, y := cs.ToPixel(0, 0, false)
		if x != 0 || y != 0 {
			t.Fatalf("origin should map to (0, 0), got (%g, %g)", x, y)
		}
	})

	t.Run("axialFormula", func(t *testing.T) {
		x, y := cs.ToPixel(2, 1, false)
		wantX := step * math.Sqrt(3) * 2.5
		wantY := step * 1.5
		if math.Abs(x-wantX) > 1e-12 || math.Abs(y-wantY) > 1e-12 {
			t.Fatalf("got (%g, %g), want (%g, %g)", x, y, wantX, wantY)
		}
	})

	t.Run("mirrorNegatesX", func(t *testing.T) {
		x, y := cs.ToPixel(3, -2, false)
		mx, my := cs.ToPixel(3, -2, true)
		if mx != -x || my != y {
			t.Fatalf("mirror should negate x only: (%g, %g) vs (%g, %g)", x, y, mx, my)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		x1, y1 := cs.ToPixel(17, -9, true)
		x2, y2 := cs.ToPixel(17, -9, true)
		if x1 != x2 || y1 != y2 {
			t.Fatal("repeated conversions must be bit-identical")
		}
	})
}

func TestNewCoordinateSystemDefaults(t *testing.T) {
	t.Parallel()

	cs := NewCoordinateSystem(0, -1)
	if cs.HexSize != 6 || cs.SpacingFactor != 1.1 {
		t.Fatalf("unexpected defaults %+v", cs)
	}
}

func TestVertexOffsets(t *testing.T) {
	t.Parallel()

	cs := NewCoordinateSystem(6, 1.1)
	offsets := cs.VertexOffsets()

	// Pointy-top layout: every vertex sits on the circumradius, none on the
	// horizontal axis.
	for i, v := range offsets {
		r := math.Hypot(v[0], v[1])
		if math.Abs(r-cs.HexSize) > 1e-9 {
			t.Errorf("vertex %d radius %g, want %g", i, r, cs.HexSize)
		}
		if v[1] == 0 {
			t.Errorf("vertex %d lies on the horizontal axis, not pointy-top", i)
		}
	}

	if offsets != cs.VertexOffsets() {
		t.Fatal("vertex offsets must be deterministic")
	}
}
