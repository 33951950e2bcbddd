package hexgrid

import "math"

var sqrt3 = math.Sqrt(3)

// CoordinateSystem converts axial lattice coordinates into 2D pixel
// coordinates using a fixed hexagon size and spacing factor.
type CoordinateSystem struct {
	HexSize       float64
	SpacingFactor float64
}

// NewCoordinateSystem creates a coordinate system. Non-positive parameters
// fall back to the standard eyemap geometry.
func NewCoordinateSystem(hexSize, spacingFactor float64) CoordinateSystem {
	if hexSize <= 0 {
		hexSize = 6
	}
	if spacingFactor <= 0 {
		spacingFactor = 1.1
	}
	return CoordinateSystem{HexSize: hexSize, SpacingFactor: spacingFactor}
}

// ToPixel converts axial coordinates (hex1, hex2) to pixel coordinates for
// a pointy-top hexagon layout. When mirror is true the horizontal axis is
// reflected so left- and right-hemisphere grids share one anatomical
// orientation. Pure: identical inputs yield bit-identical outputs.
func (cs CoordinateSystem) ToPixel(hex1, hex2 int, mirror bool) (x, y float64) {
	step := cs.HexSize * cs.SpacingFactor
	x = step * sqrt3 * (float64(hex1) + float64(hex2)/2)
	y = step * 1.5 * float64(hex2)
	if mirror {
		x = -x
	}
	return x, y
}

// VertexOffsets returns the six vertex offsets of a pointy-top hexagon of
// this system's size, relative to the hexagon center. The order is fixed so
// emitted point lists are deterministic.
func (cs CoordinateSystem) VertexOffsets() [6][2]float64 {
	var out [6][2]float64
	for i := 0; i < 6; i++ {
		angle := math.Pi/180 * (60*float64(i) - 30)
		out[i][0] = cs.HexSize * math.Cos(angle)
		out[i][1] = cs.HexSize * math.Sin(angle)
	}
	return out
}
