// Package world models the ground a game is played on: a square locale binned
// into hex cells, a foot-traffic field over those cells, social hubs, and a
// spatial index of the markers placed in it.
package world

import "math"

// HexCoord is a cell position using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent cell coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	return max(dq, dr, ds)
}

// Point is a position in meters, measured from the locale's south-west corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceMeters is the straight-line distance between two points.
func DistanceMeters(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Pointy-top hex layout. size is the cell circumradius in meters.

func pointToHex(p Point, size float64) HexCoord {
	q := (math.Sqrt(3)/3*p.X - p.Y/3) / size
	r := (2.0 / 3.0 * p.Y) / size
	return hexRound(q, r)
}

func hexCenter(h HexCoord, size float64) Point {
	return Point{
		X: size * (math.Sqrt(3)*float64(h.Q) + math.Sqrt(3)/2*float64(h.R)),
		Y: size * 1.5 * float64(h.R),
	}
}

// hexRound snaps fractional axial coordinates to the containing cell.
func hexRound(q, r float64) HexCoord {
	s := -q - r
	rq, rr, rs := math.Round(q), math.Round(r), math.Round(s)
	dq, dr, ds := math.Abs(rq-q), math.Abs(rr-r), math.Abs(rs-s)
	switch {
	case dq > dr && dq > ds:
		rq = -rr - rs
	case dr > ds:
		rr = -rq - rs
	}
	return HexCoord{Q: int(rq), R: int(rr)}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
