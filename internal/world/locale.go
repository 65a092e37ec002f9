package world

import (
	"fmt"
	"math"
	"sort"

	"github.com/talgya/stickersim/internal/entropy"
)

// Placement is a marker pinned to a point in the locale.
type Placement struct {
	ID uint64 `json:"id"`
	At Point  `json:"at"`
}

// Cell is one hex bin of the locale.
type Cell struct {
	Coord   HexCoord    `json:"coord"`
	Center  Point       `json:"center"`
	Traffic float64     `json:"traffic"` // 0.0 (deserted) to 1.0 (busiest)
	Hub     bool        `json:"hub"`
	Markers []Placement `json:"-"`
}

// Locale is the square play area. Cells cover the whole square; every point
// inside it resolves to exactly one cell.
type Locale struct {
	Size     float64 `json:"size_meters"`
	CellSize float64 `json:"cell_meters"`
	Hubs     []Point `json:"hubs"`

	cells   map[HexCoord]*Cell
	order   []HexCoord // deterministic iteration order
	cumul   []float64  // cumulative traffic over order
	markers int
}

func newLocale(size, cellSize float64) *Locale {
	return &Locale{
		Size:     size,
		CellSize: cellSize,
		cells:    make(map[HexCoord]*Cell),
	}
}

func (l *Locale) add(c *Cell) {
	l.cells[c.Coord] = c
	l.order = append(l.order, c.Coord)
}

// finalize fixes iteration order and the traffic sampling table.
func (l *Locale) finalize() {
	sort.Slice(l.order, func(i, j int) bool {
		a, b := l.order[i], l.order[j]
		if a.R != b.R {
			return a.R < b.R
		}
		return a.Q < b.Q
	})
	l.cumul = make([]float64, len(l.order))
	total := 0.0
	for i, coord := range l.order {
		total += l.cells[coord].Traffic
		l.cumul[i] = total
	}
}

// Cell returns the cell at coord, or nil.
func (l *Locale) Cell(coord HexCoord) *Cell {
	return l.cells[coord]
}

// CellAt returns the coordinate of the cell containing p.
func (l *Locale) CellAt(p Point) HexCoord {
	return pointToHex(p, l.CellSize)
}

// Cells returns every cell in a stable order.
func (l *Locale) Cells() []*Cell {
	out := make([]*Cell, len(l.order))
	for i, coord := range l.order {
		out[i] = l.cells[coord]
	}
	return out
}

// CellCount returns the number of cells.
func (l *Locale) CellCount() int {
	return len(l.order)
}

// MarkerCount returns the number of markers indexed.
func (l *Locale) MarkerCount() int {
	return l.markers
}

// Contains reports whether p lies inside the square.
func (l *Locale) Contains(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= l.Size && p.Y <= l.Size
}

// Clamp moves p to the nearest point inside the square.
func (l *Locale) Clamp(p Point) Point {
	return Point{
		X: math.Min(math.Max(p.X, 0), l.Size),
		Y: math.Min(math.Max(p.Y, 0), l.Size),
	}
}

// AddMarker indexes a marker at p and returns its cell.
func (l *Locale) AddMarker(id uint64, p Point) HexCoord {
	coord := l.CellAt(p)
	cell := l.cells[coord]
	if cell == nil {
		// Clamped points always land in a cell; this guards callers that
		// index out-of-square positions.
		coord = l.CellAt(l.Clamp(p))
		cell = l.cells[coord]
	}
	cell.Markers = append(cell.Markers, Placement{ID: id, At: p})
	l.markers++
	return coord
}

// Nearby returns the markers within radius meters of p, ordered by cell and
// then by placement order.
func (l *Locale) Nearby(p Point, radius float64) []Placement {
	center := l.CellAt(p)
	// Any point is within one circumradius of its cell center, and cells
	// k rings apart have centers at least 1.5*k*size apart.
	rings := int(math.Ceil((radius + 2*l.CellSize) / (1.5 * l.CellSize)))

	var out []Placement
	for dr := -rings; dr <= rings; dr++ {
		for dq := -rings; dq <= rings; dq++ {
			coord := HexCoord{Q: center.Q + dq, R: center.R + dr}
			if Distance(center, coord) > rings {
				continue
			}
			cell := l.cells[coord]
			if cell == nil {
				continue
			}
			for _, m := range cell.Markers {
				if DistanceMeters(p, m.At) <= radius {
					out = append(out, m)
				}
			}
		}
	}
	return out
}

// SampleTrafficPoint draws a point with probability proportional to foot
// traffic: busy cells are chosen more often, and the point is scattered
// uniformly around the cell center.
func (l *Locale) SampleTrafficPoint(rng *entropy.Stream) Point {
	if len(l.cumul) == 0 {
		return l.RandomPoint(rng)
	}
	total := l.cumul[len(l.cumul)-1]
	r := rng.Float64() * total
	idx := sort.SearchFloat64s(l.cumul, r)
	if idx >= len(l.order) {
		idx = len(l.order) - 1
	}
	return l.Scatter(l.cells[l.order[idx]].Center, l.CellSize, rng)
}

// RandomPoint draws a point uniformly over the square.
func (l *Locale) RandomPoint(rng *entropy.Stream) Point {
	return Point{X: rng.Float64() * l.Size, Y: rng.Float64() * l.Size}
}

// Scatter returns a point uniformly within radius of p, clamped to the square.
func (l *Locale) Scatter(p Point, radius float64, rng *entropy.Stream) Point {
	angle := rng.Float64() * 2 * math.Pi
	dist := radius * math.Sqrt(rng.Float64())
	return l.Clamp(Point{X: p.X + dist*math.Cos(angle), Y: p.Y + dist*math.Sin(angle)})
}

// InHub reports whether p lies within radius of any social hub.
func (l *Locale) InHub(p Point, radius float64) bool {
	for _, h := range l.Hubs {
		if DistanceMeters(p, h) <= radius {
			return true
		}
	}
	return false
}

// Traffic returns the foot traffic of the cell containing p.
func (l *Locale) Traffic(p Point) float64 {
	if c := l.cells[l.CellAt(p)]; c != nil {
		return c.Traffic
	}
	return 0
}

// String returns a summary of the locale.
func (l *Locale) String() string {
	return fmt.Sprintf("Locale(size=%.0fm, cells=%d, hubs=%d, markers=%d)", l.Size, len(l.order), len(l.Hubs), l.markers)
}
