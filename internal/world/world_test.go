package world

import (
	"math"
	"testing"

	"github.com/talgya/stickersim/internal/entropy"
)

func testLocale() *Locale {
	cfg := DefaultGenConfig()
	cfg.Seed = 42
	return GenerateLocale(cfg)
}

func TestHexRoundTrip(t *testing.T) {
	for q := -4; q <= 4; q++ {
		for r := -4; r <= 4; r++ {
			h := HexCoord{Q: q, R: r}
			if got := pointToHex(hexCenter(h, 60), 60); got != h {
				t.Errorf("center of %v maps back to %v", h, got)
			}
		}
	}
}

func TestDistance(t *testing.T) {
	a := HexCoord{Q: 0, R: 0}
	for _, n := range a.Neighbors() {
		if Distance(a, n) != 1 {
			t.Errorf("neighbor %v at distance %d", n, Distance(a, n))
		}
	}
	if d := Distance(a, HexCoord{Q: 3, R: -1}); d != 3 {
		t.Errorf("expected 3, got %d", d)
	}
}

func TestLocaleCoversSquare(t *testing.T) {
	l := testLocale()
	rng := entropy.NewStream(1)
	for i := 0; i < 2000; i++ {
		p := l.RandomPoint(rng)
		if l.Cell(l.CellAt(p)) == nil {
			t.Fatalf("point %+v has no cell", p)
		}
	}
	corners := []Point{{0, 0}, {l.Size, 0}, {0, l.Size}, {l.Size, l.Size}}
	for _, p := range corners {
		if l.Cell(l.CellAt(p)) == nil {
			t.Errorf("corner %+v has no cell", p)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := testLocale()
	b := testLocale()
	if a.CellCount() != b.CellCount() {
		t.Fatalf("cell counts differ: %d vs %d", a.CellCount(), b.CellCount())
	}
	ac, bc := a.Cells(), b.Cells()
	for i := range ac {
		if ac[i].Coord != bc[i].Coord || ac[i].Traffic != bc[i].Traffic {
			t.Fatalf("cell %d differs", i)
		}
	}
	if len(a.Hubs) != len(b.Hubs) {
		t.Fatal("hub counts differ")
	}
	for i := range a.Hubs {
		if a.Hubs[i] != b.Hubs[i] {
			t.Fatal("hub positions differ")
		}
	}
}

func TestTrafficInRange(t *testing.T) {
	l := testLocale()
	for _, c := range l.Cells() {
		if c.Traffic < 0.05-1e-9 || c.Traffic > 1 {
			t.Errorf("cell %v traffic %f out of range", c.Coord, c.Traffic)
		}
	}
}

func TestHubsPlaced(t *testing.T) {
	l := testLocale()
	if len(l.Hubs) != 4 {
		t.Fatalf("expected 4 hubs, got %d", len(l.Hubs))
	}
	for _, h := range l.Hubs {
		if !l.Contains(h) {
			t.Errorf("hub %+v outside locale", h)
		}
		if !l.InHub(h, 1) {
			t.Errorf("hub %+v not reported as hub", h)
		}
	}
}

func TestNearbyMatchesBruteForce(t *testing.T) {
	l := testLocale()
	rng := entropy.NewStream(9)
	var all []Placement
	for i := 0; i < 300; i++ {
		p := l.RandomPoint(rng)
		l.AddMarker(uint64(i+1), p)
		all = append(all, Placement{ID: uint64(i + 1), At: p})
	}
	if l.MarkerCount() != 300 {
		t.Fatalf("expected 300 markers, got %d", l.MarkerCount())
	}

	for trial := 0; trial < 50; trial++ {
		p := l.RandomPoint(rng)
		radius := 50 + rng.Float64()*350
		got := map[uint64]bool{}
		for _, m := range l.Nearby(p, radius) {
			got[m.ID] = true
		}
		for _, m := range all {
			want := DistanceMeters(p, m.At) <= radius
			if want != got[m.ID] {
				t.Fatalf("marker %d at %.1fm (radius %.1f): indexed=%v brute=%v",
					m.ID, DistanceMeters(p, m.At), radius, got[m.ID], want)
			}
		}
	}
}

func TestScatterStaysInside(t *testing.T) {
	l := testLocale()
	rng := entropy.NewStream(4)
	for i := 0; i < 500; i++ {
		p := l.Scatter(Point{X: 1, Y: 1}, 100, rng)
		if !l.Contains(p) {
			t.Fatalf("scattered point %+v outside locale", p)
		}
		if DistanceMeters(p, Point{X: 1, Y: 1}) > 100+1e-9 {
			t.Fatalf("scattered point too far: %f", DistanceMeters(p, Point{X: 1, Y: 1}))
		}
	}
}

func TestSampleTrafficPointPrefersBusyCells(t *testing.T) {
	l := testLocale()
	rng := entropy.NewStream(12)
	busy, quiet := 0.0, 0.0
	for i := 0; i < 3000; i++ {
		p := l.SampleTrafficPoint(rng)
		if !l.Contains(p) {
			t.Fatalf("sampled point %+v outside locale", p)
		}
		busy += l.Traffic(p)
		quiet += l.Traffic(l.RandomPoint(rng))
	}
	if busy <= quiet {
		t.Errorf("traffic-weighted sampling (%f) should beat uniform (%f)", busy, quiet)
	}
	if math.IsNaN(busy) {
		t.Fatal("NaN traffic")
	}
}
