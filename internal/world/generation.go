// Locale generation using layered simplex noise for foot traffic.
package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds locale generation parameters.
type GenConfig struct {
	SizeMeters  float64 // Side of the square play area
	CellMeters  float64 // Cell circumradius
	HubCount    int     // Social hubs to place
	Seed        int64
	Octaves     int
	Frequency   float64 // Noise frequency per cell
	Persistence float64
	MinTraffic  float64 // Floor so no cell is unreachable
}

// DefaultGenConfig returns a quarter-square-mile locale.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		SizeMeters:  804.5,
		CellMeters:  60,
		HubCount:    4,
		Octaves:     4,
		Frequency:   0.12,
		Persistence: 0.5,
		MinTraffic:  0.05,
	}
}

// GenerateLocale builds the cell grid, the traffic field and the social hubs.
// The result depends only on cfg, so a run can regenerate its locale from the
// seed instead of storing it.
func GenerateLocale(cfg GenConfig) *Locale {
	l := newLocale(cfg.SizeMeters, cfg.CellMeters)
	noise := opensimplex.NewNormalized(cfg.Seed)

	size := cfg.CellMeters
	rMax := int(math.Ceil(cfg.SizeMeters/(1.5*size))) + 2
	qMax := int(math.Ceil(cfg.SizeMeters/(math.Sqrt(3)*size))) + rMax + 2

	for r := -2; r <= rMax; r++ {
		for q := -qMax; q <= qMax; q++ {
			coord := HexCoord{Q: q, R: r}
			center := hexCenter(coord, size)
			if center.X < -size || center.Y < -size || center.X > cfg.SizeMeters+size || center.Y > cfg.SizeMeters+size {
				continue
			}

			// Sample noise in cell units so the field scales with the grid.
			x := center.X / size
			y := center.Y / size
			t := octaveNoise(noise, x, y, cfg.Octaves, cfg.Frequency, cfg.Persistence)
			// Sharpen so busy streets stand out from quiet blocks.
			t = t * t
			traffic := cfg.MinTraffic + (1-cfg.MinTraffic)*t

			l.add(&Cell{Coord: coord, Center: center, Traffic: traffic})
		}
	}

	l.finalize()
	placeHubs(l, cfg.HubCount)
	return l
}

// octaveNoise returns fractal noise in [0, 1] from a normalized generator.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	if maxVal == 0 {
		return 0
	}
	return total / maxVal
}
