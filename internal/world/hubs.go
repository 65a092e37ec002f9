// Social hub placement: the busiest cells, kept apart from each other.
package world

import "sort"

// placeHubs marks up to count cells as social hubs, preferring high traffic
// and enforcing a minimum spacing that shrinks until enough hubs fit.
func placeHubs(l *Locale, count int) {
	if count <= 0 || len(l.order) == 0 {
		return
	}

	candidates := l.Cells()
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Traffic > candidates[j].Traffic
	})

	// Spread hubs across the locale: start with a spacing that would tile
	// the square with count hubs, then relax it.
	cellsAcross := int(l.Size / (1.5 * l.CellSize))
	minDist := cellsAcross / max(count, 1)
	var hubs []*Cell
	for ; minDist >= 0 && len(hubs) < count; minDist-- {
		hubs = hubs[:0]
		for _, c := range candidates {
			if len(hubs) >= count {
				break
			}
			if !l.Contains(c.Center) {
				continue
			}
			if tooClose(c.Coord, hubs, minDist) {
				continue
			}
			hubs = append(hubs, c)
		}
	}

	l.Hubs = l.Hubs[:0]
	for _, c := range hubs {
		c.Hub = true
		l.Hubs = append(l.Hubs, c.Center)
	}
}

func tooClose(coord HexCoord, existing []*Cell, minDist int) bool {
	for _, c := range existing {
		if Distance(coord, c.Coord) < minDist {
			return true
		}
	}
	return false
}
