// Package markers implements the sticker lifecycle: placement, value decay,
// and scan scoring under the diminishing-returns, diversity, social-sneeze
// and cap rules.
package markers

import (
	"github.com/talgya/stickersim/internal/agents"
	"github.com/talgya/stickersim/internal/world"
)

// MarkerID uniquely identifies a placed sticker within one run.
type MarkerID uint64

// Marker is a placed sticker. Markers are never removed.
type Marker struct {
	ID          MarkerID        `json:"id"`
	OwnerID     agents.PlayerID `json:"owner_id"`
	Location    world.Point     `json:"location"`
	Cell        world.HexCoord  `json:"cell"`
	Venue       string          `json:"venue"`
	CreationDay int             `json:"creation_day"`
	InHub       bool            `json:"in_hub"`

	BaseValue float64 `json:"base_value"`
	Value     float64 `json:"value"`

	// UniqueScanners is append-only, in first-scan order.
	UniqueScanners []agents.PlayerID `json:"unique_scanners"`
	TotalScans     int               `json:"total_scans"`

	// Per-day counters; valid only while ScanDay equals the current day.
	ScanDay          int         `json:"scan_day"`
	ScansToday       int         `json:"scans_today"`
	UniqueScansToday int         `json:"unique_scans_today"`
	LastScanLocation world.Point `json:"last_scan_location"`

	LastUniqueScanDay int `json:"last_unique_scan_day"`

	// Social sneeze chain. ChainOrigin is agents.NoWindow when no chain
	// is open.
	ChainOrigin   int  `json:"chain_origin"`
	ChainScans    int  `json:"chain_scans"`
	ChainRewarded bool `json:"chain_rewarded"`
}

// NewMarker creates a fresh marker worth its full base value.
func NewMarker(id MarkerID, owner agents.PlayerID, at world.Point, cell world.HexCoord, venue string, day int) *Marker {
	return &Marker{
		ID:                id,
		OwnerID:           owner,
		Location:          at,
		Cell:              cell,
		Venue:             venue,
		CreationDay:       day,
		BaseValue:         1,
		Value:             1,
		ScanDay:           agents.NoWindow,
		LastUniqueScanDay: agents.NoWindow,
		ChainOrigin:       agents.NoWindow,
	}
}

// ValueFraction is the current value relative to the base value.
func (m *Marker) ValueFraction() float64 {
	if m.BaseValue <= 0 {
		return 0
	}
	return m.Value / m.BaseValue
}

// HasScanner reports whether id has scanned this marker before.
func (m *Marker) HasScanner(id agents.PlayerID) bool {
	for _, s := range m.UniqueScanners {
		if s == id {
			return true
		}
	}
	return false
}

// NeedsDecay reports whether the marker went without a unique scan on the
// day before day.
func (m *Marker) NeedsDecay(day int) bool {
	return m.LastUniqueScanDay != day-1
}

// Decay reduces the value by rate, never below minFraction of the base.
func (m *Marker) Decay(rate, minFraction float64) {
	floor := minFraction * m.BaseValue
	m.Value = max(m.Value*(1-rate), floor)
}

// rollDay resets the per-day counters when day differs from the last scan day.
func (m *Marker) rollDay(day int) {
	if m.ScanDay == day {
		return
	}
	m.ScanDay = day
	m.ScansToday = 0
	m.UniqueScansToday = 0
}
