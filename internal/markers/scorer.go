package markers

import (
	"github.com/talgya/stickersim/internal/agents"
	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/world"
)

// ScanEvent is one scanner scanning one marker. Owner may be nil when the
// owner is unknown to the caller.
type ScanEvent struct {
	Scanner  *agents.Player
	Owner    *agents.Player
	Marker   *Marker
	Day      int
	Location world.Point
}

// ScanResult reports what a scan computed, what was credited, and which
// bonuses fired.
type ScanResult struct {
	MarkerID  MarkerID        `json:"marker_id"`
	ScannerID agents.PlayerID `json:"scanner_id"`

	Cooldown bool `json:"cooldown"`
	SelfScan bool `json:"self_scan"`
	Unique   bool `json:"unique"`
	Geo      bool `json:"geo"`
	Venue    bool `json:"venue"`
	Sneeze   bool `json:"sneeze"`
	Hub      bool `json:"hub"`

	Rate float64 `json:"rate"` // diminishing-returns rate applied

	OwnerPoints     float64 `json:"owner_points"`
	ScannerPoints   float64 `json:"scanner_points"`
	OwnerCredited   float64 `json:"owner_credited"`
	ScannerCredited float64 `json:"scanner_credited"`
	Discarded       float64 `json:"discarded"`

	OwnerLevelUps   int `json:"owner_level_ups"`
	ScannerLevelUps int `json:"scanner_level_ups"`
}

// Credited returns the total points that reached players.
func (r ScanResult) Credited() float64 {
	return r.OwnerCredited + r.ScannerCredited
}

// Scorer resolves scans against one run's configuration.
type Scorer struct {
	cfg   *config.Config
	event float64
}

// NewScorer creates a scorer with no event running.
func NewScorer(cfg *config.Config) *Scorer {
	return &Scorer{cfg: cfg, event: 1}
}

// SetEventMultiplier sets the multiplier applied to all scan earnings.
func (s *Scorer) SetEventMultiplier(m float64) {
	s.event = m
}

// EventMultiplier returns the current event multiplier.
func (s *Scorer) EventMultiplier() float64 {
	return s.event
}

// DiminishingRate returns the owner rate for the k-th scan (0-based) of a
// marker on one day. The first threshold scans earn the full first rate;
// later scans walk down the table and stay on its last entry.
func DiminishingRate(rates []float64, threshold, k int) float64 {
	if len(rates) == 0 {
		return 0
	}
	if k < threshold {
		return rates[0]
	}
	return rates[min(k-threshold+1, len(rates)-1)]
}

// Resolve scores one scan, updates the marker and both players, and
// credits earnings under the daily passive and rolling weekly caps.
func (s *Scorer) Resolve(ev ScanEvent) ScanResult {
	cfg := s.cfg
	m, sc, owner, day := ev.Marker, ev.Scanner, ev.Owner, ev.Day
	res := ScanResult{MarkerID: m.ID, ScannerID: sc.ID}

	if sc.ID == m.OwnerID {
		res.SelfScan = true
		return res
	}
	if !sc.Ledger.CanScan(uint64(m.ID), day, cfg.ScanCooldownHours) {
		res.Cooldown = true
		return res
	}

	m.rollDay(day)
	res.Rate = DiminishingRate(cfg.DiminishingRates, cfg.DiminishingThreshold, m.ScansToday)
	ownerRaw := cfg.OwnerBasePoints * res.Rate * m.ValueFraction()
	scannerRaw := cfg.ScannerBasePoints

	if m.ScansToday > 0 && world.DistanceMeters(ev.Location, m.LastScanLocation) >= cfg.GeoDiversityRadius {
		ownerRaw += cfg.GeoDiversityBonus
		res.Geo = true
	}

	ownerEligible := owner != nil && owner.ID == m.OwnerID && owner.IsActive()

	if !m.HasScanner(sc.ID) {
		res.Unique = true
		scannerRaw += cfg.UniqueScannerBonus
		m.UniqueScanners = append(m.UniqueScanners, sc.ID)
		m.UniqueScansToday++
		m.LastUniqueScanDay = day
		if s.joinChain(m, owner, ownerEligible, day) {
			ownerRaw += cfg.SocialSneezeBonus
			res.Sneeze = true
		}
	}

	if sc.Ledger.FirstVenueThisWeek(m.Venue, day) {
		scannerRaw += cfg.VenueVarietyBonus
		res.Venue = true
	}

	m.ScansToday++
	m.TotalScans++
	m.LastScanLocation = ev.Location
	sc.Ledger.MarkScanned(uint64(m.ID), day)
	sc.Scans++

	hub := 1.0
	if m.InHub {
		hub = cfg.SocialHubScanBonus
		res.Hub = true
	}

	res.ScannerPoints = scannerRaw * sc.EarningMultiplier(day, cfg) * s.event * hub
	res.ScannerCredited = min(res.ScannerPoints, sc.Ledger.WeeklyRemaining(day, cfg.WeeklyEarnCap))
	sc.Ledger.Record(day, res.ScannerCredited, false)
	res.ScannerLevelUps = sc.Credit(res.ScannerCredited, cfg)

	if ownerEligible {
		res.OwnerPoints = ownerRaw * owner.EarningMultiplier(day, cfg) * s.event * hub
		res.OwnerCredited = min(
			res.OwnerPoints,
			owner.Ledger.PassiveRemaining(day, cfg.DailyPassiveCap),
			owner.Ledger.WeeklyRemaining(day, cfg.WeeklyEarnCap),
		)
		owner.Ledger.Record(day, res.OwnerCredited, true)
		res.OwnerLevelUps = owner.Credit(res.OwnerCredited, cfg)
	} else {
		res.OwnerPoints = ownerRaw * s.event * hub
	}

	res.Discarded = res.ScannerPoints - res.ScannerCredited + res.OwnerPoints - res.OwnerCredited
	return res
}

// joinChain adds a unique scan to the marker's sneeze chain and reports
// whether it completed the chain and earned the owner a bonus.
func (s *Scorer) joinChain(m *Marker, owner *agents.Player, ownerEligible bool, day int) bool {
	cfg := s.cfg
	if m.ChainOrigin != agents.NoWindow && day-m.ChainOrigin >= cfg.SocialSneezeWindowDays {
		m.ChainOrigin = agents.NoWindow
	}
	if m.ChainOrigin == agents.NoWindow {
		m.ChainOrigin = day
		m.ChainScans = 0
		m.ChainRewarded = false
		return false
	}

	m.ChainScans++
	if m.ChainRewarded || m.ChainScans < cfg.SocialSneezeThreshold || !ownerEligible {
		return false
	}
	if owner.Ledger.SneezeAwards(day) >= cfg.SocialSneezeCap {
		return false
	}
	m.ChainRewarded = true
	owner.Ledger.RecordSneeze(day)
	return true
}
