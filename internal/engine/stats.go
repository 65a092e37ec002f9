package engine

import (
	"github.com/talgya/stickersim/internal/agents"
	"github.com/talgya/stickersim/internal/economy"
)

// TypeStats breaks one day down by player type.
type TypeStats struct {
	Active    int     `json:"active"`
	New       int     `json:"new"`
	Churned   int     `json:"churned"`
	Revenue   float64 `json:"revenue"`
	Purchases int     `json:"purchases"`
}

// DailyStats is the immutable record of one simulated day.
type DailyStats struct {
	Day int `json:"day"`

	TotalPlayers      int `json:"total_players"` // ever joined
	ActivePlayers     int `json:"active_players"`
	NewPlayers        int `json:"new_players"`
	OrganicNewPlayers int `json:"organic_new_players"`
	ViralRecruits     int `json:"viral_recruits"`
	ChurnedPlayers    int `json:"churned_players"`

	Revenue           float64 `json:"revenue"`
	CumulativeRevenue float64 `json:"cumulative_revenue"`
	PointLiability    float64 `json:"point_liability"` // outstanding points in dollars

	Scans             int     `json:"scans"`
	MarkersPlaced     int     `json:"markers_placed"`
	TotalMarkers      int     `json:"total_markers"`
	PointsDistributed float64 `json:"points_distributed"`
	PointsDiscarded   float64 `json:"points_discarded"`

	PackPurchases      int `json:"pack_purchases"`
	PointPackPurchases int `json:"point_pack_purchases"`
	SneezeBonuses      int `json:"sneeze_bonuses"`

	AvgLevel       float64 `json:"avg_level"`
	AvgStreak      float64 `json:"avg_streak"`
	AvgMarkerValue float64 `json:"avg_marker_value"`

	RetentionRate         float64 `json:"retention_rate"`
	GrowthRate            float64 `json:"growth_rate"`
	ViralCoefficient      float64 `json:"viral_coefficient"`
	PopulationPenetration float64 `json:"population_penetration"`

	EventActive          bool `json:"event_active"`
	ViralEvent           bool `json:"viral_event"`
	PopulationCapReached bool `json:"population_cap_reached"`

	ByType [agents.NumTypes]TypeStats `json:"by_type"`
}

// Totals accumulates counters over the whole run.
type Totals struct {
	Revenue         float64                  `json:"revenue"`
	Scans           int                      `json:"scans"`
	PointsEarned    float64                  `json:"points_earned"`
	PointsDiscarded float64                  `json:"points_discarded"`
	PointPacks      int                      `json:"point_packs"`
	DollarPacks     int                      `json:"dollar_packs"`
	PurchasesByType [agents.NumTypes]int     `json:"purchases_by_type"`
	RevenueByType   [agents.NumTypes]float64 `json:"revenue_by_type"`
	OrganicNew      int                      `json:"organic_new"`
	ViralRecruits   int                      `json:"viral_recruits"`
	Churned         int                      `json:"churned"`
	SneezeBonuses   int                      `json:"sneeze_bonuses"`
	PeakActive      int                      `json:"peak_active"`
}

// dayCounters collects one day's events while the phases run.
type dayCounters struct {
	newPlayers        int
	organicNew        int
	viralRecruits     int
	churned           int
	scans             int
	placed            int
	sneezes           int
	pointsDistributed float64
	pointsDiscarded   float64
	receipt           economy.Receipt
	byType            [agents.NumTypes]TypeStats
	activeAtGrowth    int
	eventActive       bool
	viralEvent        bool
	capReached        bool
}

// collectStats builds the day's record and folds it into the run totals.
func (s *Simulation) collectStats(day int) DailyStats {
	t := s.today
	st := DailyStats{
		Day:                  day,
		TotalPlayers:         len(s.Players),
		NewPlayers:           t.newPlayers,
		OrganicNewPlayers:    t.organicNew,
		ViralRecruits:        t.viralRecruits,
		ChurnedPlayers:       t.churned,
		Revenue:              t.receipt.Revenue,
		Scans:                t.scans,
		MarkersPlaced:        t.placed,
		TotalMarkers:         len(s.Markers),
		PointsDistributed:    t.pointsDistributed,
		PointsDiscarded:      t.pointsDiscarded,
		PackPurchases:        t.receipt.Packs(),
		PointPackPurchases:   t.receipt.PointPacks + t.receipt.Reinvested,
		SneezeBonuses:        t.sneezes,
		EventActive:          t.eventActive,
		ViralEvent:           t.viralEvent,
		PopulationCapReached: t.capReached,
		ByType:               t.byType,
	}

	var levels, streaks, points float64
	for _, p := range s.Players {
		if !p.IsActive() {
			continue
		}
		st.ActivePlayers++
		st.ByType[p.Type].Active++
		levels += float64(p.Level)
		streaks += float64(p.ActivityStreak)
		points += p.Points
	}
	if st.ActivePlayers > 0 {
		st.AvgLevel = levels / float64(st.ActivePlayers)
		st.AvgStreak = streaks / float64(st.ActivePlayers)
		st.GrowthRate = float64(t.newPlayers-t.churned) / float64(st.ActivePlayers)
	}
	if st.TotalPlayers > 0 {
		st.RetentionRate = float64(st.ActivePlayers) / float64(st.TotalPlayers)
	}
	if t.activeAtGrowth > 0 {
		st.ViralCoefficient = float64(t.viralRecruits) / float64(t.activeAtGrowth)
	}
	if s.Config.TotalPopulation > 0 {
		st.PopulationPenetration = float64(st.TotalPlayers) / float64(s.Config.TotalPopulation)
	}
	if len(s.Markers) > 0 {
		var value float64
		for _, m := range s.Markers {
			value += m.Value
		}
		st.AvgMarkerValue = value / float64(len(s.Markers))
	}
	st.PointLiability = s.shop.PointLiability(points)

	s.Totals.Scans += t.scans
	s.Totals.PointsEarned += t.pointsDistributed
	s.Totals.PointsDiscarded += t.pointsDiscarded
	s.Totals.SneezeBonuses += t.sneezes
	s.Totals.PeakActive = max(s.Totals.PeakActive, st.ActivePlayers)
	st.CumulativeRevenue = s.Totals.Revenue
	return st
}

// Summary condenses a run into the scalars the search harness scores.
type Summary struct {
	Days               int     `json:"days"`
	TotalPlayers       int     `json:"total_players"`
	ActivePlayers      int     `json:"active_players"`
	PeakActive         int     `json:"peak_active"`
	RetentionRate      float64 `json:"retention_rate"`
	TotalRevenue       float64 `json:"total_revenue"`
	TotalScans         int     `json:"total_scans"`
	TotalMarkers       int     `json:"total_markers"`
	PointsDistributed  float64 `json:"points_distributed"`
	OrganicPurchases   int     `json:"organic_purchases"` // packs bought by non-whales
	WhalePurchases     int     `json:"whale_purchases"`
	GrinderPurchases   int     `json:"grinder_purchases"`
	CasualPurchases    int     `json:"casual_purchases"`
	AvgConsecutiveDays float64 `json:"avg_consecutive_days"`
	OrganicNewPlayers  int     `json:"organic_new_players"`
	ViralRecruits      int     `json:"viral_recruits"`
	ViralEvents        int     `json:"viral_events"`
	Events             int     `json:"events"`
	ActiveWhales       int     `json:"active_whales"`
	ActiveGrinders     int     `json:"active_grinders"`
	ActiveCasuals      int     `json:"active_casuals"`
}

// Summary computes the run summary from the current state.
func (s *Simulation) Summary() Summary {
	sum := Summary{
		Days:              s.Day,
		TotalPlayers:      len(s.Players),
		PeakActive:        s.Totals.PeakActive,
		TotalRevenue:      s.Totals.Revenue,
		TotalScans:        s.Totals.Scans,
		TotalMarkers:      len(s.Markers),
		PointsDistributed: s.Totals.PointsEarned,
		OrganicPurchases:  s.Totals.PurchasesByType[agents.Grinder] + s.Totals.PurchasesByType[agents.Casual],
		WhalePurchases:    s.Totals.PurchasesByType[agents.Whale],
		GrinderPurchases:  s.Totals.PurchasesByType[agents.Grinder],
		CasualPurchases:   s.Totals.PurchasesByType[agents.Casual],
		OrganicNewPlayers: s.Totals.OrganicNew,
		ViralRecruits:     s.Totals.ViralRecruits,
		ViralEvents:       s.Viral.Events,
		Events:            s.Event.Count,
	}
	var streaks float64
	for _, p := range s.Players {
		if !p.IsActive() {
			continue
		}
		sum.ActivePlayers++
		streaks += float64(p.ActivityStreak)
		switch p.Type {
		case agents.Whale:
			sum.ActiveWhales++
		case agents.Grinder:
			sum.ActiveGrinders++
		default:
			sum.ActiveCasuals++
		}
	}
	if sum.ActivePlayers > 0 {
		sum.AvgConsecutiveDays = streaks / float64(sum.ActivePlayers)
	}
	if sum.TotalPlayers > 0 {
		sum.RetentionRate = float64(sum.ActivePlayers) / float64(sum.TotalPlayers)
	}
	return sum
}
