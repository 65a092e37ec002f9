package engine

import "github.com/talgya/stickersim/internal/agents"

// Metric names one per-day series extracted from DailyStats.
type Metric struct {
	Name  string
	Bool  bool // true for flags, aggregated by mode
	Value func(*DailyStats) float64
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Metrics lists every per-day series in a stable order.
var Metrics = []Metric{
	{Name: "total_players", Value: func(d *DailyStats) float64 { return float64(d.TotalPlayers) }},
	{Name: "active_players", Value: func(d *DailyStats) float64 { return float64(d.ActivePlayers) }},
	{Name: "new_players", Value: func(d *DailyStats) float64 { return float64(d.NewPlayers) }},
	{Name: "organic_new_players", Value: func(d *DailyStats) float64 { return float64(d.OrganicNewPlayers) }},
	{Name: "viral_recruits", Value: func(d *DailyStats) float64 { return float64(d.ViralRecruits) }},
	{Name: "churned_players", Value: func(d *DailyStats) float64 { return float64(d.ChurnedPlayers) }},
	{Name: "revenue", Value: func(d *DailyStats) float64 { return d.Revenue }},
	{Name: "cumulative_revenue", Value: func(d *DailyStats) float64 { return d.CumulativeRevenue }},
	{Name: "point_liability", Value: func(d *DailyStats) float64 { return d.PointLiability }},
	{Name: "scans", Value: func(d *DailyStats) float64 { return float64(d.Scans) }},
	{Name: "markers_placed", Value: func(d *DailyStats) float64 { return float64(d.MarkersPlaced) }},
	{Name: "total_markers", Value: func(d *DailyStats) float64 { return float64(d.TotalMarkers) }},
	{Name: "points_distributed", Value: func(d *DailyStats) float64 { return d.PointsDistributed }},
	{Name: "points_discarded", Value: func(d *DailyStats) float64 { return d.PointsDiscarded }},
	{Name: "pack_purchases", Value: func(d *DailyStats) float64 { return float64(d.PackPurchases) }},
	{Name: "point_pack_purchases", Value: func(d *DailyStats) float64 { return float64(d.PointPackPurchases) }},
	{Name: "sneeze_bonuses", Value: func(d *DailyStats) float64 { return float64(d.SneezeBonuses) }},
	{Name: "avg_level", Value: func(d *DailyStats) float64 { return d.AvgLevel }},
	{Name: "avg_streak", Value: func(d *DailyStats) float64 { return d.AvgStreak }},
	{Name: "avg_marker_value", Value: func(d *DailyStats) float64 { return d.AvgMarkerValue }},
	{Name: "retention_rate", Value: func(d *DailyStats) float64 { return d.RetentionRate }},
	{Name: "growth_rate", Value: func(d *DailyStats) float64 { return d.GrowthRate }},
	{Name: "viral_coefficient", Value: func(d *DailyStats) float64 { return d.ViralCoefficient }},
	{Name: "population_penetration", Value: func(d *DailyStats) float64 { return d.PopulationPenetration }},
	{Name: "active_whales", Value: func(d *DailyStats) float64 { return float64(d.ByType[agents.Whale].Active) }},
	{Name: "active_grinders", Value: func(d *DailyStats) float64 { return float64(d.ByType[agents.Grinder].Active) }},
	{Name: "active_casuals", Value: func(d *DailyStats) float64 { return float64(d.ByType[agents.Casual].Active) }},
	{Name: "event_active", Bool: true, Value: func(d *DailyStats) float64 { return flag(d.EventActive) }},
	{Name: "viral_event", Bool: true, Value: func(d *DailyStats) float64 { return flag(d.ViralEvent) }},
	{Name: "population_cap_reached", Bool: true, Value: func(d *DailyStats) float64 { return flag(d.PopulationCapReached) }},
}

// LookupMetric finds a per-day metric by name.
func LookupMetric(name string) (Metric, bool) {
	for _, m := range Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// SummaryKeys lists the keys of Summary.Values in a stable order.
var SummaryKeys = []string{
	"days", "total_players", "active_players", "peak_active", "retention_rate",
	"total_revenue", "total_scans", "total_markers", "points_distributed",
	"organic_purchases", "whale_purchases", "grinder_purchases", "casual_purchases",
	"avg_consecutive_days", "organic_new_players", "viral_recruits", "viral_events",
	"events", "active_whales", "active_grinders", "active_casuals",
}

// Values flattens the summary into named numbers for averaging.
func (s Summary) Values() map[string]float64 {
	return map[string]float64{
		"days":                 float64(s.Days),
		"total_players":        float64(s.TotalPlayers),
		"active_players":       float64(s.ActivePlayers),
		"peak_active":          float64(s.PeakActive),
		"retention_rate":       s.RetentionRate,
		"total_revenue":        s.TotalRevenue,
		"total_scans":          float64(s.TotalScans),
		"total_markers":        float64(s.TotalMarkers),
		"points_distributed":   s.PointsDistributed,
		"organic_purchases":    float64(s.OrganicPurchases),
		"whale_purchases":      float64(s.WhalePurchases),
		"grinder_purchases":    float64(s.GrinderPurchases),
		"casual_purchases":     float64(s.CasualPurchases),
		"avg_consecutive_days": s.AvgConsecutiveDays,
		"organic_new_players":  float64(s.OrganicNewPlayers),
		"viral_recruits":       float64(s.ViralRecruits),
		"viral_events":         float64(s.ViralEvents),
		"events":               float64(s.Events),
		"active_whales":        float64(s.ActiveWhales),
		"active_grinders":      float64(s.ActiveGrinders),
		"active_casuals":       float64(s.ActiveCasuals),
	}
}
