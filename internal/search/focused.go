package search

import (
	"fmt"
	"sort"
)

// Focused grid categories.
const (
	CategoryPackPricing = "pack_pricing"
	CategoryScoring     = "scoring"
	CategoryDiversity   = "diversity"
	CategoryRetention   = "retention"
	CategoryEngagement  = "engagement"
	CategoryDecay       = "decay"
)

// Categories lists the focused categories in run order.
var Categories = []string{
	CategoryPackPricing,
	CategoryScoring,
	CategoryDiversity,
	CategoryRetention,
	CategoryEngagement,
	CategoryDecay,
}

// GridPoint is one hand-picked variation of the base configuration.
type GridPoint struct {
	Label  string             `json:"label"`
	Params map[string]float64 `json:"params"`
}

type kv = map[string]float64

var focusedGrids = map[string][]GridPoint{
	CategoryPackPricing: {
		{"Low Price, Low Points", kv{"pack_price_dollars": 2.0, "pack_price_points": 200}},
		{"Low Price, Med Points", kv{"pack_price_dollars": 2.5, "pack_price_points": 250}},
		{"Base Price, Base Points", kv{"pack_price_dollars": 3.0, "pack_price_points": 300}},
		{"Base Price, Low Points", kv{"pack_price_dollars": 3.0, "pack_price_points": 250}},
		{"Base Price, High Points", kv{"pack_price_dollars": 3.0, "pack_price_points": 350}},
		{"High Price, Base Points", kv{"pack_price_dollars": 3.5, "pack_price_points": 300}},
		{"High Price, High Points", kv{"pack_price_dollars": 4.0, "pack_price_points": 400}},
	},
	CategoryScoring: {
		{"Low Base Scoring", kv{"owner_base_points": 1.5, "scanner_base_points": 0.75}},
		{"Base Scoring", kv{"owner_base_points": 2.0, "scanner_base_points": 1.0}},
		{"High Base Scoring", kv{"owner_base_points": 2.5, "scanner_base_points": 1.25}},
		{"Very High Base Scoring", kv{"owner_base_points": 3.0, "scanner_base_points": 1.5}},
		{"Low Unique Bonus", kv{"owner_base_points": 2.0, "scanner_base_points": 1.0, "unique_scanner_bonus": 0.5}},
		{"High Unique Bonus", kv{"owner_base_points": 2.0, "scanner_base_points": 1.0, "unique_scanner_bonus": 1.5}},
		{"Very High Unique Bonus", kv{"owner_base_points": 2.0, "scanner_base_points": 1.0, "unique_scanner_bonus": 2.0}},
	},
	CategoryDiversity: {
		{"Low Diversity Bonuses", kv{"geo_diversity_bonus": 0.5, "venue_variety_bonus": 0.5}},
		{"Base Diversity Bonuses", kv{"geo_diversity_bonus": 1.0, "venue_variety_bonus": 1.0}},
		{"High Diversity Bonuses", kv{"geo_diversity_bonus": 1.5, "venue_variety_bonus": 1.5}},
		{"Very High Diversity Bonuses", kv{"geo_diversity_bonus": 2.0, "venue_variety_bonus": 2.0}},
		{"Small Geo Radius", kv{"geo_diversity_radius": 300}},
		{"Base Geo Radius", kv{"geo_diversity_radius": 500}},
		{"Large Geo Radius", kv{"geo_diversity_radius": 750}},
		{"Very Large Geo Radius", kv{"geo_diversity_radius": 1000}},
	},
	CategoryRetention: {
		{"Low Churn", kv{"churn_probability_grinder": 0.0005, "churn_probability_casual": 0.001}},
		{"Base Churn", kv{"churn_probability_grinder": 0.001, "churn_probability_casual": 0.002}},
		{"High Churn", kv{"churn_probability_grinder": 0.002, "churn_probability_casual": 0.004}},
		{"Low Streak Bonus", kv{"streak_bonus_multiplier": 1.2}},
		{"Base Streak Bonus", kv{"streak_bonus_multiplier": 1.5}},
		{"High Streak Bonus", kv{"streak_bonus_multiplier": 2.0}},
		{"Low Comeback Bonus", kv{"comeback_bonus_multiplier": 1.5}},
		{"Base Comeback Bonus", kv{"comeback_bonus_multiplier": 2.0}},
		{"High Comeback Bonus", kv{"comeback_bonus_multiplier": 3.0}},
	},
	CategoryEngagement: {
		{"Low Scan Cap", kv{"daily_scan_cap": 10}},
		{"Base Scan Cap", kv{"daily_scan_cap": 20}},
		{"High Scan Cap", kv{"daily_scan_cap": 30}},
		{"Low Weekly Cap", kv{"weekly_earn_cap": 300}},
		{"Base Weekly Cap", kv{"weekly_earn_cap": 500}},
		{"High Weekly Cap", kv{"weekly_earn_cap": 800}},
		{"Low New Player Bonus", kv{"new_player_bonus_multiplier": 1.5}},
		{"Base New Player Bonus", kv{"new_player_bonus_multiplier": 2.0}},
		{"High New Player Bonus", kv{"new_player_bonus_multiplier": 3.0}},
		{"Low Event Bonus", kv{"event_bonus_multiplier": 1.2}},
		{"Base Event Bonus", kv{"event_bonus_multiplier": 1.5}},
		{"High Event Bonus", kv{"event_bonus_multiplier": 2.0}},
	},
	CategoryDecay: {
		{"Slow Decay, High Min", kv{"sticker_decay_rate": 0.05, "sticker_min_value": 0.2}},
		{"Base Decay, Base Min", kv{"sticker_decay_rate": 0.1, "sticker_min_value": 0.1}},
		{"Fast Decay, Low Min", kv{"sticker_decay_rate": 0.15, "sticker_min_value": 0.05}},
		{"Very Fast Decay, Low Min", kv{"sticker_decay_rate": 0.2, "sticker_min_value": 0.05}},
	},
}

var categoryTitles = map[string]string{
	CategoryPackPricing: "Pack Pricing",
	CategoryScoring:     "Scoring",
	CategoryDiversity:   "Diversity",
	CategoryRetention:   "Retention",
	CategoryEngagement:  "Engagement",
	CategoryDecay:       "Decay",
}

// FocusedGrid returns the grid of one category. Labels are prefixed with
// the category title, e.g. "Decay: Slow Decay, High Min".
func FocusedGrid(category string) ([]GridPoint, error) {
	grid, ok := focusedGrids[category]
	if !ok {
		return nil, fmt.Errorf("unknown focused category %q", category)
	}
	out := make([]GridPoint, len(grid))
	for i, g := range grid {
		params := make(map[string]float64, len(g.Params))
		for k, v := range g.Params {
			params[k] = v
		}
		out[i] = GridPoint{Label: categoryTitles[category] + ": " + g.Label, Params: params}
	}
	return out, nil
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
