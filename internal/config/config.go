// Package config holds the economy parameters consumed by every part of the
// simulator. A Config is loaded from YAML or a key/value map, validated once,
// and then treated as read-only by a run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// TypeRatios is a categorical distribution over the three player types.
type TypeRatios struct {
	Whale   float64 `json:"whale" yaml:"whale"`
	Grinder float64 `json:"grinder" yaml:"grinder"`
	Casual  float64 `json:"casual" yaml:"casual"`
}

// Sum returns the total weight.
func (r TypeRatios) Sum() float64 {
	return r.Whale + r.Grinder + r.Casual
}

// Config is the complete parameter set for one simulation run.
type Config struct {
	// Simulation
	MaxDays             int        `json:"max_days" yaml:"max_days"`
	StartingPlayerCount int        `json:"starting_player_count" yaml:"starting_player_count"`
	StartingTypeRatios  TypeRatios `json:"starting_type_ratios" yaml:"starting_type_ratios"`

	// Locale
	LocaleSizeMeters     float64 `json:"locale_size_meters" yaml:"locale_size_meters"`
	LocaleCellMeters     float64 `json:"locale_cell_meters" yaml:"locale_cell_meters"`
	SocialHubCount       int     `json:"social_hub_count" yaml:"social_hub_count"`
	SocialHubRadius      float64 `json:"social_hub_radius_meters" yaml:"social_hub_radius_meters"`
	SocialHubScanBonus   float64 `json:"social_hub_scan_bonus" yaml:"social_hub_scan_bonus"`
	MaxScanDistance      float64 `json:"max_scan_distance_meters" yaml:"max_scan_distance_meters"`
	StickerDensityPerQSM float64 `json:"sticker_density_per_quarter_sq_mile" yaml:"sticker_density_per_quarter_sq_mile"`

	// Scoring
	OwnerBasePoints      float64   `json:"owner_base_points" yaml:"owner_base_points"`
	ScannerBasePoints    float64   `json:"scanner_base_points" yaml:"scanner_base_points"`
	UniqueScannerBonus   float64   `json:"unique_scanner_bonus" yaml:"unique_scanner_bonus"`
	DiminishingThreshold int       `json:"diminishing_threshold" yaml:"diminishing_threshold"`
	DiminishingRates     []float64 `json:"diminishing_rates" yaml:"diminishing_rates"`

	// Diversity
	GeoDiversityRadius float64   `json:"geo_diversity_radius" yaml:"geo_diversity_radius"`
	GeoDiversityBonus  float64   `json:"geo_diversity_bonus" yaml:"geo_diversity_bonus"`
	VenueVarietyBonus  float64   `json:"venue_variety_bonus" yaml:"venue_variety_bonus"`
	VenueTypes         []string  `json:"venue_types" yaml:"venue_types"`
	VenueTypeWeights   []float64 `json:"venue_type_weights" yaml:"venue_type_weights"`

	// Social
	SocialSneezeThreshold  int     `json:"social_sneeze_threshold" yaml:"social_sneeze_threshold"`
	SocialSneezeBonus      float64 `json:"social_sneeze_bonus" yaml:"social_sneeze_bonus"`
	SocialSneezeCap        int     `json:"social_sneeze_cap" yaml:"social_sneeze_cap"`
	SocialSneezeWindowDays int     `json:"social_sneeze_window_days" yaml:"social_sneeze_window_days"`

	// Leveling
	PointsPerLevel   int       `json:"points_per_level" yaml:"points_per_level"`
	MaxLevel         int       `json:"max_level" yaml:"max_level"`
	LevelMultipliers []float64 `json:"level_multipliers" yaml:"level_multipliers"`

	// Monetization
	PackPricePoints            int     `json:"pack_price_points" yaml:"pack_price_points"`
	PackPriceDollars           float64 `json:"pack_price_dollars" yaml:"pack_price_dollars"`
	PointsPerDollar            float64 `json:"points_per_dollar" yaml:"points_per_dollar"`
	StickersPerPack            int     `json:"stickers_per_pack" yaml:"stickers_per_pack"`
	WhalePurchaseProbability   float64 `json:"whale_purchase_probability" yaml:"whale_purchase_probability"`
	WhaleTopupMin              float64 `json:"whale_topup_min" yaml:"whale_topup_min"`
	WhaleTopupMax              float64 `json:"whale_topup_max" yaml:"whale_topup_max"`
	GrinderPurchaseProbability float64 `json:"grinder_purchase_probability" yaml:"grinder_purchase_probability"`
	GrinderTopupMin            float64 `json:"grinder_topup_min" yaml:"grinder_topup_min"`
	GrinderTopupMax            float64 `json:"grinder_topup_max" yaml:"grinder_topup_max"`
	CasualPurchaseProbability  float64 `json:"casual_purchase_probability" yaml:"casual_purchase_probability"`
	CasualTopupMin             float64 `json:"casual_topup_min" yaml:"casual_topup_min"`
	CasualTopupMax             float64 `json:"casual_topup_max" yaml:"casual_topup_max"`
	GrinderReinvestOnLevelUp   bool    `json:"grinder_reinvest_on_levelup" yaml:"grinder_reinvest_on_levelup"`
	GrinderReinvestFraction    float64 `json:"grinder_reinvest_fraction" yaml:"grinder_reinvest_fraction"`
	StartingPoints             float64 `json:"starting_points" yaml:"starting_points"`

	// Caps
	DailyScanCap          int     `json:"daily_scan_cap" yaml:"daily_scan_cap"`
	DailyPassiveCap       float64 `json:"daily_passive_cap" yaml:"daily_passive_cap"`
	WeeklyEarnCap         float64 `json:"weekly_earn_cap" yaml:"weekly_earn_cap"`
	ScanCooldownHours     int     `json:"sticker_scan_cooldown_hours" yaml:"sticker_scan_cooldown_hours"`
	PlacementCooldownDays int     `json:"sticker_placement_cooldown_days" yaml:"sticker_placement_cooldown_days"`

	// Decay
	StickerDecayRate float64 `json:"sticker_decay_rate" yaml:"sticker_decay_rate"`
	StickerMinValue  float64 `json:"sticker_min_value" yaml:"sticker_min_value"`

	// Bonuses
	StreakBonusDays           int     `json:"streak_bonus_days" yaml:"streak_bonus_days"`
	StreakBonusMultiplier     float64 `json:"streak_bonus_multiplier" yaml:"streak_bonus_multiplier"`
	StreakBonusDurationDays   int     `json:"streak_bonus_duration_days" yaml:"streak_bonus_duration_days"`
	ComebackBonusDays         int     `json:"comeback_bonus_days" yaml:"comeback_bonus_days"`
	ComebackBonusMultiplier   float64 `json:"comeback_bonus_multiplier" yaml:"comeback_bonus_multiplier"`
	ComebackBonusDurationDays int     `json:"comeback_bonus_duration_days" yaml:"comeback_bonus_duration_days"`
	NewPlayerBonusDays        int     `json:"new_player_bonus_days" yaml:"new_player_bonus_days"`
	NewPlayerBonusMultiplier  float64 `json:"new_player_bonus_multiplier" yaml:"new_player_bonus_multiplier"`
	NewPlayerFreePacks        int     `json:"new_player_free_packs" yaml:"new_player_free_packs"`

	// Churn
	ChurnProbabilityWhale        float64 `json:"churn_probability_whale" yaml:"churn_probability_whale"`
	ChurnProbabilityGrinder      float64 `json:"churn_probability_grinder" yaml:"churn_probability_grinder"`
	ChurnProbabilityCasual       float64 `json:"churn_probability_casual" yaml:"churn_probability_casual"`
	ChurnStreakDays              int     `json:"churn_streak_days" yaml:"churn_streak_days"`
	ChurnStreakReduction         float64 `json:"churn_streak_reduction" yaml:"churn_streak_reduction"`
	ChurnSpendReduction          float64 `json:"churn_spend_reduction" yaml:"churn_spend_reduction"`
	ChurnLevelThreshold          int     `json:"churn_level_threshold" yaml:"churn_level_threshold"`
	ChurnLevelReduction          float64 `json:"churn_level_reduction" yaml:"churn_level_reduction"`
	ChurnInactivityMaxMultiplier float64 `json:"churn_inactivity_max_multiplier" yaml:"churn_inactivity_max_multiplier"`
	ChurnInactivityRampDays      int     `json:"churn_inactivity_ramp_days" yaml:"churn_inactivity_ramp_days"`

	// Growth
	NewPlayerDailyProbability float64    `json:"new_player_daily_probability" yaml:"new_player_daily_probability"`
	NewPlayerTypeRatios       TypeRatios `json:"new_player_type_ratios" yaml:"new_player_type_ratios"`
	TotalPopulation           int        `json:"total_population" yaml:"total_population"`
	PopulationCapFraction     float64    `json:"population_cap_fraction" yaml:"population_cap_fraction"`
	OrganicMarkerGrowth       bool       `json:"organic_marker_growth" yaml:"organic_marker_growth"`
	OrganicGrowthRateMin      float64    `json:"organic_growth_rate_min" yaml:"organic_growth_rate_min"`
	OrganicGrowthRateMax      float64    `json:"organic_growth_rate_max" yaml:"organic_growth_rate_max"`
	OrganicGrowthTagThreshold int        `json:"organic_growth_tags_threshold" yaml:"organic_growth_tags_threshold"`
	ViralEnabled              bool       `json:"viral_enabled" yaml:"viral_enabled"`
	ViralEventCooldownDays    int        `json:"viral_event_cooldown_days" yaml:"viral_event_cooldown_days"`
	ViralEventMaxIntervalDays int        `json:"viral_event_max_interval_days" yaml:"viral_event_max_interval_days"`
	ViralInitialProbability   float64    `json:"viral_initial_probability" yaml:"viral_initial_probability"`
	ViralRecruiterFraction    float64    `json:"viral_recruiter_fraction" yaml:"viral_recruiter_fraction"`
	ReferralSuccessRate       float64    `json:"referral_success_rate" yaml:"referral_success_rate"`
	MaxViralRecruitsPerEvent  int        `json:"max_viral_recruits_per_event" yaml:"max_viral_recruits_per_event"`
	ReferralRewardMultiplier  float64    `json:"referral_reward_multiplier" yaml:"referral_reward_multiplier"`
	ReferralRewardDays        int        `json:"referral_reward_days" yaml:"referral_reward_days"`

	// Events
	EventMode             string  `json:"event_mode" yaml:"event_mode"`
	EventFrequencyDays    int     `json:"event_frequency_days" yaml:"event_frequency_days"`
	EventDurationDays     int     `json:"event_duration_days" yaml:"event_duration_days"`
	EventBonusMultiplier  float64 `json:"event_bonus_multiplier" yaml:"event_bonus_multiplier"`
	EventGrowthMultiplier float64 `json:"event_growth_multiplier" yaml:"event_growth_multiplier"`
}

// Event scheduling modes.
const (
	EventModeRandom   = "random"
	EventModePeriodic = "periodic"
)

// Default returns the baseline economy.
func Default() *Config {
	return &Config{
		MaxDays:             270,
		StartingPlayerCount: 50,
		StartingTypeRatios:  TypeRatios{Whale: 0.05, Grinder: 0.25, Casual: 0.70},

		LocaleSizeMeters:     804.5,
		LocaleCellMeters:     60,
		SocialHubCount:       4,
		SocialHubRadius:      50,
		SocialHubScanBonus:   1.5,
		MaxScanDistance:      400,
		StickerDensityPerQSM: 500,

		OwnerBasePoints:      2.0,
		ScannerBasePoints:    1.0,
		UniqueScannerBonus:   1.0,
		DiminishingThreshold: 3,
		DiminishingRates:     []float64{1.0, 0.5, 0.25},

		GeoDiversityRadius: 500,
		GeoDiversityBonus:  1.0,
		VenueVarietyBonus:  1.0,
		VenueTypes:         []string{"restaurant", "cafe", "shop", "park", "school"},
		VenueTypeWeights:   []float64{0.3, 0.2, 0.2, 0.2, 0.1},

		SocialSneezeThreshold:  3,
		SocialSneezeBonus:      3.0,
		SocialSneezeCap:        1,
		SocialSneezeWindowDays: 7,

		PointsPerLevel:   100,
		MaxLevel:         20,
		LevelMultipliers: []float64{1.0, 1.05, 1.10, 1.15, 1.20},

		PackPricePoints:            300,
		PackPriceDollars:           3.0,
		PointsPerDollar:            100,
		StickersPerPack:            6,
		WhalePurchaseProbability:   0.12,
		WhaleTopupMin:              5,
		WhaleTopupMax:              50,
		GrinderPurchaseProbability: 0.03,
		GrinderTopupMin:            3,
		GrinderTopupMax:            9,
		CasualPurchaseProbability:  0.01,
		CasualTopupMin:             3,
		CasualTopupMax:             3,
		GrinderReinvestOnLevelUp:   true,
		GrinderReinvestFraction:    1.0,
		StartingPoints:             100,

		DailyScanCap:          20,
		DailyPassiveCap:       100,
		WeeklyEarnCap:         500,
		ScanCooldownHours:     11,
		PlacementCooldownDays: 1,

		StickerDecayRate: 0.1,
		StickerMinValue:  0.1,

		StreakBonusDays:           7,
		StreakBonusMultiplier:     1.5,
		StreakBonusDurationDays:   7,
		ComebackBonusDays:         3,
		ComebackBonusMultiplier:   2.0,
		ComebackBonusDurationDays: 2,
		NewPlayerBonusDays:        7,
		NewPlayerBonusMultiplier:  2.0,
		NewPlayerFreePacks:        1,

		ChurnProbabilityWhale:        0.0005,
		ChurnProbabilityGrinder:      0.0008,
		ChurnProbabilityCasual:       0.002,
		ChurnStreakDays:              14,
		ChurnStreakReduction:         0.7,
		ChurnSpendReduction:          0.3,
		ChurnLevelThreshold:          10,
		ChurnLevelReduction:          0.4,
		ChurnInactivityMaxMultiplier: 4.0,
		ChurnInactivityRampDays:      14,

		NewPlayerDailyProbability: 0.01,
		NewPlayerTypeRatios:       TypeRatios{Whale: 0.05, Grinder: 0.25, Casual: 0.70},
		TotalPopulation:           2500,
		PopulationCapFraction:     0.4,
		OrganicMarkerGrowth:       false,
		OrganicGrowthRateMin:      0.002,
		OrganicGrowthRateMax:      0.005,
		OrganicGrowthTagThreshold: 50,
		ViralEnabled:              true,
		ViralEventCooldownDays:    10,
		ViralEventMaxIntervalDays: 18,
		ViralInitialProbability:   0.1,
		ViralRecruiterFraction:    0.2,
		ReferralSuccessRate:       0.25,
		MaxViralRecruitsPerEvent:  25,
		ReferralRewardMultiplier:  1.5,
		ReferralRewardDays:        7,

		EventMode:             EventModeRandom,
		EventFrequencyDays:    30,
		EventDurationDays:     7,
		EventBonusMultiplier:  1.5,
		EventGrowthMultiplier: 2.0,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.DiminishingRates = append([]float64(nil), c.DiminishingRates...)
	out.VenueTypes = append([]string(nil), c.VenueTypes...)
	out.VenueTypeWeights = append([]float64(nil), c.VenueTypeWeights...)
	out.LevelMultipliers = append([]float64(nil), c.LevelMultipliers...)
	return &out
}

// PopulationCap is the maximum number of active players the locale supports.
func (c *Config) PopulationCap() int {
	return int(float64(c.TotalPopulation) * c.PopulationCapFraction)
}

// MarkerCapacity is the maximum number of markers the locale holds, derived
// from the sticker density over the locale's area.
func (c *Config) MarkerCapacity() int {
	side := c.LocaleSizeMeters / 1000 / 1.609
	quarterSqMiles := side * side / 0.25
	return int(math.Round(c.StickerDensityPerQSM * quarterSqMiles))
}

// LevelMultiplier returns the earnings multiplier for a level.
func (c *Config) LevelMultiplier(level int) float64 {
	if len(c.LevelMultipliers) == 0 {
		return 1
	}
	if level < 0 {
		level = 0
	}
	if level >= len(c.LevelMultipliers) {
		level = len(c.LevelMultipliers) - 1
	}
	return c.LevelMultipliers[level]
}

// LoadFromFile reads a YAML parameter file. Keys missing from the file keep
// their defaults; unknown keys are rejected.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg, err := FromMap(raw)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return cfg, nil
}

// FromMap builds a Config from a parameter name → value mapping layered over
// Default. Every unknown key and every value of the wrong type is reported in
// one *Error.
func FromMap(values map[string]any) (*Config, error) {
	cfg := Default()
	if len(values) == 0 {
		return cfg, nil
	}

	known := knownKeys()
	var unknown []FieldError
	for key := range values {
		if !known[key] {
			unknown = append(unknown, FieldError{Field: key, Reason: "unknown parameter"})
		}
	}
	if len(unknown) > 0 {
		sort.Slice(unknown, func(i, j int) bool { return unknown[i].Field < unknown[j].Field })
		return nil, &Error{Fields: unknown}
	}

	data, err := yaml.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encoding parameters: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			fields := make([]FieldError, 0, len(te.Errors))
			for _, msg := range te.Errors {
				fields = append(fields, FieldError{Field: fieldFromYAMLError(msg), Reason: msg})
			}
			return nil, &Error{Fields: fields}
		}
		return nil, fmt.Errorf("decoding parameters: %w", err)
	}
	return cfg, nil
}

// fieldFromYAMLError pulls the key name out of a yaml.v3 type error message
// of the form "line N: field foo not found in type ..." or
// "line N: cannot unmarshal !!str `x` into float64".
func fieldFromYAMLError(msg string) string {
	if i := strings.Index(msg, "field "); i >= 0 {
		rest := msg[i+len("field "):]
		if j := strings.IndexByte(rest, ' '); j > 0 {
			return rest[:j]
		}
	}
	return ""
}

// Error is a configuration that failed validation. It lists every offending
// field, not just the first.
type Error struct {
	Fields []FieldError
}

// FieldError describes one invalid parameter.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (f FieldError) String() string {
	if f.Field == "" {
		return f.Reason
	}
	if f.Value == nil {
		return f.Field + ": " + f.Reason
	}
	return fmt.Sprintf("%s: %s (got %v)", f.Field, f.Reason, f.Value)
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Has reports whether field is among the offending fields.
func (e *Error) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
