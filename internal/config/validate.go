package config

import (
	"math"
	"strconv"
)

const sumTolerance = 1e-6

type validator struct {
	fields []FieldError
}

func (v *validator) fail(field string, value any, reason string) {
	v.fields = append(v.fields, FieldError{Field: field, Value: value, Reason: reason})
}

func (v *validator) prob(field string, x float64) {
	if math.IsNaN(x) || x < 0 || x > 1 {
		v.fail(field, x, "must be between 0 and 1")
	}
}

func (v *validator) nonNeg(field string, x float64) {
	if math.IsNaN(x) || x < 0 {
		v.fail(field, x, "must be non-negative")
	}
}

func (v *validator) positive(field string, x float64) {
	if math.IsNaN(x) || x <= 0 {
		v.fail(field, x, "must be positive")
	}
}

func (v *validator) atLeast(field string, x, min int) {
	if x < min {
		v.fail(field, x, "must be at least "+strconv.Itoa(min))
	}
}

// multiplier values scale earnings and may not shrink them below zero.
func (v *validator) multiplier(field string, x float64) {
	if math.IsNaN(x) || x < 0 {
		v.fail(field, x, "must be a non-negative multiplier")
	}
}

// topupRange checks a player type's wallet top-up bounds.
func (v *validator) topupRange(kind string, lo, hi float64) {
	v.nonNeg(kind+"_topup_min", lo)
	if math.IsNaN(hi) || hi < lo {
		v.fail(kind+"_topup_max", hi, "must be at least "+kind+"_topup_min")
	}
}

func (v *validator) ratios(field string, r TypeRatios) {
	for _, w := range []float64{r.Whale, r.Grinder, r.Casual} {
		if w < 0 || math.IsNaN(w) {
			v.fail(field, r, "weights must be non-negative")
			return
		}
	}
	if math.Abs(r.Sum()-1) > sumTolerance {
		v.fail(field, r.Sum(), "weights must sum to 1")
	}
}

// Validate checks every parameter against its domain and the documented
// invariants. It returns *Error listing all offending fields, or nil.
func (c *Config) Validate() error {
	v := &validator{}

	v.atLeast("max_days", c.MaxDays, 0)
	v.atLeast("starting_player_count", c.StartingPlayerCount, 0)
	v.ratios("starting_type_ratios", c.StartingTypeRatios)

	v.positive("locale_size_meters", c.LocaleSizeMeters)
	v.positive("locale_cell_meters", c.LocaleCellMeters)
	if c.LocaleCellMeters > 0 && c.LocaleCellMeters > c.LocaleSizeMeters {
		v.fail("locale_cell_meters", c.LocaleCellMeters, "must not exceed locale_size_meters")
	}
	v.atLeast("social_hub_count", c.SocialHubCount, 0)
	v.nonNeg("social_hub_radius_meters", c.SocialHubRadius)
	v.multiplier("social_hub_scan_bonus", c.SocialHubScanBonus)
	v.positive("max_scan_distance_meters", c.MaxScanDistance)
	v.nonNeg("sticker_density_per_quarter_sq_mile", c.StickerDensityPerQSM)

	v.nonNeg("owner_base_points", c.OwnerBasePoints)
	v.nonNeg("scanner_base_points", c.ScannerBasePoints)
	v.nonNeg("unique_scanner_bonus", c.UniqueScannerBonus)
	v.atLeast("diminishing_threshold", c.DiminishingThreshold, 1)
	if len(c.DiminishingRates) == 0 {
		v.fail("diminishing_rates", nil, "must not be empty")
	}
	for i, r := range c.DiminishingRates {
		if r < 0 || math.IsNaN(r) {
			v.fail("diminishing_rates", c.DiminishingRates, "rates must be non-negative")
			break
		}
		if i > 0 && r > c.DiminishingRates[i-1] {
			v.fail("diminishing_rates", c.DiminishingRates, "must be non-increasing")
			break
		}
	}

	v.nonNeg("geo_diversity_radius", c.GeoDiversityRadius)
	v.nonNeg("geo_diversity_bonus", c.GeoDiversityBonus)
	v.nonNeg("venue_variety_bonus", c.VenueVarietyBonus)
	switch {
	case len(c.VenueTypes) == 0:
		v.fail("venue_types", nil, "must not be empty")
	case len(c.VenueTypeWeights) != len(c.VenueTypes):
		v.fail("venue_type_weights", len(c.VenueTypeWeights), "must have one weight per venue type")
	default:
		sum := 0.0
		negative := false
		for _, w := range c.VenueTypeWeights {
			if w < 0 {
				negative = true
			}
			sum += w
		}
		if negative {
			v.fail("venue_type_weights", c.VenueTypeWeights, "weights must be non-negative")
		} else if math.Abs(sum-1) > sumTolerance {
			v.fail("venue_type_weights", sum, "weights must sum to 1")
		}
	}

	v.atLeast("social_sneeze_threshold", c.SocialSneezeThreshold, 1)
	v.nonNeg("social_sneeze_bonus", c.SocialSneezeBonus)
	v.atLeast("social_sneeze_cap", c.SocialSneezeCap, 0)
	v.atLeast("social_sneeze_window_days", c.SocialSneezeWindowDays, 1)

	v.atLeast("points_per_level", c.PointsPerLevel, 1)
	v.atLeast("max_level", c.MaxLevel, 0)
	for i, m := range c.LevelMultipliers {
		if m < 0 || math.IsNaN(m) {
			v.fail("level_multipliers", c.LevelMultipliers, "multipliers must be non-negative")
			break
		}
		if i > 0 && m < c.LevelMultipliers[i-1] {
			v.fail("level_multipliers", c.LevelMultipliers, "must be non-decreasing")
			break
		}
	}

	v.atLeast("pack_price_points", c.PackPricePoints, 1)
	v.positive("pack_price_dollars", c.PackPriceDollars)
	v.positive("points_per_dollar", c.PointsPerDollar)
	v.atLeast("stickers_per_pack", c.StickersPerPack, 1)
	v.prob("whale_purchase_probability", c.WhalePurchaseProbability)
	v.prob("grinder_purchase_probability", c.GrinderPurchaseProbability)
	v.prob("casual_purchase_probability", c.CasualPurchaseProbability)
	v.topupRange("whale", c.WhaleTopupMin, c.WhaleTopupMax)
	v.topupRange("grinder", c.GrinderTopupMin, c.GrinderTopupMax)
	v.topupRange("casual", c.CasualTopupMin, c.CasualTopupMax)
	v.prob("grinder_reinvest_fraction", c.GrinderReinvestFraction)
	v.nonNeg("starting_points", c.StartingPoints)

	v.atLeast("daily_scan_cap", c.DailyScanCap, 0)
	v.nonNeg("daily_passive_cap", c.DailyPassiveCap)
	v.nonNeg("weekly_earn_cap", c.WeeklyEarnCap)
	v.atLeast("sticker_scan_cooldown_hours", c.ScanCooldownHours, 0)
	v.atLeast("sticker_placement_cooldown_days", c.PlacementCooldownDays, 0)

	v.prob("sticker_decay_rate", c.StickerDecayRate)
	v.prob("sticker_min_value", c.StickerMinValue)

	v.atLeast("streak_bonus_days", c.StreakBonusDays, 1)
	v.multiplier("streak_bonus_multiplier", c.StreakBonusMultiplier)
	v.atLeast("streak_bonus_duration_days", c.StreakBonusDurationDays, 0)
	v.atLeast("comeback_bonus_days", c.ComebackBonusDays, 1)
	v.multiplier("comeback_bonus_multiplier", c.ComebackBonusMultiplier)
	v.atLeast("comeback_bonus_duration_days", c.ComebackBonusDurationDays, 0)
	v.atLeast("new_player_bonus_days", c.NewPlayerBonusDays, 0)
	v.multiplier("new_player_bonus_multiplier", c.NewPlayerBonusMultiplier)
	v.atLeast("new_player_free_packs", c.NewPlayerFreePacks, 0)

	v.prob("churn_probability_whale", c.ChurnProbabilityWhale)
	v.prob("churn_probability_grinder", c.ChurnProbabilityGrinder)
	v.prob("churn_probability_casual", c.ChurnProbabilityCasual)
	v.atLeast("churn_streak_days", c.ChurnStreakDays, 1)
	v.prob("churn_streak_reduction", c.ChurnStreakReduction)
	v.prob("churn_spend_reduction", c.ChurnSpendReduction)
	v.atLeast("churn_level_threshold", c.ChurnLevelThreshold, 0)
	v.prob("churn_level_reduction", c.ChurnLevelReduction)
	if math.IsNaN(c.ChurnInactivityMaxMultiplier) || c.ChurnInactivityMaxMultiplier < 1 {
		v.fail("churn_inactivity_max_multiplier", c.ChurnInactivityMaxMultiplier, "must be at least 1")
	}
	v.atLeast("churn_inactivity_ramp_days", c.ChurnInactivityRampDays, 1)

	v.prob("new_player_daily_probability", c.NewPlayerDailyProbability)
	v.ratios("new_player_type_ratios", c.NewPlayerTypeRatios)
	v.atLeast("total_population", c.TotalPopulation, 0)
	v.prob("population_cap_fraction", c.PopulationCapFraction)
	v.prob("organic_growth_rate_min", c.OrganicGrowthRateMin)
	v.prob("organic_growth_rate_max", c.OrganicGrowthRateMax)
	if c.OrganicGrowthRateMax < c.OrganicGrowthRateMin {
		v.fail("organic_growth_rate_max", c.OrganicGrowthRateMax, "must be at least organic_growth_rate_min")
	}
	v.atLeast("organic_growth_tags_threshold", c.OrganicGrowthTagThreshold, 1)
	v.atLeast("viral_event_cooldown_days", c.ViralEventCooldownDays, 1)
	if c.ViralEventMaxIntervalDays < c.ViralEventCooldownDays {
		v.fail("viral_event_max_interval_days", c.ViralEventMaxIntervalDays, "must be at least viral_event_cooldown_days")
	}
	v.prob("viral_initial_probability", c.ViralInitialProbability)
	v.prob("viral_recruiter_fraction", c.ViralRecruiterFraction)
	if math.IsNaN(c.ReferralSuccessRate) || c.ReferralSuccessRate < 0 || c.ReferralSuccessRate >= 1 {
		v.fail("referral_success_rate", c.ReferralSuccessRate, "must be in [0, 1); certain referral success produces unbounded growth")
	}
	v.atLeast("max_viral_recruits_per_event", c.MaxViralRecruitsPerEvent, 0)
	v.multiplier("referral_reward_multiplier", c.ReferralRewardMultiplier)
	v.atLeast("referral_reward_days", c.ReferralRewardDays, 0)

	if c.EventMode != EventModeRandom && c.EventMode != EventModePeriodic {
		v.fail("event_mode", c.EventMode, "must be random or periodic")
	}
	v.atLeast("event_frequency_days", c.EventFrequencyDays, 0)
	v.atLeast("event_duration_days", c.EventDurationDays, 0)
	if c.EventMode == EventModePeriodic && c.EventFrequencyDays > 0 && c.EventDurationDays > c.EventFrequencyDays {
		v.fail("event_duration_days", c.EventDurationDays, "must not exceed event_frequency_days in periodic mode")
	}
	v.multiplier("event_bonus_multiplier", c.EventBonusMultiplier)
	v.multiplier("event_growth_multiplier", c.EventGrowthMultiplier)

	if len(v.fields) == 0 {
		return nil
	}
	return &Error{Fields: v.fields}
}
