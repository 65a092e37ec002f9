package agents

import "github.com/talgya/stickersim/internal/config"

// Routine slots a player can spend the day in.
const (
	AtHome = iota
	AtWork
	AtHub
	Wandering
	numRoutines
)

// Profile is the behavioral parameter bundle of one player type.
type Profile struct {
	Type PlayerType

	ActivityProbability  float64 // chance of playing on a given day
	ScansMin, ScansMax   int     // scans attempted on an active day
	PlacementProbability float64

	// Monetization. Points purchases happen when the balance covers a
	// pack; dollar purchases top up the wallet first.
	PointsPurchaseProbability float64
	DollarPurchaseProbability float64
	TopupMin, TopupMax        float64
	MaxPacksPerPurchase       int

	ReinvestOnLevelUp bool
	ReinvestFraction  float64

	ChurnBase float64

	// Routine weights over home, work, hub and wandering.
	Routine [numRoutines]float64
}

// behaviorTemplates holds the per-type behavior that is not exposed as a
// tunable parameter.
var behaviorTemplates = map[PlayerType]Profile{
	Whale: {
		ActivityProbability:       0.9,
		ScansMin:                  5,
		ScansMax:                  12,
		PlacementProbability:      0.8,
		PointsPurchaseProbability: 0.5,
		MaxPacksPerPurchase:       3,
		Routine:                   [numRoutines]float64{0.3, 0.3, 0.3, 0.1},
	},
	Grinder: {
		ActivityProbability:       0.8,
		ScansMin:                  15,
		ScansMax:                  25,
		PlacementProbability:      0.7,
		PointsPurchaseProbability: 0.3,
		MaxPacksPerPurchase:       1,
		Routine:                   [numRoutines]float64{0.2, 0.2, 0.3, 0.3},
	},
	Casual: {
		ActivityProbability:       0.5,
		ScansMin:                  2,
		ScansMax:                  6,
		PlacementProbability:      0.4,
		PointsPurchaseProbability: 0.2,
		MaxPacksPerPurchase:       1,
		Routine:                   [numRoutines]float64{0.4, 0.3, 0.2, 0.1},
	},
}

// Profiles is the lookup table from player type to profile.
type Profiles [NumTypes]Profile

// NewProfiles merges the behavior templates with the economy parameters
// of cfg.
func NewProfiles(cfg *config.Config) Profiles {
	var ps Profiles
	for _, t := range AllTypes {
		p := behaviorTemplates[t]
		p.Type = t
		switch t {
		case Whale:
			p.DollarPurchaseProbability = cfg.WhalePurchaseProbability
			p.TopupMin, p.TopupMax = cfg.WhaleTopupMin, cfg.WhaleTopupMax
			p.ChurnBase = cfg.ChurnProbabilityWhale
		case Grinder:
			p.DollarPurchaseProbability = cfg.GrinderPurchaseProbability
			p.TopupMin, p.TopupMax = cfg.GrinderTopupMin, cfg.GrinderTopupMax
			p.ReinvestOnLevelUp = cfg.GrinderReinvestOnLevelUp
			p.ReinvestFraction = cfg.GrinderReinvestFraction
			p.ChurnBase = cfg.ChurnProbabilityGrinder
		case Casual:
			p.DollarPurchaseProbability = cfg.CasualPurchaseProbability
			p.TopupMin, p.TopupMax = cfg.CasualTopupMin, cfg.CasualTopupMax
			p.ChurnBase = cfg.ChurnProbabilityCasual
		}
		ps[t] = p
	}
	return ps
}

// For returns the profile of type t.
func (ps *Profiles) For(t PlayerType) *Profile {
	return &ps[t]
}

// TypeWeights returns ratios as weights in PlayerType order.
func TypeWeights(r config.TypeRatios) []float64 {
	return []float64{r.Whale, r.Grinder, r.Casual}
}
