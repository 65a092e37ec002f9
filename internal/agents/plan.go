package agents

import (
	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/world"
)

// errandRadius is how far from home or work a player wanders, in meters.
const errandRadius = 75

// Plan is what a player intends to do on one day.
type Plan struct {
	Player *Player
	Active bool
	Scans  int  // scans to attempt, already clipped to the daily cap
	Place  bool // wants to place a sticker
}

// DrawPlan samples a player's intentions for day. Inactive players get a
// zero plan. Placement intent already accounts for inventory and the
// placement cooldown; marker capacity is checked by the caller.
func DrawPlan(p *Player, prof *Profile, day int, cfg *config.Config, rng *entropy.Stream) Plan {
	plan := Plan{Player: p}
	if !p.IsActive() || !rng.Bernoulli(prof.ActivityProbability) {
		return plan
	}
	plan.Active = true

	remaining := cfg.DailyScanCap - p.Ledger.ScansOn(day)
	plan.Scans = min(rng.IntBetween(prof.ScansMin, prof.ScansMax), max(remaining, 0))

	if rng.Bernoulli(prof.PlacementProbability) && p.Inventory > 0 && p.CanPlace(day, cfg) {
		plan.Place = true
	}
	return plan
}

// CanPlace reports whether the placement cooldown has elapsed.
func (p *Player) CanPlace(day int, cfg *config.Config) bool {
	return p.LastPlacementDay == NoWindow || day-p.LastPlacementDay >= cfg.PlacementCooldownDays
}

// Move picks where the player spends the day according to the profile
// routine: near home, near work, at a social hub, or anywhere busy.
func (p *Player) Move(prof *Profile, locale *world.Locale, hubRadius float64, rng *entropy.Stream) {
	switch rng.WeightedIndex(prof.Routine[:]) {
	case AtHome:
		p.Current = locale.Scatter(p.Home, errandRadius, rng)
	case AtWork:
		p.Current = locale.Scatter(p.Work, errandRadius, rng)
	case AtHub:
		if len(locale.Hubs) > 0 {
			hub := locale.Hubs[rng.IntN(len(locale.Hubs))]
			p.Current = locale.Scatter(hub, hubRadius, rng)
			return
		}
		p.Current = locale.SampleTrafficPoint(rng)
	default:
		p.Current = locale.SampleTrafficPoint(rng)
	}
}
