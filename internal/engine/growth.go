package engine

import (
	"math"

	"github.com/talgya/stickersim/internal/agents"
	"github.com/talgya/stickersim/internal/config"
)

// recruitRadius is how close to their recruiter new viral players live.
const recruitRadius = 150

// ViralState tracks viral events across the run.
type ViralState struct {
	LastEventDay int `json:"last_event_day"` // agents.NoWindow before the first event
	Events       int `json:"events"`
}

// grow adds organic and viral players, never past the population cap.
func (s *Simulation) grow(day int) {
	cfg := s.Config
	active := s.ActiveCount()
	s.today.activeAtGrowth = active
	room := s.growthRoom(active)

	rate := cfg.NewPlayerDailyProbability
	if s.today.eventActive {
		rate *= cfg.EventGrowthMultiplier
	}
	organic := s.rng.Binomial(active, rate)
	if cfg.OrganicMarkerGrowth {
		organic += s.markerDrivenGrowth()
	}
	if organic > room {
		organic = room
		s.today.capReached = true
	}
	for i := 0; i < organic; i++ {
		s.join(s.Spawner.SpawnRandom(cfg.NewPlayerTypeRatios, day, s.rng))
	}
	s.today.organicNew += organic
	s.Totals.OrganicNew += organic
	room -= organic

	if cfg.ViralEnabled && s.viralTriggers(day) {
		s.viralEvent(day, room)
	}
}

// growthRoom is how many more players may join today: the active cap and
// the untouched part of the addressable population both bound it.
func (s *Simulation) growthRoom(active int) int {
	room := s.Config.PopulationCap() - active
	room = min(room, s.Config.TotalPopulation-len(s.Players))
	if room <= 0 {
		s.today.capReached = true
		return 0
	}
	return room
}

// markerDrivenGrowth draws the players attracted by a dense marker field.
// Nothing happens until active markers reach the tag threshold; past it the
// daily rate scales with density, up to three times the base.
func (s *Simulation) markerDrivenGrowth() int {
	cfg := s.Config
	liveMarkers := 0
	for _, m := range s.Markers {
		if owner := s.playerIndex[m.OwnerID]; owner != nil && owner.IsActive() {
			liveMarkers++
		}
	}
	if cfg.OrganicGrowthTagThreshold <= 0 || liveMarkers < cfg.OrganicGrowthTagThreshold {
		return 0
	}
	density := min(float64(liveMarkers)/float64(cfg.OrganicGrowthTagThreshold), 3)
	rate := s.rng.Uniform(cfg.OrganicGrowthRateMin, cfg.OrganicGrowthRateMax) / 7 * density
	untouched := cfg.TotalPopulation - len(s.Players)
	return s.rng.Binomial(untouched, rate)
}

// ViralTriggerProbability returns the chance that a viral event fires on a
// day sinceLast days after the previous one. Before the first event the
// initial probability applies.
func ViralTriggerProbability(cfg *config.Config, sinceLast int, first bool) float64 {
	if first {
		return cfg.ViralInitialProbability
	}
	if sinceLast < cfg.ViralEventCooldownDays {
		return 0
	}
	if sinceLast >= cfg.ViralEventMaxIntervalDays {
		return 1
	}
	span := cfg.ViralEventMaxIntervalDays - cfg.ViralEventCooldownDays + 1
	return float64(sinceLast-cfg.ViralEventCooldownDays+1) / float64(span)
}

func (s *Simulation) viralTriggers(day int) bool {
	first := s.Viral.LastEventDay == agents.NoWindow
	return s.rng.Bernoulli(ViralTriggerProbability(s.Config, day-s.Viral.LastEventDay, first))
}

// viralEvent samples recruiters by engagement and lets each try one
// referral, up to the per-event cap and the remaining room.
func (s *Simulation) viralEvent(day, room int) {
	cfg := s.Config
	var active []*agents.Player
	for _, p := range s.Players {
		if p.IsActive() && p.JoinDay < day {
			active = append(active, p)
		}
	}
	count := int(math.Round(cfg.ViralRecruiterFraction * float64(len(active))))
	if count == 0 && len(active) > 0 && cfg.ViralRecruiterFraction > 0 {
		count = 1
	}
	recruiters := s.sampleRecruiters(active, count)

	limit := min(cfg.MaxViralRecruitsPerEvent, room)
	recruits := 0
	for _, r := range recruiters {
		if recruits >= limit {
			if limit == room {
				s.today.capReached = true
			}
			break
		}
		if !s.rng.Bernoulli(cfg.ReferralSuccessRate) {
			continue
		}
		np := s.Spawner.SpawnRandom(cfg.NewPlayerTypeRatios, day, s.rng)
		np.ReferredBy = r.ID
		np.Home = s.Locale.Scatter(r.Home, recruitRadius, s.rng)
		np.Current = np.Home
		np.OpenReferralWindow(day+1, cfg)
		r.Referrals++
		r.OpenReferralWindow(day+1, cfg)
		s.join(np)
		recruits++
	}

	s.Viral.LastEventDay = day
	s.Viral.Events++
	s.today.viralEvent = true
	s.today.viralRecruits = recruits
	s.Totals.ViralRecruits += recruits

	s.log.Debug("viral event",
		"day", day,
		"recruiters", len(recruiters),
		"recruits", recruits,
		"active", len(active),
	)
}

// sampleRecruiters draws count players without replacement, weighting each
// by 1 + activity streak + level.
func (s *Simulation) sampleRecruiters(pool []*agents.Player, count int) []*agents.Player {
	count = min(count, len(pool))
	weights := make([]float64, len(pool))
	for i, p := range pool {
		weights[i] = 1 + float64(p.ActivityStreak) + float64(p.Level)
	}
	picked := make([]*agents.Player, 0, count)
	for len(picked) < count {
		idx := s.rng.WeightedIndex(weights)
		if idx < 0 {
			break
		}
		picked = append(picked, pool[idx])
		weights[idx] = 0
	}
	return picked
}

// join adds a newly recruited or organic player.
func (s *Simulation) join(p *agents.Player) {
	s.index(p)
	s.today.newPlayers++
	s.today.byType[p.Type].New++
}
