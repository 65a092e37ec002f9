package engine

import "github.com/talgya/stickersim/internal/config"

// EventWindow is a limited-time in-game event. Start and End are inclusive
// days.
type EventWindow struct {
	Active bool `json:"active"`
	Start  int  `json:"start"`
	End    int  `json:"end"`
	Count  int  `json:"count"` // events started so far
}

// Covers reports whether the event runs on day.
func (e EventWindow) Covers(day int) bool {
	return e.Active && day >= e.Start && day <= e.End
}

// updateEvents closes a finished event and decides whether a new one starts
// tomorrow. Periodic events start every event_frequency_days days; random
// events start with probability 1/event_frequency_days per day.
func (s *Simulation) updateEvents(day int) {
	cfg := s.Config
	next := day + 1
	if s.Event.Active && next > s.Event.End {
		s.Event.Active = false
		s.log.Debug("event ended", "day", day, "started", s.Event.Start)
	}
	if s.Event.Active || cfg.EventFrequencyDays <= 0 || cfg.EventDurationDays <= 0 {
		return
	}

	var start bool
	switch cfg.EventMode {
	case config.EventModePeriodic:
		start = next%cfg.EventFrequencyDays == 0
	default:
		start = s.rng.Bernoulli(1 / float64(cfg.EventFrequencyDays))
	}
	if !start {
		return
	}
	s.Event = EventWindow{
		Active: true,
		Start:  next,
		End:    next + cfg.EventDurationDays - 1,
		Count:  s.Event.Count + 1,
	}
	s.log.Debug("event scheduled",
		"start", s.Event.Start,
		"end", s.Event.End,
		"multiplier", cfg.EventBonusMultiplier,
	)
}
