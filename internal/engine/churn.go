package engine

import (
	"github.com/talgya/stickersim/internal/agents"
	"github.com/talgya/stickersim/internal/config"
)

// ChurnProbability returns the daily chance that p leaves the game.
// Long streaks, any spending and high levels protect a player; inactivity
// raises the risk up to churn_inactivity_max_multiplier.
func ChurnProbability(cfg *config.Config, p *agents.Player) float64 {
	var base float64
	switch p.Type {
	case agents.Whale:
		base = cfg.ChurnProbabilityWhale
	case agents.Grinder:
		base = cfg.ChurnProbabilityGrinder
	default:
		base = cfg.ChurnProbabilityCasual
	}

	prob := base
	if cfg.ChurnStreakDays > 0 {
		streak := min(p.ActivityStreak, cfg.ChurnStreakDays)
		prob *= 1 - cfg.ChurnStreakReduction*float64(streak)/float64(cfg.ChurnStreakDays)
	}
	if p.LifetimeSpend > 0 {
		prob *= 1 - cfg.ChurnSpendReduction
	}
	if p.Level >= cfg.ChurnLevelThreshold {
		prob *= 1 - cfg.ChurnLevelReduction
	}
	if cfg.ChurnInactivityRampDays > 0 && p.InactiveDays > 0 {
		idle := min(p.InactiveDays, cfg.ChurnInactivityRampDays)
		prob *= 1 + (cfg.ChurnInactivityMaxMultiplier-1)*float64(idle)/float64(cfg.ChurnInactivityRampDays)
	}
	return min(max(prob, 0), 1)
}

// rollChurn draws churn for every active player in ID order.
func (s *Simulation) rollChurn(day int) error {
	for _, p := range s.Players {
		if !p.IsActive() {
			continue
		}
		if s.rng.Float64() < ChurnProbability(s.Config, p) {
			if err := s.churn(p, day); err != nil {
				return err
			}
		}
	}
	return nil
}

// churn moves p to the terminal Churned state.
func (s *Simulation) churn(p *agents.Player, day int) error {
	if !p.IsActive() {
		return &RuntimeError{Day: day, Player: p.ID, Invariant: InvariantDoubleChurn}
	}
	p.State = agents.Churned
	p.ChurnDay = day
	s.today.churned++
	s.today.byType[p.Type].Churned++
	s.Totals.Churned++
	return nil
}
