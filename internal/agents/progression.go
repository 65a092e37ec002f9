package agents

import "github.com/talgya/stickersim/internal/config"

// LevelFor returns the level reached with the given lifetime points.
func LevelFor(lifetime float64, cfg *config.Config) int {
	if cfg.PointsPerLevel <= 0 {
		return 0
	}
	return min(int(lifetime/float64(cfg.PointsPerLevel)), cfg.MaxLevel)
}

// Credit adds earned points and returns the number of levels gained.
func (p *Player) Credit(points float64, cfg *config.Config) int {
	if points <= 0 {
		return 0
	}
	p.Points += points
	p.LifetimePoints += points
	before := p.Level
	p.Level = LevelFor(p.LifetimePoints, cfg)
	return p.Level - before
}

// InNewPlayerWindow reports whether day falls in the first
// new_player_bonus_days after joining.
func (p *Player) InNewPlayerWindow(day int, cfg *config.Config) bool {
	return day-p.JoinDay < cfg.NewPlayerBonusDays
}

// WindowMultiplier composes the bonus windows open on day.
func (p *Player) WindowMultiplier(day int, cfg *config.Config) float64 {
	m := 1.0
	if p.InNewPlayerWindow(day, cfg) {
		m *= cfg.NewPlayerBonusMultiplier
	}
	if day <= p.StreakBonusUntil {
		m *= cfg.StreakBonusMultiplier
	}
	if day <= p.ComebackUntil {
		m *= cfg.ComebackBonusMultiplier
	}
	if day <= p.ReferralUntil {
		m *= cfg.ReferralRewardMultiplier
	}
	return m
}

// EarningMultiplier is the level multiplier times the open windows.
func (p *Player) EarningMultiplier(day int, cfg *config.Config) float64 {
	return cfg.LevelMultiplier(p.Level) * p.WindowMultiplier(day, cfg)
}

// MarkActive updates streaks and opens streak and comeback windows for a
// day on which the player plays.
func (p *Player) MarkActive(day int, scanned, placed bool, cfg *config.Config) {
	if p.InactiveDays >= cfg.ComebackBonusDays && cfg.ComebackBonusDays > 0 {
		p.ComebackUntil = day + cfg.ComebackBonusDurationDays - 1
	}
	p.InactiveDays = 0
	p.LastActiveDay = day

	p.ActivityStreak++
	if p.ActivityStreak == cfg.StreakBonusDays {
		p.StreakBonusUntil = day + cfg.StreakBonusDurationDays - 1
	}
	if scanned {
		p.ScanStreak++
	} else {
		p.ScanStreak = 0
	}
	if placed {
		p.PlacementStreak++
	} else {
		p.PlacementStreak = 0
	}
}

// MarkInactive resets every streak for a day the player sits out.
func (p *Player) MarkInactive() {
	p.InactiveDays++
	p.ActivityStreak = 0
	p.ScanStreak = 0
	p.PlacementStreak = 0
}

// OpenReferralWindow grants the referral multiplier from day on.
func (p *Player) OpenReferralWindow(day int, cfg *config.Config) {
	p.ReferralUntil = max(p.ReferralUntil, day+cfg.ReferralRewardDays-1)
}
