package engine

import (
	"context"

	"github.com/talgya/stickersim/internal/config"
)

// Result is the outcome of one run.
type Result struct {
	Seed    uint64       `json:"seed"`
	Days    int          `json:"days"`
	History []DailyStats `json:"history"`
	Summary Summary      `json:"summary"`
}

// Result captures the run so far.
func (s *Simulation) Result() *Result {
	return &Result{
		Seed:    s.Seed,
		Days:    s.Day,
		History: s.History,
		Summary: s.Summary(),
	}
}

// Run simulates cfg with seed for maxDays days, or until ctx is cancelled
// when maxDays is 0. A cancelled or failed run still returns the days it
// completed alongside the error.
func Run(ctx context.Context, cfg *config.Config, seed uint64, maxDays int, opts Options) (*Result, error) {
	sim, err := New(cfg, seed, opts)
	if err != nil {
		return nil, err
	}
	err = sim.RunTo(ctx, maxDays)
	return sim.Result(), err
}
