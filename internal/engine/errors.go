package engine

import (
	"fmt"

	"github.com/talgya/stickersim/internal/agents"
)

// Invariants checked after every day.
const (
	InvariantNegativePoints    = "negative points"
	InvariantNegativeWallet    = "negative wallet"
	InvariantNegativeInventory = "negative inventory"
	InvariantWeeklyCap         = "weekly cap overflow"
	InvariantPassiveCap        = "passive cap overflow"
	InvariantCapUnderflow      = "cap underflow"
	InvariantDoubleChurn       = "churn of churned player"
)

// capTolerance absorbs float rounding when comparing against caps.
const capTolerance = 1e-6

// RuntimeError reports a broken invariant. It aborts the run it occurred in.
type RuntimeError struct {
	Day       int
	Player    agents.PlayerID
	Invariant string
	Detail    string
}

func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("day %d: player %d: %s", e.Day, e.Player, e.Invariant)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// checkInvariants verifies balances and caps for every player.
func (s *Simulation) checkInvariants(day int) error {
	cfg := s.Config
	for _, p := range s.Players {
		fail := func(inv, detail string) error {
			return &RuntimeError{Day: day, Player: p.ID, Invariant: inv, Detail: detail}
		}
		switch {
		case p.Points < -capTolerance:
			return fail(InvariantNegativePoints, fmt.Sprintf("%.4f", p.Points))
		case p.Wallet < -capTolerance:
			return fail(InvariantNegativeWallet, fmt.Sprintf("%.4f", p.Wallet))
		case p.Inventory < 0:
			return fail(InvariantNegativeInventory, fmt.Sprintf("%d", p.Inventory))
		}
		for _, e := range p.Ledger.Earned {
			if e.Points < 0 {
				return fail(InvariantCapUnderflow, fmt.Sprintf("day %d slot %.4f", e.Day, e.Points))
			}
		}
		if w := p.Ledger.WeeklyEarned(day); w > cfg.WeeklyEarnCap+capTolerance {
			return fail(InvariantWeeklyCap, fmt.Sprintf("%.4f > %.4f", w, cfg.WeeklyEarnCap))
		}
		if p.Ledger.PassiveDay == day && p.Ledger.PassiveToday > cfg.DailyPassiveCap+capTolerance {
			return fail(InvariantPassiveCap, fmt.Sprintf("%.4f > %.4f", p.Ledger.PassiveToday, cfg.DailyPassiveCap))
		}
	}
	return nil
}
