// Package agents models the players of the sticker game: their type,
// behavioral profile, progression state, caps ledger, and daily plan.
package agents

import (
	"fmt"
	"strings"

	"github.com/talgya/stickersim/internal/world"
)

// PlayerID uniquely identifies a player within one run. IDs are issued in
// increasing order and never reused.
type PlayerID uint64

// PlayerType is the behavioral class of a player.
type PlayerType uint8

const (
	Whale   PlayerType = iota // Spends money, plays often
	Grinder                   // Scans heavily, never pays
	Casual                    // Occasional play, rare purchase
)

// NumTypes is the number of player types.
const NumTypes = 3

// AllTypes lists the player types in index order.
var AllTypes = [NumTypes]PlayerType{Whale, Grinder, Casual}

var typeNames = [NumTypes]string{"whale", "grinder", "casual"}

func (t PlayerType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("PlayerType(%d)", t)
}

// ParseType maps a type name ("whale", "grinder", "casual") to its PlayerType.
func ParseType(s string) (PlayerType, error) {
	for i, name := range typeNames {
		if strings.EqualFold(s, name) {
			return PlayerType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown player type %q", s)
}

// State is a player's lifecycle state. Churned is terminal.
type State uint8

const (
	Active State = iota
	Churned
)

func (s State) String() string {
	if s == Churned {
		return "churned"
	}
	return "active"
}

// NoWindow marks a bonus window that is not open.
const NoWindow = -1

// Player is one simulated participant.
type Player struct {
	ID      PlayerID   `json:"id"`
	Type    PlayerType `json:"type"`
	JoinDay int        `json:"join_day"`

	State    State `json:"state"`
	ChurnDay int   `json:"churn_day"` // NoWindow while active

	// Progression and currency.
	Level          int     `json:"level"`
	Points         float64 `json:"points"`
	LifetimePoints float64 `json:"lifetime_points"`
	LifetimeSpend  float64 `json:"lifetime_spend"` // dollars
	Wallet         float64 `json:"wallet"`         // dollars
	Inventory      int     `json:"inventory"`      // unplaced stickers

	// Activity counters.
	Scans           int `json:"scans"`
	MarkersPlaced   int `json:"markers_placed"`
	PointPurchases  int `json:"point_purchases"`
	DollarPurchases int `json:"dollar_purchases"`

	// Streaks reset to zero on any day without the matching activity.
	ActivityStreak   int `json:"activity_streak"`
	ScanStreak       int `json:"scan_streak"`
	PlacementStreak  int `json:"placement_streak"`
	LastActiveDay    int `json:"last_active_day"`
	InactiveDays     int `json:"inactive_days"`
	LastPlacementDay int `json:"last_placement_day"`

	// Bonus windows hold the last day (inclusive) they apply.
	StreakBonusUntil int `json:"streak_bonus_until"`
	ComebackUntil    int `json:"comeback_until"`
	ReferralUntil    int `json:"referral_until"`

	ReferredBy PlayerID `json:"referred_by"` // 0 when not recruited
	Referrals  int      `json:"referrals"`

	Home    world.Point `json:"home"`
	Work    world.Point `json:"work"`
	Current world.Point `json:"current"`

	Ledger Ledger `json:"ledger"`
}

// NewPlayer returns an active player with every window closed.
func NewPlayer(id PlayerID, t PlayerType, day int) *Player {
	return &Player{
		ID:               id,
		Type:             t,
		JoinDay:          day,
		State:            Active,
		ChurnDay:         NoWindow,
		LastActiveDay:    day,
		LastPlacementDay: NoWindow,
		StreakBonusUntil: NoWindow,
		ComebackUntil:    NoWindow,
		ReferralUntil:    NoWindow,
		Ledger:           NewLedger(),
	}
}

// IsActive reports whether the player has not churned.
func (p *Player) IsActive() bool {
	return p.State == Active
}

// Purchases returns the total number of packs bought.
func (p *Player) Purchases() int {
	return p.PointPurchases + p.DollarPurchases
}
