// Package economy implements the sticker shop: wallet top-ups and pack
// purchases with points or dollars.
package economy

import (
	"math"

	"github.com/talgya/stickersim/internal/agents"
	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/entropy"
)

// Receipt summarizes one player's purchases on one day.
type Receipt struct {
	Revenue     float64 `json:"revenue"` // real money topped up
	PointPacks  int     `json:"point_packs"`
	DollarPacks int     `json:"dollar_packs"`
	Reinvested  int     `json:"reinvested"` // packs bought on level up
}

// Packs returns every pack bought.
func (r Receipt) Packs() int {
	return r.PointPacks + r.DollarPacks + r.Reinvested
}

// Add merges o into r.
func (r *Receipt) Add(o Receipt) {
	r.Revenue += o.Revenue
	r.PointPacks += o.PointPacks
	r.DollarPacks += o.DollarPacks
	r.Reinvested += o.Reinvested
}

// Shop sells packs at the configured prices.
type Shop struct {
	cfg *config.Config
}

// NewShop creates a shop for cfg.
func NewShop(cfg *config.Config) *Shop {
	return &Shop{cfg: cfg}
}

// TopUp moves real money into the player's wallet and returns the amount
// charged.
func (s *Shop) TopUp(p *agents.Player, dollars float64) float64 {
	if dollars <= 0 {
		return 0
	}
	p.Wallet += dollars
	p.LifetimeSpend += dollars
	return dollars
}

// BuyPackWithPoints buys up to packs packs from the point balance and
// returns how many were bought.
func (s *Shop) BuyPackWithPoints(p *agents.Player, packs int) int {
	price := float64(s.cfg.PackPricePoints)
	if price <= 0 || packs <= 0 {
		return 0
	}
	n := min(packs, int(math.Floor(p.Points/price)))
	if n <= 0 {
		return 0
	}
	p.Points -= float64(n) * price
	p.Inventory += n * s.cfg.StickersPerPack
	p.PointPurchases += n
	return n
}

// BuyPackWithDollars buys up to packs packs from the wallet and returns
// how many were bought.
func (s *Shop) BuyPackWithDollars(p *agents.Player, packs int) int {
	price := s.cfg.PackPriceDollars
	if price <= 0 || packs <= 0 {
		return 0
	}
	n := min(packs, int(math.Floor(p.Wallet/price+1e-9)))
	if n <= 0 {
		return 0
	}
	p.Wallet = max(0, p.Wallet-float64(n)*price)
	p.Inventory += n * s.cfg.StickersPerPack
	p.DollarPurchases += n
	return n
}

// Reinvest spends fraction of the point balance on packs.
func (s *Shop) Reinvest(p *agents.Player, fraction float64) int {
	price := float64(s.cfg.PackPricePoints)
	if price <= 0 || fraction <= 0 {
		return 0
	}
	budget := p.Points * min(fraction, 1)
	return s.BuyPackWithPoints(p, int(math.Floor(budget/price)))
}

// Monetize runs a player's daily purchase decision. Points are spent first
// when they cover a pack; otherwise the profile's dollar probability
// decides whether the player pays, topping up the wallet when it cannot
// cover the packs wanted.
func (s *Shop) Monetize(p *agents.Player, prof *agents.Profile, rng *entropy.Stream) Receipt {
	var r Receipt
	if p.Points >= float64(s.cfg.PackPricePoints) && rng.Bernoulli(prof.PointsPurchaseProbability) {
		r.PointPacks = s.BuyPackWithPoints(p, 1)
		return r
	}
	if !rng.Bernoulli(prof.DollarPurchaseProbability) {
		return r
	}

	packs := rng.IntBetween(1, max(prof.MaxPacksPerPurchase, 1))
	if p.Wallet < float64(packs)*s.cfg.PackPriceDollars {
		r.Revenue = s.TopUp(p, rng.Uniform(prof.TopupMin, prof.TopupMax))
	}
	r.DollarPacks = s.BuyPackWithDollars(p, packs)
	return r
}

// PointLiability converts an outstanding point balance to dollars.
func (s *Shop) PointLiability(points float64) float64 {
	if s.cfg.PointsPerDollar <= 0 {
		return 0
	}
	return points / s.cfg.PointsPerDollar
}
