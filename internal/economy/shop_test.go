package economy

import (
	"testing"

	"github.com/talgya/stickersim/internal/agents"
	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/entropy"
)

func TestBuyPackWithPoints(t *testing.T) {
	cfg := config.Default()
	shop := NewShop(cfg)
	p := agents.NewPlayer(1, agents.Grinder, 0)
	p.Points = 700

	if n := shop.BuyPackWithPoints(p, 5); n != 2 {
		t.Fatalf("expected 2 affordable packs, got %d", n)
	}
	if p.Points != 100 {
		t.Errorf("points = %v, want 100", p.Points)
	}
	if p.Inventory != 2*cfg.StickersPerPack || p.PointPurchases != 2 {
		t.Errorf("inventory %d purchases %d", p.Inventory, p.PointPurchases)
	}
	if n := shop.BuyPackWithPoints(p, 1); n != 0 || p.Points < 0 {
		t.Errorf("bought %d packs with %v points", n, p.Points)
	}
}

func TestTopUpAndBuyWithDollars(t *testing.T) {
	cfg := config.Default()
	shop := NewShop(cfg)
	p := agents.NewPlayer(1, agents.Whale, 0)

	if got := shop.TopUp(p, 10); got != 10 {
		t.Fatalf("TopUp charged %v", got)
	}
	if n := shop.BuyPackWithDollars(p, 5); n != 3 {
		t.Fatalf("expected 3 packs for $10 at $3, got %d", n)
	}
	if p.Wallet < 0.99 || p.Wallet > 1.01 {
		t.Errorf("wallet = %v, want 1", p.Wallet)
	}
	if p.LifetimeSpend != 10 || p.DollarPurchases != 3 {
		t.Errorf("spend %v purchases %d", p.LifetimeSpend, p.DollarPurchases)
	}
	if shop.TopUp(p, -4) != 0 || p.LifetimeSpend != 10 {
		t.Error("negative top-up must be ignored")
	}
}

func TestReinvest(t *testing.T) {
	cfg := config.Default()
	shop := NewShop(cfg)
	p := agents.NewPlayer(1, agents.Grinder, 0)
	p.Points = 950

	if n := shop.Reinvest(p, 0.5); n != 1 {
		t.Errorf("half of 950 buys 1 pack at 300, got %d", n)
	}
	if n := shop.Reinvest(p, 1); n != 2 || p.Points != 50 {
		t.Errorf("full reinvest bought %d, left %v", n, p.Points)
	}
}

func TestMonetizeTopUpRangePerType(t *testing.T) {
	cfg := config.Default()
	cfg.WhalePurchaseProbability = 1
	cfg.WhaleTopupMin, cfg.WhaleTopupMax = 20, 40
	cfg.GrinderPurchaseProbability = 1
	cfg.GrinderTopupMin, cfg.GrinderTopupMax = 7, 9
	cfg.CasualPurchaseProbability = 1
	cfg.CasualTopupMin, cfg.CasualTopupMax = 3, 3
	shop := NewShop(cfg)
	profiles := agents.NewProfiles(cfg)
	rng := entropy.NewStream(5)

	tests := []struct {
		typ    agents.PlayerType
		lo, hi float64
	}{
		{agents.Whale, 20, 40},
		{agents.Grinder, 7, 9},
		{agents.Casual, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			p := agents.NewPlayer(1, tt.typ, 0)
			for i := 0; i < 200; i++ {
				p.Wallet, p.Points = 0, 0
				r := shop.Monetize(p, profiles.For(tt.typ), rng)
				if r.Revenue < tt.lo || r.Revenue > tt.hi {
					t.Fatalf("top-up %v outside [%v, %v]", r.Revenue, tt.lo, tt.hi)
				}
				if r.DollarPacks < 1 {
					t.Fatalf("top-up bought nothing: %+v", r)
				}
			}
		})
	}
}

func TestMonetizeGrinderPaysAtOwnRate(t *testing.T) {
	cfg := config.Default()
	cfg.GrinderPurchaseProbability = 0.25
	shop := NewShop(cfg)
	profiles := agents.NewProfiles(cfg)
	rng := entropy.NewStream(9)
	p := agents.NewPlayer(1, agents.Grinder, 0)

	paid := 0
	const n = 4000
	for i := 0; i < n; i++ {
		p.Wallet, p.Points = 0, 0
		if shop.Monetize(p, profiles.For(agents.Grinder), rng).Revenue > 0 {
			paid++
		}
	}
	// Binomial(4000, 0.25): mean 1000, sd about 27.
	if paid < 880 || paid > 1120 {
		t.Errorf("grinder paid on %d of %d days, want about 1000", paid, n)
	}
}

func TestMonetizeWhaleTopsUp(t *testing.T) {
	cfg := config.Default()
	shop := NewShop(cfg)
	profiles := agents.NewProfiles(cfg)
	prof := *profiles.For(agents.Whale)
	prof.DollarPurchaseProbability = 1
	rng := entropy.NewStream(6)
	p := agents.NewPlayer(1, agents.Whale, 0)

	r := shop.Monetize(p, &prof, rng)
	if r.Revenue < cfg.WhaleTopupMin || r.Revenue >= cfg.WhaleTopupMax {
		t.Errorf("top-up %v outside [%v, %v)", r.Revenue, cfg.WhaleTopupMin, cfg.WhaleTopupMax)
	}
	if r.DollarPacks < 1 {
		t.Errorf("expected at least one pack, got %+v", r)
	}
	if p.Wallet < 0 {
		t.Errorf("wallet went negative: %v", p.Wallet)
	}
}

func TestPointLiability(t *testing.T) {
	shop := NewShop(config.Default())
	if got := shop.PointLiability(250); got != 2.5 {
		t.Errorf("PointLiability(250) = %v, want 2.5", got)
	}
}
