package agents

import (
	"testing"

	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/world"
)

func TestParseType(t *testing.T) {
	for _, pt := range AllTypes {
		got, err := ParseType(pt.String())
		if err != nil || got != pt {
			t.Errorf("ParseType(%q) = %v, %v", pt.String(), got, err)
		}
	}
	if _, err := ParseType("dolphin"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestLedgerWeeklyWindow(t *testing.T) {
	l := NewLedger()
	l.Record(1, 100, false)
	l.Record(7, 50, false)
	if got := l.WeeklyEarned(7); got != 150 {
		t.Errorf("WeeklyEarned(7) = %v, want 150", got)
	}
	if got := l.WeeklyEarned(8); got != 50 {
		t.Errorf("WeeklyEarned(8) = %v, want 50 (day 1 left the window)", got)
	}
	l.Record(8, 20, false)
	if got := l.WeeklyEarned(8); got != 70 {
		t.Errorf("WeeklyEarned(8) after overwrite = %v, want 70", got)
	}
	if got := l.WeeklyRemaining(8, 60); got != 0 {
		t.Errorf("WeeklyRemaining never goes negative, got %v", got)
	}
}

func TestLedgerPassiveCap(t *testing.T) {
	l := NewLedger()
	l.Record(3, 40, true)
	l.Record(3, 10, false)
	if got := l.PassiveRemaining(3, 100); got != 60 {
		t.Errorf("PassiveRemaining(3) = %v, want 60", got)
	}
	if got := l.PassiveRemaining(4, 100); got != 100 {
		t.Errorf("passive cap should reset on a new day, got %v", got)
	}
}

func TestLedgerScanCooldown(t *testing.T) {
	tests := []struct {
		cooldown int
		gap      int
		want     bool
	}{
		{11, 0, false},
		{11, 1, true},
		{36, 1, false},
		{36, 2, true},
		{0, 0, true},
	}
	for _, tt := range tests {
		l := NewLedger()
		l.MarkScanned(42, 10)
		if got := l.CanScan(42, 10+tt.gap, tt.cooldown); got != tt.want {
			t.Errorf("cooldown %dh gap %dd: CanScan = %v, want %v", tt.cooldown, tt.gap, got, tt.want)
		}
	}
	l := NewLedger()
	if !l.CanScan(7, 0, 24) {
		t.Error("unscanned marker must be scannable")
	}
	l.MarkScanned(7, 5)
	l.MarkScanned(8, 5)
	if l.ScansOn(5) != 2 || l.ScansOn(6) != 0 {
		t.Errorf("ScansOn wrong: %d / %d", l.ScansOn(5), l.ScansOn(6))
	}
}

func TestLedgerVenueWeeks(t *testing.T) {
	l := NewLedger()
	if !l.FirstVenueThisWeek("cafe", 0) {
		t.Error("first cafe of week 0 should count")
	}
	if l.FirstVenueThisWeek("cafe", 6) {
		t.Error("second cafe in week 0 should not count")
	}
	if !l.FirstVenueThisWeek("park", 6) {
		t.Error("first park of week 0 should count")
	}
	if !l.FirstVenueThisWeek("cafe", 7) {
		t.Error("cafe should count again in week 1")
	}
}

func TestLedgerSneezeRolling(t *testing.T) {
	l := NewLedger()
	l.RecordSneeze(2)
	l.RecordSneeze(5)
	if got := l.SneezeAwards(8); got != 1 {
		t.Errorf("SneezeAwards(8) = %d, want 1", got)
	}
	if got := l.SneezeAwards(12); got != 0 {
		t.Errorf("SneezeAwards(12) = %d, want 0", got)
	}
}

func TestCreditLevels(t *testing.T) {
	cfg := config.Default()
	p := NewPlayer(1, Grinder, 0)
	if gained := p.Credit(250, cfg); gained != 2 || p.Level != 2 {
		t.Errorf("expected 2 levels, got gained=%d level=%d", gained, p.Level)
	}
	p.Credit(1e6, cfg)
	if p.Level != cfg.MaxLevel {
		t.Errorf("level should stop at %d, got %d", cfg.MaxLevel, p.Level)
	}
	if p.Credit(-5, cfg) != 0 || p.Points != 250+1e6 {
		t.Error("non-positive credit must be ignored")
	}
}

func TestWindowMultiplier(t *testing.T) {
	cfg := config.Default()
	p := NewPlayer(1, Casual, 0)
	if got := p.WindowMultiplier(6, cfg); got != cfg.NewPlayerBonusMultiplier {
		t.Errorf("day 6 should be in the new-player window, got %v", got)
	}
	if got := p.WindowMultiplier(7, cfg); got != 1 {
		t.Errorf("day 7 should have no window, got %v", got)
	}
	p.OpenReferralWindow(10, cfg)
	p.ComebackUntil = 10
	want := cfg.ReferralRewardMultiplier * cfg.ComebackBonusMultiplier
	if got := p.WindowMultiplier(10, cfg); got != want {
		t.Errorf("windows should compose: got %v, want %v", got, want)
	}
}

func TestStreakAndComebackWindows(t *testing.T) {
	cfg := config.Default()
	p := NewPlayer(1, Whale, 0)
	for day := 1; day <= cfg.StreakBonusDays; day++ {
		p.MarkActive(day, true, day%2 == 0, cfg)
	}
	if p.ActivityStreak != cfg.StreakBonusDays || p.ScanStreak != cfg.StreakBonusDays {
		t.Errorf("streaks not counted: %d/%d", p.ActivityStreak, p.ScanStreak)
	}
	if p.PlacementStreak != 0 {
		t.Errorf("placement streak should reset on a day without placement, got %d", p.PlacementStreak)
	}
	wantUntil := cfg.StreakBonusDays + cfg.StreakBonusDurationDays - 1
	if p.StreakBonusUntil != wantUntil {
		t.Errorf("StreakBonusUntil = %d, want %d", p.StreakBonusUntil, wantUntil)
	}

	for i := 0; i < cfg.ComebackBonusDays; i++ {
		p.MarkInactive()
	}
	if p.ActivityStreak != 0 || p.ScanStreak != 0 {
		t.Error("inactive day must reset streaks")
	}
	p.MarkActive(20, false, false, cfg)
	if p.ComebackUntil != 20+cfg.ComebackBonusDurationDays-1 {
		t.Errorf("comeback window not opened: %d", p.ComebackUntil)
	}
	if p.InactiveDays != 0 {
		t.Errorf("inactive days should reset, got %d", p.InactiveDays)
	}
}

func TestNewProfiles(t *testing.T) {
	cfg := config.Default()
	cfg.WhalePurchaseProbability = 0.42
	ps := NewProfiles(cfg)
	if ps.For(Whale).DollarPurchaseProbability != 0.42 {
		t.Error("whale purchase probability not taken from config")
	}
	if g := ps.For(Grinder); g.DollarPurchaseProbability != cfg.GrinderPurchaseProbability ||
		g.TopupMin != cfg.GrinderTopupMin || g.TopupMax != cfg.GrinderTopupMax {
		t.Errorf("grinder monetization not taken from config: %+v", g)
	}
	if c := ps.For(Casual); c.TopupMin != cfg.CasualTopupMin || c.TopupMax != cfg.CasualTopupMax {
		t.Errorf("casual top-up range not taken from config: %+v", c)
	}
	if w := ps.For(Whale); w.TopupMin != cfg.WhaleTopupMin || w.TopupMax != cfg.WhaleTopupMax {
		t.Errorf("whale top-up range not taken from config: %+v", w)
	}
	if !ps.For(Grinder).ReinvestOnLevelUp {
		t.Error("grinder reinvest flag not taken from config")
	}
	if ps.For(Casual).ChurnBase != cfg.ChurnProbabilityCasual {
		t.Error("casual churn base not taken from config")
	}
	if ps.For(Grinder).ScansMin <= ps.For(Casual).ScansMax {
		t.Error("grinders should scan more than casuals")
	}
}

func testSpawner(cfg *config.Config) *Spawner {
	gen := world.DefaultGenConfig()
	gen.Seed = 11
	return NewSpawner(cfg, world.GenerateLocale(gen))
}

func TestSpawnerIssuesSequentialIDs(t *testing.T) {
	cfg := config.Default()
	s := testSpawner(cfg)
	rng := entropy.NewStream(3)
	players := s.SpawnPopulation(20, cfg.StartingTypeRatios, 0, rng)
	for i, p := range players {
		if p.ID != PlayerID(i+1) {
			t.Fatalf("player %d has ID %d", i, p.ID)
		}
		if p.Inventory != cfg.NewPlayerFreePacks*cfg.StickersPerPack {
			t.Errorf("player %d inventory %d", p.ID, p.Inventory)
		}
		if p.Points != cfg.StartingPoints {
			t.Errorf("player %d points %v", p.ID, p.Points)
		}
		if !s.locale.Contains(p.Home) || !s.locale.Contains(p.Work) {
			t.Errorf("player %d lives outside the locale", p.ID)
		}
	}
	if s.NextID() != 21 {
		t.Errorf("NextID = %d, want 21", s.NextID())
	}
}

func TestSpawnRandomFollowsRatios(t *testing.T) {
	cfg := config.Default()
	s := testSpawner(cfg)
	rng := entropy.NewStream(9)
	players := s.SpawnPopulation(100, config.TypeRatios{Grinder: 1}, 0, rng)
	for _, p := range players {
		if p.Type != Grinder {
			t.Fatalf("expected only grinders, got %s", p.Type)
		}
	}
}

func TestDrawPlanRespectsDailyCap(t *testing.T) {
	cfg := config.Default()
	cfg.DailyScanCap = 3
	ps := NewProfiles(cfg)
	rng := entropy.NewStream(1)
	p := NewPlayer(1, Grinder, 0)
	p.Ledger.MarkScanned(99, 5)
	for i := 0; i < 50; i++ {
		plan := DrawPlan(p, ps.For(Grinder), 5, cfg, rng)
		if plan.Scans > 2 {
			t.Fatalf("plan exceeds remaining cap: %d", plan.Scans)
		}
	}

	p.State = Churned
	if plan := DrawPlan(p, ps.For(Grinder), 5, cfg, rng); plan.Active {
		t.Error("churned players never play")
	}
}

func TestDrawPlanPlacementNeedsInventory(t *testing.T) {
	cfg := config.Default()
	ps := NewProfiles(cfg)
	prof := *ps.For(Whale)
	prof.ActivityProbability = 1
	prof.PlacementProbability = 1
	rng := entropy.NewStream(2)

	p := NewPlayer(1, Whale, 0)
	if plan := DrawPlan(p, &prof, 1, cfg, rng); plan.Place {
		t.Error("player without stickers cannot place")
	}
	p.Inventory = 3
	if plan := DrawPlan(p, &prof, 1, cfg, rng); !plan.Place {
		t.Error("expected placement intent")
	}
	p.LastPlacementDay = 1
	if plan := DrawPlan(p, &prof, 1, cfg, rng); plan.Place {
		t.Error("placement cooldown ignored")
	}
}

func TestMoveStaysInLocale(t *testing.T) {
	cfg := config.Default()
	s := testSpawner(cfg)
	rng := entropy.NewStream(4)
	ps := NewProfiles(cfg)
	p := s.Spawn(Grinder, 0, rng)
	for i := 0; i < 200; i++ {
		p.Move(ps.For(Grinder), s.locale, cfg.SocialHubRadius, rng)
		if !s.locale.Contains(p.Current) {
			t.Fatalf("moved outside the locale: %+v", p.Current)
		}
	}
}
