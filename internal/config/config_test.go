package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.OwnerBasePoints != 2.0 {
		t.Errorf("expected owner_base_points 2.0, got %f", cfg.OwnerBasePoints)
	}
	if len(cfg.DiminishingRates) != 3 {
		t.Errorf("expected 3 diminishing rates, got %d", len(cfg.DiminishingRates))
	}
	if cfg.ReferralSuccessRate >= 1 {
		t.Errorf("default referral success rate must be below 1, got %f", cfg.ReferralSuccessRate)
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.DiminishingRates = []float64{1.0, 0.25, 0.5}
	cfg.VenueTypeWeights = []float64{0.5, 0.5, 0.5, 0.5, 0.5}
	cfg.ChurnProbabilityCasual = 1.5
	cfg.WeeklyEarnCap = -1

	err := cfg.Validate()
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %v", err)
	}

	for _, field := range []string{"diminishing_rates", "venue_type_weights", "churn_probability_casual", "weekly_earn_cap"} {
		if !cerr.Has(field) {
			t.Errorf("expected %s to be reported, got %v", field, cerr)
		}
	}
	if len(cerr.Fields) != 4 {
		t.Errorf("expected 4 offending fields, got %d: %v", len(cerr.Fields), cerr)
	}
}

func TestValidateReferralSuccessRate(t *testing.T) {
	tests := []struct {
		rate  float64
		valid bool
	}{
		{0, true},
		{0.25, true},
		{0.999, true},
		{1.0, false},
		{-0.1, false},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.ReferralSuccessRate = tt.rate
		err := cfg.Validate()
		if tt.valid && err != nil {
			t.Errorf("rate %v: unexpected error %v", tt.rate, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("rate %v: expected error", tt.rate)
		}
	}
}

func TestValidateTopupRanges(t *testing.T) {
	tests := []struct {
		name  string
		set   func(c *Config)
		field string
	}{
		{"whale inverted", func(c *Config) { c.WhaleTopupMin, c.WhaleTopupMax = 20, 10 }, "whale_topup_max"},
		{"grinder inverted", func(c *Config) { c.GrinderTopupMin, c.GrinderTopupMax = 9, 3 }, "grinder_topup_max"},
		{"casual negative", func(c *Config) { c.CasualTopupMin = -1 }, "casual_topup_min"},
		{"grinder probability", func(c *Config) { c.GrinderPurchaseProbability = 1.2 }, "grinder_purchase_probability"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.set(cfg)
			var cerr *Error
			if !errors.As(cfg.Validate(), &cerr) || !cerr.Has(tt.field) {
				t.Errorf("expected %s to be reported, got %v", tt.field, cerr)
			}
		})
	}

	cfg := Default()
	cfg.CasualTopupMin, cfg.CasualTopupMax = 3, 3
	if err := cfg.Validate(); err != nil {
		t.Errorf("equal bounds should be valid: %v", err)
	}
}

func TestFromMapRejectsUnknownKeys(t *testing.T) {
	_, err := FromMap(map[string]any{
		"owner_base_points": 3.0,
		"owner_points":      1.0,
		"scan_cap":          5,
	})
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if !cerr.Has("owner_points") || !cerr.Has("scan_cap") {
		t.Errorf("expected both unknown keys reported, got %v", cerr)
	}
}

func TestFromMapOverlaysDefaults(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"owner_base_points": 3.5,
		"daily_scan_cap":    12,
		"diminishing_rates": []any{1.0, 0.6},
		"new_player_type_ratios": map[string]any{
			"whale": 0.1, "grinder": 0.3, "casual": 0.6,
		},
	})
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	if cfg.OwnerBasePoints != 3.5 {
		t.Errorf("expected owner_base_points 3.5, got %f", cfg.OwnerBasePoints)
	}
	if cfg.DailyScanCap != 12 {
		t.Errorf("expected daily_scan_cap 12, got %d", cfg.DailyScanCap)
	}
	if len(cfg.DiminishingRates) != 2 || cfg.DiminishingRates[1] != 0.6 {
		t.Errorf("unexpected diminishing_rates %v", cfg.DiminishingRates)
	}
	if cfg.NewPlayerTypeRatios.Whale != 0.1 {
		t.Errorf("expected whale ratio 0.1, got %f", cfg.NewPlayerTypeRatios.Whale)
	}
	if cfg.ScannerBasePoints != Default().ScannerBasePoints {
		t.Errorf("missing key should keep default")
	}
}

func TestFromMapWrongType(t *testing.T) {
	_, err := FromMap(map[string]any{"daily_scan_cap": "lots"})
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error for wrong type, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "economy.yaml")
	content := `
owner_base_points: 2.5
pack_price_points: 250
venue_types: [cafe, park]
venue_type_weights: [0.5, 0.5]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.OwnerBasePoints != 2.5 || cfg.PackPricePoints != 250 {
		t.Errorf("values not loaded: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoadFromFileUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("bogus_key: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestSetParam(t *testing.T) {
	cfg := Default()
	if err := cfg.SetParam("pack_price_points", 349.6); err != nil {
		t.Fatal(err)
	}
	if cfg.PackPricePoints != 350 {
		t.Errorf("expected rounding to 350, got %d", cfg.PackPricePoints)
	}
	if err := cfg.SetParam("viral_enabled", 0); err != nil {
		t.Fatal(err)
	}
	if cfg.ViralEnabled {
		t.Error("expected viral_enabled false")
	}
	if err := cfg.SetParam("diminishing_rates", 1); err == nil {
		t.Error("expected error for list parameter")
	}
	if err := cfg.SetParam("nope", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}

	v, err := cfg.Param("owner_base_points")
	if err != nil || v != 2.0 {
		t.Errorf("Param owner_base_points = %v, %v", v, err)
	}
	if !ParamIsInt("daily_scan_cap") || ParamIsInt("owner_base_points") {
		t.Error("ParamIsInt misclassified parameters")
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg := Default()
	c := cfg.Clone()
	c.DiminishingRates[0] = 0.1
	c.VenueTypes[0] = "mall"
	if cfg.DiminishingRates[0] != 1.0 || cfg.VenueTypes[0] != "restaurant" {
		t.Error("Clone shares slices with the original")
	}
}

func TestMarkerCapacity(t *testing.T) {
	cfg := Default()
	if got := cfg.MarkerCapacity(); got < 490 || got > 510 {
		t.Errorf("expected about 500 markers for a quarter square mile, got %d", got)
	}
	if got := cfg.PopulationCap(); got != 1000 {
		t.Errorf("expected population cap 1000, got %d", got)
	}
}

func TestRuntimeApplyEnv(t *testing.T) {
	t.Setenv("STICKERSIM_WORKERS", "3")
	t.Setenv("STICKERSIM_LOG_LEVEL", "debug")
	t.Setenv("STICKERSIM_TIMEOUT", "90s")
	r := DefaultRuntime()
	r.ApplyEnv()
	if r.Workers != 3 || r.LogLevel != "debug" || r.Timeout.Seconds() != 90 {
		t.Errorf("env overrides not applied: %+v", r)
	}
}
