package search

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/logging"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.StartingPlayerCount = 25
	cfg.MaxDays = 12
	return cfg
}

func TestSnap(t *testing.T) {
	owner := ParameterRange{Name: "owner_base_points", Min: 1, Max: 4, Step: 0.5, Type: TypeFloat}
	thresh := ParameterRange{Name: "diminishing_threshold", Min: 2, Max: 5, Step: 1, Type: TypeInt}
	odd := ParameterRange{Name: "sticker_min_value", Min: 0, Max: 1, Step: 0.3, Type: TypeFloat}
	tests := []struct {
		r    ParameterRange
		in   float64
		want float64
	}{
		{owner, 2.3, 2.5},
		{owner, 2.2, 2.0},
		{owner, 9, 4},
		{owner, -3, 1},
		{thresh, 3.4, 3},
		{thresh, 4.6, 5},
		{odd, 1.0, 0.9},
		{odd, 0.31, 0.3},
	}
	for _, tt := range tests {
		if got := tt.r.Snap(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s.Snap(%v) = %v, want %v", tt.r.Name, tt.in, got, tt.want)
		}
	}
}

func TestDefaultRangesValid(t *testing.T) {
	for _, r := range DefaultRanges() {
		if err := r.Validate(); err != nil {
			t.Errorf("default range: %v", err)
		}
		if (r.Type == TypeInt) != config.ParamIsInt(r.Name) {
			t.Errorf("%s: range type %s disagrees with parameter kind", r.Name, r.Type)
		}
	}
}

func TestRandomCandidatesStayOnGrid(t *testing.T) {
	ranges := DefaultRanges()
	cands := RandomCandidates(ranges, 20, 99)
	if len(cands) != 20 {
		t.Fatalf("got %d candidates", len(cands))
	}
	for _, params := range cands {
		for _, r := range ranges {
			v := params[r.Name]
			if v < r.Min-1e-9 || v > r.Max+1e-9 {
				t.Fatalf("%s = %v outside [%v, %v]", r.Name, v, r.Min, r.Max)
			}
			steps := (v - r.Min) / r.Step
			if math.Abs(steps-math.Round(steps)) > 1e-6 {
				t.Fatalf("%s = %v is off the %v grid", r.Name, v, r.Step)
			}
		}
	}

	again := RandomCandidates(ranges, 20, 99)
	for i := range cands {
		for k, v := range cands[i] {
			if again[i][k] != v {
				t.Fatalf("candidate %d differs for the same seed", i)
			}
		}
	}
}

func TestParseRanges(t *testing.T) {
	doc := `
ranges:
  - name: owner_base_points
    min: 1
    max: 3
    step: 0.5
  - name: daily_scan_cap
    min: 10
    max: 30
    step: 5
`
	ranges, err := ParseRanges([]byte(doc))
	if err != nil {
		t.Fatalf("ParseRanges: %v", err)
	}
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges", len(ranges))
	}
	if ranges[0].Type != TypeFloat || ranges[1].Type != TypeInt {
		t.Errorf("types not inferred: %+v", ranges)
	}
}

func TestParseRangesRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing step", `{"ranges": [{"name": "owner_base_points", "min": 1, "max": 2}]}`, "invalid range file"},
		{"zero step", `{"ranges": [{"name": "owner_base_points", "min": 1, "max": 2, "step": 0}]}`, "invalid range file"},
		{"extra key", `{"ranges": [{"name": "owner_base_points", "min": 1, "max": 2, "step": 1, "mean": 1}]}`, "invalid range file"},
		{"bad type", `{"ranges": [{"name": "owner_base_points", "min": 1, "max": 2, "step": 1, "type": "bool"}]}`, "invalid range file"},
		{"empty", `{"ranges": []}`, "invalid range file"},
		{"unknown param", `{"ranges": [{"name": "owner_points", "min": 1, "max": 2, "step": 1}]}`, "unknown parameter"},
		{"inverted", `{"ranges": [{"name": "owner_base_points", "min": 3, "max": 2, "step": 1}]}`, "below min"},
		{"duplicate", `{"ranges": [{"name": "owner_base_points", "min": 1, "max": 2, "step": 1}, {"name": "owner_base_points", "min": 1, "max": 2, "step": 1}]}`, "twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRanges([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadRangesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranges.json")
	doc := `{"ranges": [{"name": "sticker_decay_rate", "min": 0.05, "max": 0.2, "step": 0.05, "type": "float"}]}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	ranges, err := LoadRanges(path)
	if err != nil {
		t.Fatalf("LoadRanges: %v", err)
	}
	if len(ranges) != 1 || ranges[0].Max != 0.2 {
		t.Errorf("unexpected ranges %+v", ranges)
	}
	if _, err := LoadRanges(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFocusedGrids(t *testing.T) {
	base := config.Default()
	for _, cat := range Categories {
		grid, err := FocusedGrid(cat)
		if err != nil {
			t.Fatal(err)
		}
		if len(grid) == 0 {
			t.Fatalf("%s: empty grid", cat)
		}
		for _, g := range grid {
			if !strings.Contains(g.Label, ": ") {
				t.Errorf("%s: label %q lacks category title", cat, g.Label)
			}
			cfg := base.Clone()
			for k, v := range g.Params {
				if err := cfg.SetParam(k, v); err != nil {
					t.Fatalf("%s: %v", g.Label, err)
				}
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s: invalid config: %v", g.Label, err)
			}
		}
	}
	if _, err := FocusedGrid("pricing"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestFocusedGridReturnsCopies(t *testing.T) {
	a, _ := FocusedGrid(CategoryDecay)
	a[0].Params["sticker_decay_rate"] = 0.9
	b, _ := FocusedGrid(CategoryDecay)
	if b[0].Params["sticker_decay_rate"] == 0.9 {
		t.Error("FocusedGrid shares parameter maps")
	}
}

func TestDrawWeighsGridPointsEvenly(t *testing.T) {
	r := ParameterRange{Name: "daily_scan_cap", Min: 10, Max: 12, Step: 1, Type: TypeInt}
	rng := entropy.NewStream(31)
	counts := map[float64]int{}
	const n = 3000
	for i := 0; i < n; i++ {
		counts[r.Draw(rng)]++
	}
	if len(counts) != 3 {
		t.Fatalf("expected grid points 10, 11, 12, got %v", counts)
	}
	// Each point has probability 1/3: mean 1000, sd about 26.
	for v, c := range counts {
		if c < 870 || c > 1130 {
			t.Errorf("value %v drawn %d times of %d, want about %d", v, c, n, n/3)
		}
	}
}

func TestScoreOrganicIgnoresWhalePurchases(t *testing.T) {
	base := map[string]float64{
		"active_players":    80,
		"total_players":     100,
		"retention_rate":    0.8,
		"organic_purchases": 30,
		"grinder_purchases": 20,
		"casual_purchases":  10,
		"whale_purchases":   5,
	}
	more := make(map[string]float64, len(base))
	for k, v := range base {
		more[k] = v
	}
	more["whale_purchases"] = 500

	a, b := Score(base, DefaultWeights()), Score(more, DefaultWeights())
	if a.Organic != b.Organic || a.Overall != b.Overall {
		t.Errorf("whale purchases moved the score: %+v vs %+v", a, b)
	}
}

func TestScore(t *testing.T) {
	summary := map[string]float64{
		"active_players":       100,
		"total_players":        200,
		"retention_rate":       0.5,
		"avg_consecutive_days": 4,
		"organic_purchases":    50,
		"grinder_purchases":    20,
		"casual_purchases":     40,
	}
	s := Score(summary, DefaultWeights())
	want := Scores{Growth: 220, Retention: 540, Organic: 35, Overall: 260.5}
	for _, c := range []struct {
		name      string
		got, want float64
	}{
		{"growth", s.Growth, want.Growth},
		{"retention", s.Retention, want.Retention},
		{"organic", s.Organic, want.Organic},
		{"overall", s.Overall, want.Overall},
	} {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	empty := Score(map[string]float64{}, DefaultWeights())
	if empty.Organic != 0 || empty.Overall != 0 {
		t.Errorf("empty summary should score zero, got %+v", empty)
	}
}

func TestWeightsValidate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Error(err)
	}
	if err := (Weights{}).Validate(); err == nil {
		t.Error("expected error for zero weights")
	}
	if err := (Weights{Growth: -1, Retention: 1}).Validate(); err == nil {
		t.Error("expected error for negative weight")
	}
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name   string
		xs, ys []float64
		want   float64
	}{
		{"positive", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, 1},
		{"negative", []float64{1, 2, 3, 4}, []float64{8, 6, 4, 2}, -1},
		{"constant x", []float64{3, 3, 3}, []float64{1, 2, 3}, 0},
		{"single pair", []float64{1}, []float64{1}, 0},
	}
	for _, tt := range tests {
		if got := Pearson(tt.xs, tt.ys); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: Pearson = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSearchFocused(t *testing.T) {
	opts := Options{
		Mode:       ModeFocused,
		Categories: []string{CategoryDecay},
		Runs:       2,
		Workers:    2,
		MasterSeed: 5,
		Logger:     logging.Discard(),
	}
	res, err := Search(context.Background(), testConfig(), opts)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Ranked) != 4 || len(res.Failed) != 0 {
		t.Fatalf("ranked=%d failed=%d", len(res.Ranked), len(res.Failed))
	}
	if res.Partial {
		t.Error("complete search marked partial")
	}
	for i, c := range res.Ranked {
		if c.Runs != 2 {
			t.Errorf("%s: %d runs, want 2", c.Label, c.Runs)
		}
		if c.Summary["days"] != 12 {
			t.Errorf("%s: mean days %v, want 12", c.Label, c.Summary["days"])
		}
		if i > 0 && c.Scores.Overall > res.Ranked[i-1].Scores.Overall {
			t.Errorf("ranking not descending at %d", i)
		}
	}
	names := map[string]bool{}
	for _, c := range res.Correlations {
		names[c.Param] = true
		if c.R < -1 || c.R > 1 {
			t.Errorf("%s: r = %v out of range", c.Param, c.R)
		}
	}
	if !names["sticker_decay_rate"] || !names["sticker_min_value"] {
		t.Errorf("missing correlations: %+v", res.Correlations)
	}

	again, err := Search(context.Background(), testConfig(), opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := range res.Ranked {
		if res.Ranked[i].Label != again.Ranked[i].Label || res.Ranked[i].Scores != again.Ranked[i].Scores {
			t.Fatalf("search not deterministic at rank %d", i)
		}
	}
}

func TestSearchOptimize(t *testing.T) {
	ranges := []ParameterRange{
		{Name: "owner_base_points", Min: 1, Max: 4, Step: 0.5, Type: TypeFloat},
		{Name: "daily_scan_cap", Min: 10, Max: 30, Step: 5, Type: TypeInt},
	}
	res, err := Search(context.Background(), testConfig(), Options{
		Mode:       ModeOptimize,
		Candidates: 3,
		Ranges:     ranges,
		Runs:       1,
		MasterSeed: 8,
		Logger:     logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Ranked) != 3 {
		t.Fatalf("ranked=%d failed=%+v", len(res.Ranked), res.Failed)
	}
	for _, c := range res.Ranked {
		if c.Config.OwnerBasePoints != c.Params["owner_base_points"] {
			t.Errorf("%s: config not updated from params", c.Label)
		}
		if float64(c.Config.DailyScanCap) != c.Params["daily_scan_cap"] {
			t.Errorf("%s: scan cap not applied", c.Label)
		}
	}
}

func TestSearchInvalidCandidatesAreListed(t *testing.T) {
	ranges := []ParameterRange{
		{Name: "sticker_min_value", Min: 1.5, Max: 3, Step: 0.5, Type: TypeFloat},
	}
	res, err := Search(context.Background(), testConfig(), Options{
		Mode:       ModeOptimize,
		Candidates: 2,
		Ranges:     ranges,
		Runs:       1,
		Logger:     logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Ranked) != 0 || len(res.Failed) != 2 {
		t.Fatalf("ranked=%d failed=%d", len(res.Ranked), len(res.Failed))
	}
	if !strings.Contains(res.Failed[0].Err, "sticker_min_value") {
		t.Errorf("failure should name the field, got %q", res.Failed[0].Err)
	}
	if res.Best() != nil {
		t.Error("Best should be nil with nothing ranked")
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Search(ctx, testConfig(), Options{
		Mode:       ModeFocused,
		Categories: []string{CategoryScoring},
		Runs:       1,
		Logger:     logging.Discard(),
	})
	if err != nil {
		t.Fatalf("cancellation should not be an error: %v", err)
	}
	if !res.Partial {
		t.Error("expected partial result")
	}
	if len(res.Ranked) != 0 || len(res.Failed) != 7 {
		t.Errorf("ranked=%d failed=%d", len(res.Ranked), len(res.Failed))
	}
}

func TestSearchRejectsBadOptions(t *testing.T) {
	base := testConfig()
	if _, err := Search(context.Background(), base, Options{Mode: "grid"}); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := Search(context.Background(), base, Options{Mode: ModeOptimize}); err == nil {
		t.Error("expected error for zero candidates")
	}
	if _, err := Search(context.Background(), base, Options{Mode: ModeFocused, Categories: []string{"nope"}}); err == nil {
		t.Error("expected error for unknown category")
	}
	if _, err := Search(context.Background(), base, Options{Mode: ModeFocused, Weights: &Weights{}}); err == nil {
		t.Error("expected error for zero weights")
	}
	if _, err := ParseMode("grid"); err == nil {
		t.Error("ParseMode accepted an unknown mode")
	}
}
