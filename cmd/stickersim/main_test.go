package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/talgya/stickersim/internal/engine"
	"github.com/talgya/stickersim/internal/persistence"
	"github.com/talgya/stickersim/internal/search"
)

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

type runOutput struct {
	ID      string        `json:"id"`
	Partial bool          `json:"partial"`
	Result  engine.Result `json:"result"`
}

func TestRunStoresResult(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	out, err := execute(t, "run", "--seed", "7", "--days", "5", "--db", dbPath,
		"--set", "starting_player_count=20", "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var got runOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.ID == "" || got.Partial || got.Result.Days != 5 || got.Result.Seed != 7 {
		t.Fatalf("unexpected output %+v", got)
	}

	db, err := persistence.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	rec, err := db.GetRun(got.ID)
	if err != nil {
		t.Fatalf("run not stored: %v", err)
	}
	if rec.Days != 5 {
		t.Errorf("stored days %d, want 5", rec.Days)
	}
	last, err := db.GetMeta("last_run")
	if err != nil || last != got.ID {
		t.Errorf("last_run = %q, %v", last, err)
	}

	list, err := execute(t, "runs", "list", "--db", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(list, got.ID) {
		t.Errorf("runs list does not mention %s:\n%s", got.ID, list)
	}
}

func TestRunSnapshotAndResume(t *testing.T) {
	dir := t.TempDir()
	snaps := filepath.Join(dir, "snaps")
	common := []string{"--no-db", "--json", "--set", "starting_player_count=20"}

	out, err := execute(t, append([]string{"run", "--seed", "11", "--days", "6",
		"--snapshot-dir", snaps, "--snapshot-every", "3"}, common...)...)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var full runOutput
	if err := json.Unmarshal([]byte(out), &full); err != nil {
		t.Fatal(err)
	}

	mid, _ := filepath.Glob(filepath.Join(snaps, "*-day0003.snap.zst"))
	end, _ := filepath.Glob(filepath.Join(snaps, "*-day0006.snap.zst"))
	if len(mid) != 1 || len(end) != 1 {
		t.Fatalf("expected day 3 and day 6 snapshots, got %v %v", mid, end)
	}

	out, err = execute(t, append([]string{"resume", mid[0], "--days", "6"}, common...)...)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	var resumed runOutput
	if err := json.Unmarshal([]byte(out), &resumed); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(full.Result.History, resumed.Result.History) {
		t.Error("resumed history differs from the uninterrupted run")
	}
	if full.Result.Summary != resumed.Result.Summary {
		t.Error("resumed summary differs")
	}

	if _, err := execute(t, append([]string{"resume", end[0], "--days", "4"}, common...)...); err == nil {
		t.Error("expected error when resuming to an earlier day")
	}
}

func TestConfigValidateReportsFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	doc := "churn_probability_casual: 2\nweekly_earn_cap: -5\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "config", "validate", path)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, field := range []string{"churn_probability_casual", "weekly_earn_cap"} {
		if !strings.Contains(out, field) {
			t.Errorf("output does not mention %s:\n%s", field, out)
		}
	}

	out, err = execute(t, "config", "validate")
	if err != nil || !strings.Contains(out, "valid") {
		t.Errorf("defaults should validate: %v %q", err, out)
	}
}

func TestConfigShowAppliesOverrides(t *testing.T) {
	out, err := execute(t, "config", "show", "--set", "daily_scan_cap=12")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "daily_scan_cap: 12") {
		t.Errorf("override missing from output:\n%s", out)
	}
	if _, err := execute(t, "config", "show", "--set", "daily_scan_cap"); err == nil {
		t.Error("expected error for malformed --set")
	}
	if _, err := execute(t, "config", "show", "--set", "no_such_param=1"); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestSearchFocusedCommand(t *testing.T) {
	out, err := execute(t, "search", "--mode", "focused", "--category", "decay",
		"--runs", "1", "--days", "4", "--seed", "3", "--no-db", "--json",
		"--set", "starting_player_count=15")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var got struct {
		ID     string        `json:"id"`
		Result search.Result `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Result.Ranked) != 4 {
		t.Errorf("expected 4 ranked candidates, got %d", len(got.Result.Ranked))
	}
}

func TestParseWeights(t *testing.T) {
	tests := []struct {
		in      string
		want    search.Weights
		wantErr bool
	}{
		{"", search.DefaultWeights(), false},
		{"0.5,0.25,0.25", search.Weights{Growth: 0.5, Retention: 0.25, Organic: 0.25}, false},
		{" 1 , 0 , 0 ", search.Weights{Growth: 1}, false},
		{"1,2", search.Weights{}, true},
		{"a,b,c", search.Weights{}, true},
		{"0,0,0", search.Weights{}, true},
	}
	for _, tt := range tests {
		got, err := parseWeights(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseWeights(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseWeights(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseParamValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12", 12},
		{" 0.25 ", 0.25},
		{"true", 1},
		{"off", 0},
	}
	for _, tt := range tests {
		got, err := parseParamValue(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseParamValue(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := parseParamValue("lots"); err == nil {
		t.Error("expected error")
	}
}
