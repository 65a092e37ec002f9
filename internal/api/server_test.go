package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/engine"
	"github.com/talgya/stickersim/internal/logging"
	"github.com/talgya/stickersim/internal/persistence"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.StartingPlayerCount = 20
	cfg.MaxDays = 5
	return cfg
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s := &Server{
		DB:         db,
		Base:       testConfig(),
		AdminKey:   "secret",
		Logger:     logging.Discard(),
		RunLimiter: NewRateLimiter(2, time.Hour),
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func storeRun(t *testing.T, db *persistence.DB, id string) {
	t.Helper()
	cfg := testConfig()
	res, err := engine.Run(context.Background(), cfg, 9, cfg.MaxDays, engine.Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveRun(id, cfg, res, false); err != nil {
		t.Fatal(err)
	}
}

func get(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postRun(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/api/v1/runs", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestReadEndpoints(t *testing.T) {
	s, ts := newTestServer(t)
	storeRun(t, s.DB, "run-a")

	var runs []persistence.RunRecord
	if code := get(t, ts.URL+"/api/v1/runs", &runs); code != http.StatusOK {
		t.Fatalf("runs status %d", code)
	}
	if len(runs) != 1 || runs[0].ID != "run-a" {
		t.Fatalf("unexpected runs %+v", runs)
	}

	var detail struct {
		Run     persistence.RunRecord `json:"run"`
		Summary engine.Summary        `json:"summary"`
	}
	if code := get(t, ts.URL+"/api/v1/runs/run-a", &detail); code != http.StatusOK {
		t.Fatalf("run status %d", code)
	}
	if detail.Run.Days != 5 || detail.Summary.TotalPlayers == 0 {
		t.Errorf("unexpected detail %+v", detail)
	}

	var history []engine.DailyStats
	if code := get(t, ts.URL+"/api/v1/runs/run-a/history", &history); code != http.StatusOK {
		t.Fatalf("history status %d", code)
	}
	if len(history) != 5 || history[0].Day != 1 {
		t.Errorf("history has %d days", len(history))
	}

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/runs/missing", http.StatusNotFound},
		{"/api/v1/runs/missing/history", http.StatusNotFound},
		{"/api/v1/runs/run-a/aggregate", http.StatusBadRequest},
		{"/api/v1/runs/run-a/candidates", http.StatusBadRequest},
		{"/api/v1/status", http.StatusOK},
	}
	for _, tt := range tests {
		if code := get(t, ts.URL+tt.path, nil); code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, code, tt.want)
		}
	}
}

func TestStartRunRequiresToken(t *testing.T) {
	_, ts := newTestServer(t)
	if resp := postRun(t, ts.URL, "", `{}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: %d", resp.StatusCode)
	}
	if resp := postRun(t, ts.URL, "wrong", `{}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: %d", resp.StatusCode)
	}

	open := &Server{DB: nil, Logger: logging.Discard()}
	ts2 := httptest.NewServer(open.Handler())
	defer ts2.Close()
	if resp := postRun(t, ts2.URL, "anything", `{}`); resp.StatusCode != http.StatusForbidden {
		t.Errorf("admin disabled: %d", resp.StatusCode)
	}
}

func TestStartRun(t *testing.T) {
	s, ts := newTestServer(t)

	resp := postRun(t, ts.URL, "secret", `{"seed": 4, "days": 3, "params": {"daily_scan_cap": 8}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var created struct {
		ID   string `json:"id"`
		Seed string `json:"seed"`
		Days int    `json:"days"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Seed != "4" || created.Days != 3 {
		t.Errorf("unexpected response %+v", created)
	}
	if resp.Header.Get("Location") != "/api/v1/runs/"+created.ID {
		t.Errorf("Location = %q", resp.Header.Get("Location"))
	}

	rec, err := s.DB.GetRun(created.ID)
	if err != nil {
		t.Fatalf("run not stored: %v", err)
	}
	cfg, err := rec.Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DailyScanCap != 8 {
		t.Errorf("override not applied: daily_scan_cap = %d", cfg.DailyScanCap)
	}
	if last, _ := s.DB.GetMeta("last_run"); last != created.ID {
		t.Errorf("last_run = %q", last)
	}

	// Bad requests still count against the limit of two.
	if resp := postRun(t, ts.URL, "secret", `{"params": {"no_such_param": 1}}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown param: %d", resp.StatusCode)
	}
	if resp := postRun(t, ts.URL, "secret", `{"days": 3}`); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected rate limit, got %d", resp.StatusCode)
	}
}

func TestStartRunValidation(t *testing.T) {
	_, ts := newTestServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"days":`},
		{"unknown field", `{"dayz": 3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := postRun(t, ts.URL, "secret", tt.body); resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("limits are per client")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Errorf("RetryAfter = %d, want 61", got)
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("window should have reset")
	}
}

func TestClientAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := clientAddr(r); got != "10.0.0.1" {
		t.Errorf("clientAddr = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientAddr(r); got != "203.0.113.9" {
		t.Errorf("clientAddr with XFF = %q", got)
	}
}
