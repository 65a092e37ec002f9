// Package api serves stored simulation results over HTTP.
// GET endpoints are public (read-only).
// POST /api/v1/runs requires a bearer token and starts a new run.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/engine"
	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/persistence"
)

// maxRunDays bounds runs started over HTTP.
const maxRunDays = 3650

// Server serves the results database over HTTP.
type Server struct {
	DB       *persistence.DB
	Base     *config.Config // economy used for POSTed runs
	AdminKey string         // Bearer token for POST endpoints. Empty = POST disabled.
	Logger   *slog.Logger

	// RunLimiter throttles POSTed runs per client. Nil uses 10 per hour.
	RunLimiter *RateLimiter
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	limiter := s.RunLimiter
	if limiter == nil {
		limiter = NewRateLimiter(10, time.Hour)
	}

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/runs/{id}/aggregate", s.handleAggregate)
	mux.HandleFunc("GET /api/v1/runs/{id}/candidates", s.handleCandidates)

	// Admin endpoints.
	mux.HandleFunc("POST /api/v1/runs", s.adminOnly(RateLimitMiddleware(limiter, s.handleStartRun)))

	return corsMiddleware(mux)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Logger.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	s.Logger.Info("HTTP API stopped")
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set STICKERSIM_CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("STICKERSIM_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminOnly requires a matching bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no STICKERSIM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"name": "stickersim"}
	for _, key := range []string{"last_run", "last_deep", "last_search"} {
		if v, err := s.DB.GetMeta(key); err == nil {
			status[key] = v
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	runs, err := s.DB.RecentRuns(limit)
	if err != nil {
		s.fail(w, "runs query failed", err)
		return
	}
	if runs == nil {
		runs = []persistence.RunRecord{}
	}
	writeJSON(w, runs)
}

// lookup loads the run named in the path, writing 404 if it is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (persistence.RunRecord, bool) {
	rec, err := s.DB.GetRun(r.PathValue("id"))
	if errors.Is(err, persistence.ErrNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return rec, false
	}
	if err != nil {
		s.fail(w, "run query failed", err)
		return rec, false
	}
	return rec, true
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{
		"run":     rec,
		"seed":    strconv.FormatUint(rec.SeedValue(), 10),
		"config":  json.RawMessage(rec.ConfigJSON),
		"summary": json.RawMessage(rec.SummaryJSON),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if rec.Kind != persistence.KindRun {
		http.Error(w, "history is only stored for single runs", http.StatusBadRequest)
		return
	}
	days, err := s.DB.History(rec.ID)
	if err != nil {
		s.fail(w, "history query failed", err)
		return
	}
	writeJSON(w, days)
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if rec.Kind != persistence.KindDeep {
		http.Error(w, "aggregates are only stored for deep simulations", http.StatusBadRequest)
		return
	}
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "active_players"
	}
	pts, err := s.DB.Aggregate(rec.ID, metric)
	if err != nil {
		s.fail(w, "aggregate query failed", err)
		return
	}
	if pts == nil {
		pts = []persistence.AggregatePoint{}
	}
	writeJSON(w, map[string]any{"metric": metric, "days": pts})
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if rec.Kind != persistence.KindSearch {
		http.Error(w, "candidates are only stored for searches", http.StatusBadRequest)
		return
	}
	cands, err := s.DB.Candidates(rec.ID)
	if err != nil {
		s.fail(w, "candidates query failed", err)
		return
	}
	type entry struct {
		persistence.CandidateRecord
		Params map[string]float64 `json:"params"`
	}
	out := make([]entry, 0, len(cands))
	for _, c := range cands {
		params, err := c.Params()
		if err != nil {
			s.fail(w, "decode candidate params", err)
			return
		}
		out = append(out, entry{CandidateRecord: c, Params: params})
	}
	writeJSON(w, out)
}

// runRequest is the body of POST /api/v1/runs.
type runRequest struct {
	Seed   uint64             `json:"seed"`
	Days   int                `json:"days"`
	Params map[string]float64 `json:"params"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg := config.Default()
	if s.Base != nil {
		cfg = s.Base.Clone()
	}
	for _, name := range sortedNames(req.Params) {
		if err := cfg.SetParam(name, req.Params[name]); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	days := req.Days
	if days == 0 {
		days = cfg.MaxDays
	}
	if days <= 0 || days > maxRunDays {
		http.Error(w, fmt.Sprintf("days must be in 1..%d", maxRunDays), http.StatusBadRequest)
		return
	}
	seed := req.Seed
	if seed == 0 {
		seed = entropy.MasterSeed()
	}

	id := uuid.NewString()
	s.Logger.Info("run requested", "id", id, "seed", seed, "days", days, "client", clientAddr(r))
	res, err := engine.Run(r.Context(), cfg, seed, days, engine.Options{Logger: s.Logger})
	if err != nil {
		s.fail(w, "run failed", err)
		return
	}
	if err := s.DB.SaveRun(id, cfg, res, false); err != nil {
		s.fail(w, "failed to store run", err)
		return
	}
	if err := s.DB.SaveMeta("last_run", id); err != nil {
		s.Logger.Warn("failed to update last_run", "error", err)
	}

	w.Header().Set("Location", "/api/v1/runs/"+id)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]any{
		"id":      id,
		"seed":    strconv.FormatUint(seed, 10),
		"days":    res.Days,
		"summary": res.Summary,
	})
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.Logger.Error(msg, "error", err)
	http.Error(w, msg, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
