// Package search explores the economy parameter space: hand-picked focused
// grids per mechanic, or random candidates drawn within ranges. Every
// candidate runs under the same seeds and is scored on growth, retention
// and organic purchasing.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/talgya/stickersim/internal/batch"
	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/engine"
	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/logging"
)

// Mode selects how candidates are generated.
type Mode string

const (
	ModeFocused  Mode = "focused"
	ModeOptimize Mode = "optimize"
)

// ParseMode accepts "focused" or "optimize".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFocused, ModeOptimize:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown search mode %q", s)
}

// candidateSalt separates the candidate-drawing stream from run seeds.
const candidateSalt = 0x9e3779b97f4a7c15

// Options controls a search.
type Options struct {
	Mode       Mode
	Categories []string         // focused; all categories when empty
	Candidates int              // optimize; number of random configurations
	Ranges     []ParameterRange // optimize; DefaultRanges when empty
	Runs       int              // seeds per candidate, default 3
	MaxDays    int              // defaults to the base config's MaxDays
	Workers    int
	Timeout    time.Duration
	Weights    *Weights // DefaultWeights when nil
	MasterSeed uint64
	Logger     *slog.Logger
}

// Candidate is one configuration under evaluation.
type Candidate struct {
	ID       int                `json:"id"`
	Label    string             `json:"label"`
	Category string             `json:"category,omitempty"`
	Params   map[string]float64 `json:"params"`
	Summary  map[string]float64 `json:"summary,omitempty"` // mean over runs
	Scores   Scores             `json:"scores"`
	Runs     int                `json:"runs"`
	Err      string             `json:"error,omitempty"`

	Config *config.Config `json:"-"`
}

// Failed reports whether the candidate was excluded from ranking.
func (c *Candidate) Failed() bool {
	return c.Err != ""
}

// Result is the outcome of a search.
type Result struct {
	Mode         Mode          `json:"mode"`
	Seeds        []uint64      `json:"seeds"`
	Weights      Weights       `json:"weights"`
	Ranked       []*Candidate  `json:"ranked"`
	Failed       []*Candidate  `json:"failed,omitempty"`
	Correlations []Correlation `json:"correlations"`
	Partial      bool          `json:"partial"`
}

// Best returns the top-ranked candidate, or nil.
func (r *Result) Best() *Candidate {
	if len(r.Ranked) == 0 {
		return nil
	}
	return r.Ranked[0]
}

// Candidates builds the candidate list for opts without running anything.
// Candidates whose parameters produce an invalid configuration carry the
// validation error and are never run.
func Candidates(base *config.Config, opts Options) ([]*Candidate, error) {
	var cands []*Candidate
	add := func(label, category string, params map[string]float64) {
		c := &Candidate{ID: len(cands), Label: label, Category: category, Params: params}
		cfg := base.Clone()
		for _, k := range sortedKeys(params) {
			if err := cfg.SetParam(k, params[k]); err != nil {
				c.Err = err.Error()
				break
			}
		}
		if c.Err == "" {
			if err := cfg.Validate(); err != nil {
				c.Err = err.Error()
			}
		}
		c.Config = cfg
		cands = append(cands, c)
	}

	switch opts.Mode {
	case ModeFocused:
		cats := opts.Categories
		if len(cats) == 0 {
			cats = Categories
		}
		for _, cat := range cats {
			grid, err := FocusedGrid(cat)
			if err != nil {
				return nil, err
			}
			for _, g := range grid {
				add(g.Label, cat, g.Params)
			}
		}
	case ModeOptimize:
		if opts.Candidates <= 0 {
			return nil, fmt.Errorf("optimize needs a positive candidate count")
		}
		ranges := opts.Ranges
		if len(ranges) == 0 {
			ranges = DefaultRanges()
		}
		for _, r := range ranges {
			if err := r.Validate(); err != nil {
				return nil, err
			}
		}
		for i, params := range RandomCandidates(ranges, opts.Candidates, opts.MasterSeed^candidateSalt) {
			add(fmt.Sprintf("Candidate %d", i+1), "", params)
		}
	default:
		return nil, fmt.Errorf("unknown search mode %q", opts.Mode)
	}
	return cands, nil
}

// RandomCandidates draws n parameter sets, each value uniform within its
// range and snapped to the range step.
func RandomCandidates(ranges []ParameterRange, n int, seed uint64) []map[string]float64 {
	rng := entropy.NewStream(seed)
	out := make([]map[string]float64, n)
	for i := range out {
		params := make(map[string]float64, len(ranges))
		for _, r := range ranges {
			params[r.Name] = r.Draw(rng)
		}
		out[i] = params
	}
	return out
}

type job struct {
	cand *Candidate
	seed uint64
}

// Search evaluates every candidate under the same Runs seeds on the worker
// pool. A candidate with any failed run, or an invalid configuration, is
// listed in Failed rather than ranked. Cancellation and the timeout yield
// a Partial result, not an error.
func Search(ctx context.Context, base *config.Config, opts Options) (*Result, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	weights := DefaultWeights()
	if opts.Weights != nil {
		weights = *opts.Weights
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	runs := opts.Runs
	if runs <= 0 {
		runs = 3
	}
	maxDays := opts.MaxDays
	if maxDays <= 0 {
		maxDays = base.MaxDays
	}
	if maxDays <= 0 {
		return nil, fmt.Errorf("search needs a bounded day count")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cands, err := Candidates(base, opts)
	if err != nil {
		return nil, err
	}
	seeds := entropy.DeriveSeeds(opts.MasterSeed, runs)
	res := &Result{Mode: opts.Mode, Seeds: seeds, Weights: weights}

	var jobs []job
	for _, c := range cands {
		if c.Failed() {
			logger.Warn("candidate rejected", "candidate", c.Label, "error", c.Err)
			continue
		}
		for _, s := range seeds {
			jobs = append(jobs, job{cand: c, seed: s})
		}
	}
	logger.Info("search started",
		"mode", opts.Mode,
		"candidates", len(cands),
		"runs", runs,
		"days", maxDays,
	)

	pending := make(map[*Candidate]int, len(cands))
	for _, j := range jobs {
		pending[j.cand]++
	}
	bopts := batch.Options{
		Workers: opts.Workers,
		Timeout: opts.Timeout,
		OnDone: func(idx int, err error) {
			c := jobs[idx].cand
			if err != nil {
				logger.Debug("run failed", "candidate", c.Label, "seed", jobs[idx].seed, "error", err)
			}
			pending[c]--
			if pending[c] == 0 {
				logger.Debug("candidate complete", "candidate", c.Label)
			}
		},
	}
	out := batch.Run(ctx, len(jobs), bopts, func(ctx context.Context, idx int) (map[string]float64, error) {
		j := jobs[idx]
		r, err := engine.Run(ctx, j.cand.Config, j.seed, maxDays, engine.Options{Logger: logging.Discard()})
		if err != nil {
			return nil, err
		}
		return r.Summary.Values(), nil
	})
	res.Partial = out.Partial

	perCand := make(map[*Candidate][]map[string]float64, len(cands))
	for i, j := range jobs {
		if !out.OK(i) {
			if j.cand.Err == "" {
				j.cand.Err = fmt.Sprintf("seed %d: %v", j.seed, out.Errs[i])
			}
			continue
		}
		perCand[j.cand] = append(perCand[j.cand], out.Results[i])
	}

	for _, c := range cands {
		if c.Failed() {
			res.Failed = append(res.Failed, c)
			continue
		}
		c.Runs = len(perCand[c])
		c.Summary = meanSummary(perCand[c])
		c.Scores = Score(c.Summary, weights)
		res.Ranked = append(res.Ranked, c)
	}
	sort.SliceStable(res.Ranked, func(i, j int) bool {
		return res.Ranked[i].Scores.Overall > res.Ranked[j].Scores.Overall
	})
	res.Correlations = Correlations(res.Ranked)

	attrs := []any{"ranked", len(res.Ranked), "failed", len(res.Failed), "partial", res.Partial}
	if best := res.Best(); best != nil {
		attrs = append(attrs, "best", best.Label, "score", best.Scores.Overall)
	}
	logger.Info("search complete", attrs...)
	return res, nil
}

func meanSummary(runs []map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(engine.SummaryKeys))
	if len(runs) == 0 {
		return out
	}
	for _, key := range engine.SummaryKeys {
		var sum float64
		for _, r := range runs {
			sum += r[key]
		}
		out[key] = sum / float64(len(runs))
	}
	return out
}
