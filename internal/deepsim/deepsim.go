// Package deepsim runs one configuration under many seeds and combines the
// day-aligned histories into per-day statistics.
package deepsim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/talgya/stickersim/internal/batch"
	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/engine"
	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/logging"
)

// Options controls a deep simulation.
type Options struct {
	Workers int
	Timeout time.Duration
	MaxDays int          // defaults to cfg.MaxDays
	Logger  *slog.Logger // progress logging; runs themselves log nothing
}

// Point is the cross-run statistic of one metric on one day.
type Point struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	CV   float64 `json:"cv"`
}

// Series is one metric over the trimmed day range.
type Series struct {
	Name string  `json:"name"`
	Bool bool    `json:"bool,omitempty"`
	Days []Point `json:"days"`
	Mode []bool  `json:"mode,omitempty"` // flags only
	Runs int     `json:"runs"`           // runs that contributed
}

// RunFailure records a run that did not complete.
type RunFailure struct {
	Seed  uint64 `json:"seed"`
	Error string `json:"error"`
}

// AggregatedResult is the combined outcome of a deep simulation.
type AggregatedResult struct {
	Seeds    []uint64            `json:"seeds"`
	Runs     int                 `json:"runs"` // successful runs aggregated
	Days     int                 `json:"days"` // trimmed history length
	Metrics  []Series            `json:"metrics"`
	Summary  map[string]Point    `json:"summary"`
	Failures []RunFailure        `json:"failures,omitempty"`
	Errors   []*AggregationError `json:"errors,omitempty"`
	Partial  bool                `json:"partial"`

	Results []*engine.Result `json:"-"` // successful runs, seed order
}

// Metric returns the series with the given name, or nil.
func (r *AggregatedResult) Metric(name string) *Series {
	for i := range r.Metrics {
		if r.Metrics[i].Name == name {
			return &r.Metrics[i]
		}
	}
	return nil
}

// AggregationError reports a metric that could not be aggregated over some
// runs, or a batch with nothing to aggregate.
type AggregationError struct {
	Metric string `json:"metric,omitempty"`
	Seed   uint64 `json:"seed,omitempty"`
	Reason string `json:"reason"`
}

func (e *AggregationError) Error() string {
	switch {
	case e.Metric != "" && e.Seed != 0:
		return fmt.Sprintf("aggregate %s: seed %d: %s", e.Metric, e.Seed, e.Reason)
	case e.Metric != "":
		return fmt.Sprintf("aggregate %s: %s", e.Metric, e.Reason)
	default:
		return "aggregate: " + e.Reason
	}
}

// Seeds draws n distinct seeds from master.
func Seeds(master uint64, n int) []uint64 {
	return entropy.DeriveSeeds(master, n)
}

// Aggregate runs cfg once per seed on the worker pool and combines the
// successful runs. Failed, cancelled and timed-out runs are listed in
// Failures and never merged.
func Aggregate(ctx context.Context, cfg *config.Config, seeds []uint64, opts Options) (*AggregatedResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[uint64]bool, len(seeds))
	for _, s := range seeds {
		if seen[s] {
			return nil, &AggregationError{Seed: s, Reason: "duplicate seed"}
		}
		seen[s] = true
	}
	maxDays := opts.MaxDays
	if maxDays <= 0 {
		maxDays = cfg.MaxDays
	}
	if maxDays <= 0 {
		return nil, fmt.Errorf("deep simulation needs a bounded day count")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bopts := batch.Options{
		Workers: opts.Workers,
		Timeout: opts.Timeout,
		OnDone: func(idx int, err error) {
			if err != nil {
				logger.Warn("run failed", "seed", seeds[idx], "error", err)
				return
			}
			logger.Debug("run complete", "seed", seeds[idx])
		},
	}
	out := batch.Run(ctx, len(seeds), bopts, func(ctx context.Context, idx int) (*engine.Result, error) {
		return engine.Run(ctx, cfg, seeds[idx], maxDays, engine.Options{Logger: logging.Discard()})
	})

	var ok []*engine.Result
	var failures []RunFailure
	for i, seed := range seeds {
		if out.OK(i) {
			ok = append(ok, out.Results[i])
			continue
		}
		failures = append(failures, RunFailure{Seed: seed, Error: out.Errs[i].Error()})
	}

	res, err := Combine(ok)
	res.Seeds = seeds
	res.Failures = failures
	res.Partial = out.Partial
	logger.Info("deep simulation complete",
		"runs", res.Runs,
		"failed", len(failures),
		"days", res.Days,
		"partial", res.Partial,
	)
	return res, err
}

// Combine aggregates finished runs. Histories are trimmed to the shortest
// run. A run with a non-finite value is excluded from that metric only.
// With zero runs the result is empty and the error is an
// *AggregationError.
func Combine(results []*engine.Result) (*AggregatedResult, error) {
	res := &AggregatedResult{
		Runs:    len(results),
		Summary: make(map[string]Point),
		Results: results,
	}
	if len(results) == 0 {
		err := &AggregationError{Reason: "no successful runs"}
		res.Errors = append(res.Errors, err)
		return res, err
	}

	days := len(results[0].History)
	for _, r := range results[1:] {
		days = min(days, len(r.History))
	}
	res.Days = days

	for _, m := range engine.Metrics {
		res.Metrics = append(res.Metrics, combineMetric(m, results, days, &res.Errors))
	}

	summaries := make([]map[string]float64, len(results))
	for i, r := range results {
		summaries[i] = r.Summary.Values()
	}
	for _, key := range engine.SummaryKeys {
		values := make([]float64, 0, len(results))
		for i, r := range results {
			v := summaries[i][key]
			if !finite(v) {
				res.Errors = append(res.Errors, &AggregationError{Metric: "summary." + key, Seed: r.Seed, Reason: "non-finite value"})
				continue
			}
			values = append(values, v)
		}
		res.Summary[key] = stats(values)
	}
	return res, nil
}

func combineMetric(m engine.Metric, results []*engine.Result, days int, errs *[]*AggregationError) Series {
	series := Series{Name: m.Name, Bool: m.Bool, Days: make([]Point, days)}

	// Collect per-run columns, dropping runs with any non-finite value.
	var columns [][]float64
	for _, r := range results {
		col := make([]float64, days)
		good := true
		for d := 0; d < days; d++ {
			v := m.Value(&r.History[d])
			if !finite(v) {
				*errs = append(*errs, &AggregationError{Metric: m.Name, Seed: r.Seed, Reason: fmt.Sprintf("non-finite value on day %d", r.History[d].Day)})
				good = false
				break
			}
			col[d] = v
		}
		if good {
			columns = append(columns, col)
		}
	}
	series.Runs = len(columns)
	if len(columns) == 0 {
		*errs = append(*errs, &AggregationError{Metric: m.Name, Reason: "no usable runs"})
		return series
	}

	if m.Bool {
		series.Mode = make([]bool, days)
	}
	values := make([]float64, len(columns))
	for d := 0; d < days; d++ {
		trues := 0
		for i, col := range columns {
			values[i] = col[d]
			if col[d] != 0 {
				trues++
			}
		}
		series.Days[d] = stats(values)
		if m.Bool {
			// Ties resolve to false.
			series.Mode[d] = trues*2 > len(columns)
		}
	}
	return series
}

// stats returns the mean, sample standard deviation and coefficient of
// variation. A single value has zero spread; a zero mean has zero CV.
func stats(values []float64) Point {
	n := len(values)
	if n == 0 {
		return Point{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	var p Point
	p.Mean = mean
	if n > 1 {
		var ss float64
		for _, v := range values {
			ss += (v - mean) * (v - mean)
		}
		p.Std = math.Sqrt(ss / float64(n-1))
	}
	if mean != 0 {
		p.CV = p.Std / math.Abs(mean)
	}
	return p
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
