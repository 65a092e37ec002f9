package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/talgya/stickersim/internal/deepsim"
	"github.com/talgya/stickersim/internal/engine"
	"github.com/talgya/stickersim/internal/persistence"
	"github.com/talgya/stickersim/internal/search"
)

func newJSONEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

func dollars(v float64) string {
	return "$" + humanize.CommafWithDigits(v, 2)
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func printSummary(w io.Writer, id string, s engine.Summary) {
	if id != "" {
		fmt.Fprintf(w, "Run %s\n", id)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  Days\t%d\n", s.Days)
	fmt.Fprintf(tw, "  Players (active / ever)\t%s / %s\n", humanize.Comma(int64(s.ActivePlayers)), humanize.Comma(int64(s.TotalPlayers)))
	fmt.Fprintf(tw, "  Peak active\t%s\n", humanize.Comma(int64(s.PeakActive)))
	fmt.Fprintf(tw, "  Retention\t%s\n", percent(s.RetentionRate))
	fmt.Fprintf(tw, "  Mix (whale / grinder / casual)\t%d / %d / %d\n", s.ActiveWhales, s.ActiveGrinders, s.ActiveCasuals)
	fmt.Fprintf(tw, "  Revenue\t%s\n", dollars(s.TotalRevenue))
	fmt.Fprintf(tw, "  Scans\t%s\n", humanize.Comma(int64(s.TotalScans)))
	fmt.Fprintf(tw, "  Markers\t%s\n", humanize.Comma(int64(s.TotalMarkers)))
	fmt.Fprintf(tw, "  Points distributed\t%s\n", humanize.CommafWithDigits(s.PointsDistributed, 1))
	fmt.Fprintf(tw, "  Pack purchases (points / whale / grinder / casual)\t%d / %d / %d / %d\n",
		s.OrganicPurchases, s.WhalePurchases, s.GrinderPurchases, s.CasualPurchases)
	fmt.Fprintf(tw, "  Avg streak\t%.1f days\n", s.AvgConsecutiveDays)
	fmt.Fprintf(tw, "  New players (organic / viral)\t%d / %d\n", s.OrganicNewPlayers, s.ViralRecruits)
	fmt.Fprintf(tw, "  Viral events\t%d\n", s.ViralEvents)
	fmt.Fprintf(tw, "  Events\t%d\n", s.Events)
	tw.Flush()
}

var deepHighlights = []string{
	"active_players", "total_players", "retention_rate", "total_revenue",
	"total_scans", "organic_purchases", "avg_consecutive_days", "viral_events",
}

func printDeep(w io.Writer, id string, agg *deepsim.AggregatedResult) {
	if id != "" {
		fmt.Fprintf(w, "Deep simulation %s\n", id)
	}
	fmt.Fprintf(w, "  %d runs aggregated over %d days", agg.Runs, agg.Days)
	if len(agg.Failures) > 0 {
		fmt.Fprintf(w, ", %d failed", len(agg.Failures))
	}
	if agg.Partial {
		fmt.Fprint(w, " (partial)")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  metric\tmean\tstd\tcv")
	for _, key := range deepHighlights {
		p, ok := agg.Summary[key]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%.3f\n", key,
			humanize.CommafWithDigits(p.Mean, 2), humanize.CommafWithDigits(p.Std, 2), p.CV)
	}
	tw.Flush()

	for _, f := range agg.Failures {
		fmt.Fprintf(w, "  seed %d failed: %s\n", f.Seed, f.Error)
	}
	for _, e := range agg.Errors {
		fmt.Fprintf(w, "  warning: %v\n", e)
	}
}

func printSearch(w io.Writer, id string, res *search.Result, top int) {
	if id != "" {
		fmt.Fprintf(w, "Search %s (%s, %d seeds per candidate)\n", id, res.Mode, len(res.Seeds))
	}
	if res.Partial {
		fmt.Fprintln(w, "  search was cut short; unfinished candidates are listed as failed")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  rank\tcandidate\toverall\tgrowth\tretention\torganic")
	for i, c := range res.Ranked {
		if top > 0 && i >= top {
			break
		}
		fmt.Fprintf(tw, "  %d\t%s\t%.1f\t%.1f\t%.1f\t%.1f\n",
			i+1, c.Label, c.Scores.Overall, c.Scores.Growth, c.Scores.Retention, c.Scores.Organic)
	}
	tw.Flush()

	if best := res.Best(); best != nil && len(best.Params) > 0 {
		fmt.Fprintln(w, "\n  Best parameters:")
		for _, k := range sortedParamKeys(best.Params) {
			fmt.Fprintf(w, "    %s: %g\n", k, best.Params[k])
		}
	}
	if len(res.Correlations) > 0 {
		fmt.Fprintln(w, "\n  Parameter impact (correlation with overall score):")
		for i, c := range res.Correlations {
			if top > 0 && i >= top {
				break
			}
			fmt.Fprintf(w, "    %-32s %+.3f\n", c.Param, c.R)
		}
	}
	for _, c := range res.Failed {
		fmt.Fprintf(w, "  failed: %s: %s\n", c.Label, truncate(c.Err, 120))
	}
}

func printRuns(w io.Writer, runs []persistence.RunRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tDAYS\tRUNS\tCREATED")
	for _, r := range runs {
		created := r.CreatedAt
		if t, err := r.Created(); err == nil {
			created = humanize.Time(t)
		}
		kind := r.Kind
		if r.Partial {
			kind += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.ID, kind, r.Days, r.Runs, created)
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func printSeries(w io.Writer, agg *deepsim.AggregatedResult, name string) error {
	s := agg.Metric(name)
	if s == nil {
		return fmt.Errorf("unknown metric %q", name)
	}
	fmt.Fprintf(w, "\n  %s (%d runs)\n", s.Name, s.Runs)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if s.Bool && len(s.Mode) == len(s.Days) {
		fmt.Fprintln(tw, "  day\tmode\tshare")
		for i, p := range s.Days {
			fmt.Fprintf(tw, "  %d\t%v\t%.2f\n", i+1, s.Mode[i], p.Mean)
		}
	} else {
		fmt.Fprintln(tw, "  day\tmean\tstd\tcv")
		for i, p := range s.Days {
			fmt.Fprintf(tw, "  %d\t%.2f\t%.2f\t%.3f\n", i+1, p.Mean, p.Std, p.CV)
		}
	}
	return tw.Flush()
}
