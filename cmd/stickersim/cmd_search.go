package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/persistence"
	"github.com/talgya/stickersim/internal/search"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		mode       string
		categories []string
		candidates int
		runs       int
		days       int
		master     uint64
		rangesPath string
		weights    string
		top        int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the parameter space for a healthier economy",
		Long: `Evaluate many configurations under the same seeds and rank them by a
weighted score of growth, retention and organic purchasing.

Modes:
  focused   hand-picked variations per mechanic (pack_pricing, scoring,
            diversity, retention, engagement, decay)
  optimize  random configurations drawn within parameter ranges

Examples:
  stickersim search --mode focused --category pack_pricing --runs 5
  stickersim search --mode optimize --candidates 200 --ranges ranges.yaml
  stickersim search --mode optimize --candidates 50 --weights 0.6,0.2,0.2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.loadConfig()
			if err != nil {
				return err
			}
			m, err := search.ParseMode(mode)
			if err != nil {
				return err
			}
			w, err := parseWeights(weights)
			if err != nil {
				return err
			}
			var ranges []search.ParameterRange
			if rangesPath != "" {
				ranges, err = search.LoadRanges(rangesPath)
				if err != nil {
					return err
				}
			}
			if master == 0 {
				master = entropy.MasterSeed()
			}

			id := uuid.NewString()
			res, err := search.Search(cmd.Context(), base, search.Options{
				Mode:       m,
				Categories: categories,
				Candidates: candidates,
				Ranges:     ranges,
				Runs:       runs,
				MaxDays:    days,
				Workers:    a.rt.Workers,
				Timeout:    a.rt.Timeout,
				Weights:    &w,
				MasterSeed: master,
				Logger:     a.logger,
			})
			if err != nil {
				return err
			}

			err = a.store(func(db *persistence.DB) error {
				if err := db.SaveSearch(id, base, master, res); err != nil {
					return fmt.Errorf("failed to store search: %w", err)
				}
				return db.SaveMeta("last_search", id)
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, map[string]any{"id": id, "result": res})
			}
			printSearch(out, id, res, top)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(search.ModeFocused), "Search mode: focused or optimize")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Focused categories to run (default all)")
	cmd.Flags().IntVar(&candidates, "candidates", 50, "Random configurations to try in optimize mode")
	cmd.Flags().IntVar(&runs, "runs", 3, "Seeds per candidate")
	cmd.Flags().IntVar(&days, "days", 0, "Days per run (default max_days)")
	cmd.Flags().Uint64Var(&master, "seed", 0, "Master seed (0 picks one)")
	cmd.Flags().StringVar(&rangesPath, "ranges", "", "YAML or JSON parameter range file for optimize mode")
	cmd.Flags().StringVar(&weights, "weights", "", "Score weights growth,retention,organic (default 0.4,0.3,0.3)")
	cmd.Flags().IntVar(&top, "top", 10, "Rows to print (0 for all)")
	return cmd
}

// parseWeights reads "growth,retention,organic".
func parseWeights(s string) (search.Weights, error) {
	if strings.TrimSpace(s) == "" {
		return search.DefaultWeights(), nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return search.Weights{}, fmt.Errorf("--weights %q: want growth,retention,organic", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return search.Weights{}, fmt.Errorf("--weights %q: %w", s, err)
		}
		v[i] = f
	}
	w := search.Weights{Growth: v[0], Retention: v[1], Organic: v[2]}
	return w, w.Validate()
}

func sortedParamKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
