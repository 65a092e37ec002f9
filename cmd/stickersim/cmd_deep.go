package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talgya/stickersim/internal/deepsim"
	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/persistence"
)

func newDeepCmd(a *app) *cobra.Command {
	var (
		runs   int
		master uint64
		days   int
		metric string
	)
	cmd := &cobra.Command{
		Use:   "deep",
		Short: "Run one configuration under many seeds and aggregate",
		Long: `Run the configuration once per seed on a worker pool and combine the
runs into per-day mean, standard deviation and coefficient of variation
for every metric.

Examples:
  stickersim deep --runs 20 --days 180
  stickersim deep --runs 50 --seed 7 --workers 8 --timeout 10m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if master == 0 {
				master = entropy.MasterSeed()
			}
			id := uuid.NewString()
			a.logger.Info("deep simulation started", "id", id, "runs", runs, "master_seed", master, "workers", a.rt.Workers)

			agg, aggErr := deepsim.Aggregate(cmd.Context(), cfg, deepsim.Seeds(master, runs), deepsim.Options{
				Workers: a.rt.Workers,
				Timeout: a.rt.Timeout,
				MaxDays: days,
				Logger:  a.logger,
			})
			if agg == nil {
				return aggErr
			}

			if agg.Runs > 0 {
				err := a.store(func(db *persistence.DB) error {
					if err := db.SaveDeep(id, cfg, master, agg); err != nil {
						return fmt.Errorf("failed to store deep simulation: %w", err)
					}
					return db.SaveMeta("last_deep", id)
				})
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			switch {
			case a.jsonOut && metric != "":
				series := agg.Metric(metric)
				if series == nil {
					return fmt.Errorf("unknown metric %q", metric)
				}
				if err := writeJSON(out, series); err != nil {
					return err
				}
			case a.jsonOut:
				if err := writeJSON(out, map[string]any{"id": id, "result": agg}); err != nil {
					return err
				}
			default:
				printDeep(out, id, agg)
				if metric != "" {
					if err := printSeries(out, agg, metric); err != nil {
						return err
					}
				}
			}
			return aggErr
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 10, "Number of seeds")
	cmd.Flags().Uint64Var(&master, "seed", 0, "Master seed the run seeds derive from (0 picks one)")
	cmd.Flags().IntVar(&days, "days", 0, "Days per run (default max_days)")
	cmd.Flags().StringVar(&metric, "metric", "", "Also print the per-day series of this metric")
	return cmd
}
