package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talgya/stickersim/internal/engine"
	"github.com/talgya/stickersim/internal/entropy"
	"github.com/talgya/stickersim/internal/persistence"
)

type driveOptions struct {
	days        int // last day; 0 runs until interrupted
	snapDir     string
	snapEvery   int
	runID       string
	progressDay int
}

func newRunCmd(a *app) *cobra.Command {
	var (
		seed  uint64
		drive driveOptions
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation",
		Long: `Run one simulation with the given seed and print its summary.

With --days 0 and max_days 0 in the config the run continues until
interrupted; the days completed so far are still reported and stored.

Examples:
  stickersim run --seed 42 --days 180
  stickersim run -c economy.yaml --set pack_price_points=250
  stickersim run --snapshot-dir snaps --snapshot-every 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = entropy.MasterSeed()
			}
			if !cmd.Flags().Changed("days") {
				drive.days = cfg.MaxDays
			}
			drive.runID = uuid.NewString()

			sim, err := engine.New(cfg, seed, engine.Options{Logger: a.logger})
			if err != nil {
				return err
			}
			a.logger.Info("run started", "id", drive.runID, "seed", seed, "days", drive.days, "players", len(sim.Players))
			return a.driveAndReport(cmd, sim, drive)
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 picks one)")
	addDriveFlags(cmd, &drive)
	return cmd
}

func newResumeCmd(a *app) *cobra.Command {
	var drive driveOptions
	cmd := &cobra.Command{
		Use:   "resume <snapshot>",
		Short: "Continue a run from a snapshot file",
		Long: `Restore a simulation from a snapshot written by run --snapshot-dir and
continue it. The continuation is deterministic: it produces the same days
the original run would have.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hdr, snap, err := persistence.ReadSnapshot(args[0])
			if err != nil {
				return fmt.Errorf("failed to read snapshot: %w", err)
			}
			sim, err := engine.Restore(snap, engine.Options{Logger: a.logger})
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				drive.days = sim.Config.MaxDays
			}
			if drive.days != 0 && drive.days <= sim.Day {
				return fmt.Errorf("snapshot is at day %d; --days must be later", sim.Day)
			}
			drive.runID = uuid.NewString()
			a.logger.Info("run resumed",
				"id", drive.runID,
				"from", hdr.RunID,
				"seed", sim.Seed,
				"day", sim.Day,
				"days", drive.days,
			)
			return a.driveAndReport(cmd, sim, drive)
		},
	}
	addDriveFlags(cmd, &drive)
	return cmd
}

func addDriveFlags(cmd *cobra.Command, d *driveOptions) {
	cmd.Flags().IntVar(&d.days, "days", 0, "Last day to simulate (default max_days; 0 runs until interrupted)")
	cmd.Flags().StringVar(&d.snapDir, "snapshot-dir", "", "Write snapshots to this directory")
	cmd.Flags().IntVar(&d.snapEvery, "snapshot-every", 0, "Snapshot every N days (0: only at the end)")
	cmd.Flags().IntVar(&d.progressDay, "progress-every", 30, "Log progress every N days (0: never)")
}

// driveAndReport steps sim to the target day, snapshotting along the way,
// then stores and prints the result. Interruption is not an error: the days
// completed are reported as a partial run.
func (a *app) driveAndReport(cmd *cobra.Command, sim *engine.Simulation, d driveOptions) error {
	ctx := cmd.Context()
	runErr := a.drive(ctx, sim, d)
	partial := false
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		a.logger.Warn("run interrupted", "day", sim.Day)
		partial, runErr = true, nil
	}
	if runErr != nil {
		partial = true
	}

	if d.snapDir != "" && runErr == nil {
		if err := a.writeSnapshot(sim, d); err != nil {
			return err
		}
	}

	res := sim.Result()
	err := a.store(func(db *persistence.DB) error {
		if err := db.SaveRun(d.runID, sim.Config, res, partial); err != nil {
			return fmt.Errorf("failed to store run: %w", err)
		}
		return db.SaveMeta("last_run", d.runID)
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if a.jsonOut {
		if err := writeJSON(out, map[string]any{"id": d.runID, "partial": partial, "result": res}); err != nil {
			return err
		}
	} else {
		printSummary(out, d.runID, res.Summary)
	}
	return runErr
}

func (a *app) drive(ctx context.Context, sim *engine.Simulation, d driveOptions) error {
	lastSnap, lastLog := sim.Day, sim.Day
	for d.days == 0 || sim.Day < d.days {
		next := d.days
		if d.snapEvery > 0 && (next == 0 || lastSnap+d.snapEvery < next) {
			next = lastSnap + d.snapEvery
		}
		if d.progressDay > 0 && (next == 0 || lastLog+d.progressDay < next) {
			next = lastLog + d.progressDay
		}
		if err := sim.RunTo(ctx, next); err != nil {
			return err
		}
		if d.progressDay > 0 && sim.Day-lastLog >= d.progressDay {
			lastLog = sim.Day
			last := sim.History[len(sim.History)-1]
			a.logger.Info("progress", "day", sim.Day, "active", last.ActivePlayers, "revenue", last.CumulativeRevenue)
		}
		if d.snapEvery > 0 && sim.Day-lastSnap >= d.snapEvery {
			lastSnap = sim.Day
			if d.snapDir != "" && sim.Day != d.days {
				if err := a.writeSnapshot(sim, d); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (a *app) writeSnapshot(sim *engine.Simulation, d driveOptions) error {
	snap, err := sim.Snapshot()
	if err != nil {
		return err
	}
	path := filepath.Join(d.snapDir, fmt.Sprintf("%s-day%04d.snap.zst", d.runID[:8], sim.Day))
	if err := persistence.WriteSnapshot(path, d.runID, snap); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	a.logger.Debug("snapshot written", "path", path, "day", sim.Day)
	return nil
}
