package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/talgya/stickersim/internal/engine"
	"github.com/talgya/stickersim/internal/persistence"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse stored results",
	}
	cmd.AddCommand(newRunsListCmd(a), newRunsShowCmd(a))
	return cmd
}

func newRunsListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, deep simulations and searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *persistence.DB) error {
				runs, err := db.RecentRuns(limit)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return writeJSON(cmd.OutOrStdout(), runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No stored results.")
					return nil
				}
				printRuns(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries")
	return cmd
}

func newRunsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *persistence.DB) error {
				rec, err := db.GetRun(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch rec.Kind {
				case persistence.KindRun:
					var s engine.Summary
					if err := json.Unmarshal([]byte(rec.SummaryJSON), &s); err != nil {
						return fmt.Errorf("decode summary: %w", err)
					}
					if a.jsonOut {
						return writeJSON(out, map[string]any{"run": rec, "summary": s})
					}
					printSummary(out, rec.ID, s)
				case persistence.KindSearch:
					cands, err := db.Candidates(rec.ID)
					if err != nil {
						return err
					}
					if a.jsonOut {
						return writeJSON(out, map[string]any{"run": rec, "candidates": cands})
					}
					fmt.Fprintf(out, "Search %s\n", rec.ID)
					tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "  #\tcandidate\toverall\terror")
					for _, c := range cands {
						fmt.Fprintf(tw, "  %d\t%s\t%.1f\t%s\n", c.Position, c.Label, c.Overall, truncate(c.Error, 60))
					}
					return tw.Flush()
				default:
					var summary map[string]any
					if err := json.Unmarshal([]byte(rec.SummaryJSON), &summary); err != nil {
						return fmt.Errorf("decode summary: %w", err)
					}
					return writeJSON(out, map[string]any{"run": rec, "summary": summary})
				}
				return nil
			})
		},
	}
}

// withDB opens the results database for reading commands, which need it
// even when --no-db is set.
func (a *app) withDB(fn func(db *persistence.DB) error) error {
	if a.rt.DBPath == "" {
		return fmt.Errorf("no results database configured")
	}
	db, err := persistence.Open(a.rt.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
