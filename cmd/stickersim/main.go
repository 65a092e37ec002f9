// Command stickersim runs the sticker-game economy simulator: single runs,
// multi-seed deep simulations and parameter searches.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/stickersim/internal/config"
	"github.com/talgya/stickersim/internal/logging"
	"github.com/talgya/stickersim/internal/persistence"
)

var version = "0.1.0-dev"

// app carries the settings resolved once per invocation.
type app struct {
	rt      config.Runtime
	logger  *slog.Logger
	jsonOut bool
	noDB    bool

	configPath string
	overrides  []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{rt: config.DefaultRuntime()}

	rootCmd := &cobra.Command{
		Use:   "stickersim",
		Short: "Economy simulator for a location-based sticker game",
		Long: `stickersim simulates players placing and scanning sticker markers
around a locale, day by day, and reports growth, retention and revenue.

Results are stored in a SQLite database unless --no-db is given.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.Bool("json", false, "Output as JSON")
	pf.String("log-level", "", "Log level: warn, info, debug or trace (env STICKERSIM_LOG_LEVEL)")
	pf.String("db", "", "Results database path (env STICKERSIM_DB)")
	pf.Int("workers", 0, "Parallel runs (env STICKERSIM_WORKERS)")
	pf.Duration("timeout", 0, "Overall time limit for deep and search (env STICKERSIM_TIMEOUT)")
	pf.Bool("no-db", false, "Do not store results")
	pf.StringVarP(&a.configPath, "config", "c", "", "Economy config YAML file")
	pf.StringArrayVar(&a.overrides, "set", nil, "Override a scalar parameter, e.g. --set daily_scan_cap=15")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(a),
		newResumeCmd(a),
		newDeepCmd(a),
		newSearchCmd(a),
		newConfigCmd(a),
		newRunsCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stickersim version %s\n", version)
			return nil
		},
	}
}

// setup resolves runtime settings: defaults, then environment, then flags.
func (a *app) setup(cmd *cobra.Command) error {
	a.rt.ApplyEnv()
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		a.rt.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("db") {
		a.rt.DBPath, _ = flags.GetString("db")
	}
	if flags.Changed("workers") {
		a.rt.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("timeout") {
		a.rt.Timeout, _ = flags.GetDuration("timeout")
	}
	a.jsonOut, _ = flags.GetBool("json")
	a.noDB, _ = flags.GetBool("no-db")

	a.logger = logging.NewLogger(a.rt.LogLevel, cmd.ErrOrStderr())
	slog.SetDefault(a.logger)
	return nil
}

// loadConfig returns the economy config from --config (or the defaults)
// with every --set override applied, validated.
func (a *app) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(a.configPath)
		if err != nil {
			return nil, err
		}
	}
	for _, kv := range a.overrides {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want name=value", kv)
		}
		v, err := parseParamValue(raw)
		if err != nil {
			return nil, fmt.Errorf("--set %s: %w", name, err)
		}
		if err := cfg.SetParam(strings.TrimSpace(name), v); err != nil {
			return nil, fmt.Errorf("--set: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseParamValue(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "true", "on", "yes":
		return 1, nil
	case "false", "off", "no":
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// openDB opens the results database, or returns nil with --no-db.
func (a *app) openDB() (*persistence.DB, error) {
	if a.noDB || a.rt.DBPath == "" {
		return nil, nil
	}
	if err := ensureDir(a.rt.DBPath); err != nil {
		return nil, err
	}
	db, err := persistence.Open(a.rt.DBPath)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("database opened", "path", a.rt.DBPath)
	return db, nil
}

// store runs fn against the results database unless storage is disabled.
func (a *app) store(fn func(db *persistence.DB) error) error {
	db, err := a.openDB()
	if err != nil || db == nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func writeJSON(w io.Writer, v any) error {
	enc := newJSONEncoder(w)
	return enc.Encode(v)
}
