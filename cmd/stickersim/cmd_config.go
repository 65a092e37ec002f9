package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/talgya/stickersim/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect economy configuration",
		Long: `Show, validate and list economy parameters.

The effective configuration is the defaults, overlaid by --config and then
by each --set override.

Examples:
  stickersim config show                        # Defaults as YAML
  stickersim config show -c economy.yaml        # Effective config
  stickersim config validate economy.yaml       # Report every bad field
  stickersim config params                      # Tunable scalar parameters`,
	}

	cmd.AddCommand(
		newConfigShowCmd(a),
		newConfigValidateCmd(a),
		newConfigParamsCmd(a),
	)
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return enc.Close()
		},
	}
}

func newConfigValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.configPath = args[0]
			}
			_, err := a.loadConfig()
			out := cmd.OutOrStdout()

			var cerr *config.Error
			switch {
			case err == nil:
				if a.jsonOut {
					return writeJSON(out, map[string]any{"valid": true})
				}
				fmt.Fprintln(out, "configuration is valid")
				return nil
			case errors.As(err, &cerr):
				if a.jsonOut {
					if werr := writeJSON(out, map[string]any{"valid": false, "fields": cerr.Fields}); werr != nil {
						return werr
					}
				} else {
					fmt.Fprintf(out, "%d invalid field(s):\n", len(cerr.Fields))
					for _, f := range cerr.Fields {
						fmt.Fprintf(out, "  %s\n", f)
					}
				}
				return fmt.Errorf("configuration is invalid")
			default:
				return err
			}
		},
	}
}

func newConfigParamsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "List scalar parameters accepted by --set and range files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			type param struct {
				Name  string  `json:"name"`
				Value float64 `json:"value"`
				Int   bool    `json:"int"`
			}
			var params []param
			for _, name := range config.ParamNames() {
				v, err := cfg.Param(name)
				if err != nil {
					return err
				}
				params = append(params, param{Name: name, Value: v, Int: config.ParamIsInt(name)})
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, params)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PARAMETER\tVALUE\tTYPE")
			for _, p := range params {
				kind := "float"
				if p.Int {
					kind = "int"
				}
				fmt.Fprintf(tw, "%s\t%g\t%s\n", p.Name, p.Value, kind)
			}
			return tw.Flush()
		},
	}
}
