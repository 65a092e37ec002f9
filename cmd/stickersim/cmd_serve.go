package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/stickersim/internal/api"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored results over HTTP",
		Long: `Serve the results database as a JSON API until interrupted.

GET /api/v1/runs, /api/v1/runs/{id} and its history, aggregate and
candidates views are public. POST /api/v1/runs starts a run with the
effective configuration and requires STICKERSIM_ADMIN_KEY as a bearer
token.

Examples:
  stickersim serve --addr :8080
  STICKERSIM_ADMIN_KEY=s3cret stickersim serve -c economy.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.loadConfig()
			if err != nil {
				return err
			}
			if a.rt.DBPath == "" {
				return fmt.Errorf("serve needs a results database (--db)")
			}
			a.noDB = false
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			srv := &api.Server{
				DB:       db,
				Base:     base,
				AdminKey: os.Getenv("STICKERSIM_ADMIN_KEY"),
				Logger:   a.logger,
			}
			return srv.Serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}
