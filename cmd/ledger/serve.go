package main

import (
	"log/slog"

	"github.com/Veraticus/the-ledger-must-balance/internal/api"
	"github.com/spf13/cobra"
)

func serveCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for every profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("address") {
				addr = a.cfg.ServerAddress
			}
			slog.Info("Starting API server", "address", addr, "profiles_dir", a.manager.Dir())
			return api.NewServer(a.manager, a.registry).Start(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "address", "", "listen address (default from server.address)")
	return cmd
}
