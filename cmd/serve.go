package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/VIDA-NYU/openclean-geo/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gazetteer and standardizer over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if err := store.Migrate(ctx); err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := server.New(store, server.Options{
			Port:        port,
			CORSOrigins: cfg.Server.CORSOrigins,
		})
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
