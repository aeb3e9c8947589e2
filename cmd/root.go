package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VIDA-NYU/openclean-geo/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "openclean-geo",
	Short: "Geo-spatial data cleaning for US addresses and ZIP codes",
	Long:  "Standardizes US street names, clusters them by collision key, and answers ZIP code lookups from a locally built Census gazetteer.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
