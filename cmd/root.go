package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/herrtunante/whisp/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "whisp",
	Short: "Zonal statistics and EUDR risk classification for land plots",
	Long:  "Aggregates registered geospatial layers over plot geometries, builds per-plot statistics tables, and classifies deforestation risk.",
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
