package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ticketless-chicago/blockmap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "blockmap",
	Short: "Chicago civic data aggregator",
	Long:  "Fetches civic datasets from the Chicago Data Portal, aggregates them onto a block-level grid, and writes compact JSON files for map rendering.",
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
