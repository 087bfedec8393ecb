package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ticketless-chicago/blockmap/internal/history"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent update runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ds, _ := cmd.Flags().GetString("dataset")
		limit, _ := cmd.Flags().GetInt("limit")

		hist, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer hist.Close() //nolint:errcheck
		if err := hist.Migrate(ctx); err != nil {
			return err
		}

		runs, err := hist.RecentRuns(ctx, ds, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		fmt.Printf("%-20s %-12s %-6s %-8s %10s %10s %8s  %s\n",
			"FINISHED", "DATASET", "SOURCE", "STATUS", "ROWS", "FOLDED", "BLOCKS", "ERROR")
		for _, r := range runs {
			errMsg := r.Error
			if len(errMsg) > 60 {
				errMsg = errMsg[:57] + "..."
			}
			fmt.Printf("%-20s %-12s %-6s %-8s %10d %10d %8d  %s\n",
				r.FinishedAt.Format("2006-01-02 15:04:05"),
				r.Dataset, r.Source, r.Status, r.Rows, r.Folded, r.Blocks, errMsg)
		}
		return nil
	},
}

func init() {
	f := runsCmd.Flags()
	f.String("dataset", "", "filter by dataset name")
	f.Int("limit", 20, "maximum runs to show")

	rootCmd.AddCommand(runsCmd)
}
