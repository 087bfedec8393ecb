package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ticketless-chicago/blockmap/internal/runner"
)

var processCmd = &cobra.Command{
	Use:   "process [dataset...]",
	Short: "Rebuild output files from bulk CSV exports",
	Long: `Processes bulk CSV exports downloaded from the portal instead of
querying the SODA API. Useful for backfills and for datasets whose full
history exceeds what the API window returns.

Each dataset expects its export under --input with the portal's file name
(e.g. Crimes_-_One_year_prior_to_present.csv).

Examples:
  # Rebuild crimes from a local export
  process --input ./exports crimes`,
	RunE: runProcess,
}

func init() {
	f := processCmd.Flags()
	f.String("input", ".", "directory containing the CSV exports")
	f.Int("concurrency", 0, "datasets processed in parallel (default from config)")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inputDir, _ := cmd.Flags().GetString("input")
	if inputDir == "" {
		return eris.New("process: --input is required")
	}
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		cfg.Update.Concurrency = v
	}

	datasets, err := selectDatasets(args)
	if err != nil {
		return err
	}

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	now := time.Now()
	zap.L().Info("processing bulk exports",
		zap.Int("datasets", len(datasets)),
		zap.String("input_dir", inputDir),
		zap.String("output_dir", e.out.Dir()),
	)

	r := runner.New(runner.Options{
		Source:      runner.CSVSource(inputDir),
		SourceName:  "csv",
		Writer:      e.out,
		History:     e.hist,
		Concurrency: cfg.Update.Concurrency,
	})
	results, err := r.Run(ctx, datasets, now)
	printResults(results)
	return err
}
