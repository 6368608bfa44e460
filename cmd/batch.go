package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/herrtunante/whisp/internal/engine"
	"github.com/herrtunante/whisp/internal/model"
	"github.com/herrtunante/whisp/internal/resilience"
)

var (
	batchUnit        string
	batchRisk        bool
	batchFormat      string
	batchOutDir      string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch <file> [file...]",
	Short: "Analyze multiple plot files concurrently",
	Long:  "Runs the analysis pipeline over each input file, records a run per file in the store, and writes one output file per input.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initAnalysis(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		if batchOutDir != "" {
			if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}

		dlq := resilience.NewDLQ()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(batchConcurrency)

		for _, path := range args {
			g.Go(func() error {
				if err := processBatchFile(gctx, env, path); err != nil {
					zap.L().Error("batch file failed", zap.String("file", path), zap.Error(err))
					dlq.Add("", path, model.RunRequest{
						Source:        path,
						OutputUnit:    outputUnit(batchUnit),
						CalculateRisk: batchRisk,
						Thresholds:    cfg.Analysis.Thresholds.Thresholds(),
					}, err, batchMaxRetries)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		if dlq.Len() > 0 {
			dlqPath := filepath.Join(batchOutDir, "failed_inputs.json")
			if batchOutDir == "" {
				dlqPath = "failed_inputs.json"
			}
			if err := dlq.WriteFile(dlqPath); err != nil {
				return err
			}
			zap.L().Warn("batch finished with failures",
				zap.Int("failed", dlq.Len()),
				zap.Int("retryable", len(dlq.Retryable())),
				zap.String("dlq", dlqPath),
			)
			return fmt.Errorf("%d of %d input files failed (see %s)", dlq.Len(), len(args), dlqPath)
		}

		return nil
	},
}

// batchMaxRetries is recorded with each failed input so a later run knows
// when to stop retrying it.
const batchMaxRetries = 3

func processBatchFile(ctx context.Context, env *analysisEnv, path string) error {
	plots, err := loadPlots(path)
	if err != nil {
		return err
	}

	thresholds := cfg.Analysis.Thresholds.Thresholds()
	unit := outputUnit(batchUnit)
	run, err := env.Store.CreateRun(ctx, model.RunRequest{
		Source:        path,
		Plots:         len(plots),
		OutputUnit:    unit,
		CalculateRisk: batchRisk,
		Thresholds:    thresholds,
	})
	if err != nil {
		return err
	}

	if err := env.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusReducing); err != nil {
		return err
	}

	result, err := env.Engine.Run(ctx, plots, engine.Options{
		OutputUnit:    unit,
		CalculateRisk: batchRisk,
		Thresholds:    &thresholds,
	})
	if err != nil {
		_ = env.Store.UpdateRunResult(ctx, run.ID, &model.RunResult{Error: err.Error()})
		return err
	}

	if err := env.Store.UpdateRunResult(ctx, run.ID, runResult(result)); err != nil {
		return err
	}

	out := batchOutputPath(path)
	if err := writeResult(result, batchFormat, out); err != nil {
		return err
	}

	zap.L().Info("batch file complete",
		zap.String("file", path),
		zap.String("run_id", run.ID),
		zap.String("output", out),
		zap.Int("plots", len(plots)),
	)
	return nil
}

// runResult summarizes an engine result for run persistence.
func runResult(result *engine.Result) *model.RunResult {
	labels := make(map[model.RiskLabel]int, 3)
	for _, a := range result.Assessments {
		labels[a.Label]++
	}
	return &model.RunResult{
		Rows:        len(result.Table.Rows),
		Columns:     len(result.Table.Columns),
		NulledCells: len(result.CellErrors),
		Labels:      labels,
	}
}

func batchOutputPath(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name := base + "." + batchFormat
	if batchOutDir != "" {
		return filepath.Join(batchOutDir, name)
	}
	return filepath.Join(filepath.Dir(input), name)
}

func init() {
	batchCmd.Flags().StringVar(&batchUnit, "unit", "", "output unit for convertible statistics (ha or percent; default from config)")
	batchCmd.Flags().BoolVar(&batchRisk, "risk", true, "calculate EUDR risk labels")
	batchCmd.Flags().StringVar(&batchFormat, "format", "csv", "output format (csv, xlsx, json)")
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "directory for output files (default alongside inputs)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 3, "maximum files processed in parallel")
	rootCmd.AddCommand(batchCmd)
}
