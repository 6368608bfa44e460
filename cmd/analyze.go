package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/herrtunante/whisp/internal/engine"
	"github.com/herrtunante/whisp/internal/export"
)

var (
	analyzeUnit     string
	analyzeRisk     bool
	analyzeDatasets []string
	analyzeFormat   string
	analyzeOut      string
	analyzeVerify   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <plots.geojson|plots.shp>",
	Short: "Run zonal statistics and risk classification over a plot file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		plots, err := loadPlots(args[0])
		if err != nil {
			return err
		}

		env, err := initAnalysis(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		thresholds := cfg.Analysis.Thresholds.Thresholds()
		result, err := env.Engine.Run(ctx, plots, engine.Options{
			OutputUnit:      outputUnit(analyzeUnit),
			CalculateRisk:   analyzeRisk,
			Thresholds:      &thresholds,
			DatasetIDs:      analyzeDatasets,
			StructuralCheck: analyzeVerify,
		})
		if err != nil {
			return err
		}

		if result.Partial() {
			zap.L().Warn("some statistics could not be converted and were nulled",
				zap.Int("cells", len(result.CellErrors)))
		}

		return writeResult(result, analyzeFormat, analyzeOut)
	},
}

func writeResult(result *engine.Result, format, out string) error {
	switch strings.ToLower(format) {
	case "csv":
		if out == "" {
			return export.WriteCSV(os.Stdout, result.Table, result.Assessments)
		}
		return export.WriteCSVFile(out, result.Table, result.Assessments)
	case "xlsx":
		if out == "" {
			return eris.New("xlsx output requires --out")
		}
		return export.WriteXLSXFile(out, result.Table, result.Assessments)
	case "json":
		w := os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return eris.Wrapf(err, "create %s", out)
			}
			defer f.Close()
			w = f
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(result), "encode json result")
	default:
		return eris.Errorf("unsupported output format: %s", format)
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeUnit, "unit", "", "output unit for convertible statistics (ha or percent; default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeRisk, "risk", true, "calculate EUDR risk labels")
	analyzeCmd.Flags().StringSliceVar(&analyzeDatasets, "datasets", nil, "restrict the run to these dataset IDs")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "csv", "output format (csv, xlsx, json)")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "output file (default stdout)")
	analyzeCmd.Flags().BoolVar(&analyzeVerify, "verify-assets", false, "verify layer assets against the backend before reducing")
	rootCmd.AddCommand(analyzeCmd)
}
