// Package engine implements the dataset aggregation and risk
// classification pipeline: registry layers are combined into one layer
// set, reduced to a raw-value matrix by the compute backend, assembled
// into the wide statistics table, and optionally classified into per-plot
// risk labels. Each run is an independent, strictly sequential pipeline
// over immutable inputs; the only shared state is the read-only registry.
package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/herrtunante/whisp/internal/model"
	"github.com/herrtunante/whisp/internal/registry"
	"github.com/herrtunante/whisp/pkg/gee"
)

// Options configures one analysis run.
type Options struct {
	// OutputUnit is the run-wide requested unit for convertible statistics.
	OutputUnit model.OutputUnit

	// CalculateRisk enables indicator evaluation and risk labeling.
	CalculateRisk bool

	// Thresholds are the four indicator thresholds; nil means the
	// reference defaults. An explicit all-zero set is a valid input and
	// is honored as given.
	Thresholds *model.Thresholds

	// DatasetIDs optionally restricts the run to a subset of the
	// registry. Empty means all registered datasets.
	DatasetIDs []string

	// StructuralCheck enables the combiner's expensive per-layer asset
	// verification against the backend.
	StructuralCheck bool
}

// Result is the output of one analysis run.
type Result struct {
	Table       *model.StatisticsTable `json:"table"`
	Assessments []model.RiskAssessment `json:"assessments,omitempty"`
	CellErrors  []*ConversionError     `json:"-"`
}

// Partial reports whether any statistic cell was nulled by a contained
// conversion failure, so callers can distinguish "partial result with
// some null values" from a clean run.
func (r *Result) Partial() bool { return len(r.CellErrors) > 0 }

// Engine runs the analysis pipeline against a fixed registry and compute
// backend. It is safe for concurrent use: runs share nothing mutable.
type Engine struct {
	registry *registry.Registry
	client   gee.Client
	reducer  *Reducer
}

// New creates an Engine. pageThreshold selects the reducer strategy
// boundary; non-positive means the default.
func New(reg *registry.Registry, client gee.Client, pageThreshold int) *Engine {
	return &Engine{
		registry: reg,
		client:   client,
		reducer:  NewReducer(client, pageThreshold),
	}
}

// Registry exposes the engine's dataset registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Run executes the full pipeline for one plot set. The pipeline is
// sequential; it either returns a complete result or an error, with
// per-cell conversion failures contained in Result.CellErrors.
func (e *Engine) Run(ctx context.Context, plots []model.Plot, opts Options) (*Result, error) {
	if len(plots) == 0 {
		return nil, eris.New("engine: no plots supplied")
	}
	if opts.OutputUnit == "" {
		opts.OutputUnit = model.OutputHectares
	}
	if !opts.OutputUnit.Valid() {
		return nil, eris.Errorf("engine: unsupported output unit %q", opts.OutputUnit)
	}
	thresholds := model.DefaultThresholds()
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}

	log := zap.L().With(zap.Int("plots", len(plots)), zap.String("unit", string(opts.OutputUnit)))
	start := time.Now()

	reg := e.registry
	if len(opts.DatasetIDs) > 0 {
		sub, err := reg.Subset(opts.DatasetIDs)
		if err != nil {
			return nil, err
		}
		reg = sub
	}

	var combineOpts []CombineOption
	if opts.StructuralCheck {
		combineOpts = append(combineOpts, WithStructuralCheck(e.client))
	}
	combined, err := Combine(ctx, reg.Datasets(), combineOpts...)
	if err != nil {
		return nil, err
	}
	log.Debug("engine: layers combined", zap.Int("layers", len(combined.Layers)))

	matrix, err := e.reducer.Reduce(ctx, combined, plots)
	if err != nil {
		return nil, err
	}

	plots = flagWaterbodies(matrix, plots, combined)

	table, cellErrs := BuildTable(matrix, plots, combined, opts.OutputUnit)
	result := &Result{Table: table, CellErrors: cellErrs}

	if opts.CalculateRisk {
		contributors := make(map[model.Indicator][]string, len(model.Indicators))
		for _, ind := range model.Indicators {
			contributors[ind] = reg.ForIndicator(ind)
		}
		assessments, err := Classify(table, thresholds, contributors)
		if err != nil {
			return nil, err
		}
		result.Assessments = assessments
	}

	log.Info("engine: analysis complete",
		zap.Int("rows", len(table.Rows)),
		zap.Int("columns", len(table.Columns)),
		zap.Int("nulled_cells", len(cellErrs)),
		zap.Bool("risk_calculated", opts.CalculateRisk),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}
