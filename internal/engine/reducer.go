package engine

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/herrtunante/whisp/internal/model"
	"github.com/herrtunante/whisp/pkg/gee"
)

// DefaultPageThreshold is the plot count above which the reducer switches
// from the single-call strategy to the paged conversion strategy.
const DefaultPageThreshold = 500

// Matrix is the per-plot, per-dataset raw value matrix the reducer
// returns. Missing (plot, layer) data is an explicit null Value.
type Matrix struct {
	plotIDs []string
	values  map[string]map[string]model.Value
}

// NewMatrix creates an empty matrix preserving plot input order.
func NewMatrix(plotIDs []string) *Matrix {
	return &Matrix{
		plotIDs: plotIDs,
		values:  make(map[string]map[string]model.Value, len(plotIDs)),
	}
}

// PlotIDs returns the plot ids in input order.
func (m *Matrix) PlotIDs() []string { return m.plotIDs }

// Set records a raw value for a (plot, dataset) pair.
func (m *Matrix) Set(plotID, datasetID string, v model.Value) {
	row, ok := m.values[plotID]
	if !ok {
		row = make(map[string]model.Value)
		m.values[plotID] = row
	}
	row[datasetID] = v
}

// Get returns the raw value for a (plot, dataset) pair; absent pairs
// are null.
func (m *Matrix) Get(plotID, datasetID string) model.Value {
	if row, ok := m.values[plotID]; ok {
		if v, ok := row[datasetID]; ok {
			return v
		}
	}
	return model.Null()
}

// strategy materializes the raw-value matrix for a plot set. Both
// implementations satisfy the same contract: a complete matrix or an
// error, never a partial success.
type strategy interface {
	reduce(ctx context.Context, combined *CombinedLayerSet, plots []model.Plot) (*Matrix, error)
}

// Reducer computes per-plot, per-dataset raw values by delegating pixel
// aggregation to the compute backend. It never retries; retry policy
// belongs to the orchestration layer.
type Reducer struct {
	client        gee.Client
	pageThreshold int
}

// NewReducer creates a Reducer. A non-positive pageThreshold falls back
// to DefaultPageThreshold.
func NewReducer(client gee.Client, pageThreshold int) *Reducer {
	if pageThreshold <= 0 {
		pageThreshold = DefaultPageThreshold
	}
	return &Reducer{client: client, pageThreshold: pageThreshold}
}

// Reduce produces the raw-value matrix for the combined layers over the
// given plots. The strategy is chosen by plot count; the returned matrix
// is identical either way.
func (r *Reducer) Reduce(ctx context.Context, combined *CombinedLayerSet, plots []model.Plot) (*Matrix, error) {
	if len(plots) == 0 {
		return NewMatrix(nil), nil
	}

	var s strategy
	if len(plots) <= r.pageThreshold {
		s = &inlineStrategy{client: r.client}
	} else {
		s = &pagedStrategy{client: r.client, pageSize: r.pageThreshold}
	}

	matrix, err := s.reduce(ctx, combined, plots)
	if err != nil {
		return nil, &ReductionError{Plots: len(plots), Err: err}
	}

	zap.L().Debug("reduce: matrix materialized",
		zap.Int("plots", len(plots)),
		zap.Int("layers", len(combined.Layers)),
	)
	return matrix, nil
}

// inlineStrategy reduces the whole plot set in one backend call. Used for
// small plot counts where a single round trip is fastest.
type inlineStrategy struct {
	client gee.Client
}

func (s *inlineStrategy) reduce(ctx context.Context, combined *CombinedLayerSet, plots []model.Plot) (*Matrix, error) {
	resp, err := s.client.ReduceRegions(ctx, buildRequest(combined, plots))
	if err != nil {
		return nil, err
	}
	return responseToMatrix(resp, combined, plots)
}

// pagedStrategy reduces the plot set in fixed-size pages, merging the
// partial responses into one matrix. Any page failure fails the whole
// reduction; there is no partial-matrix success state.
type pagedStrategy struct {
	client   gee.Client
	pageSize int
}

func (s *pagedStrategy) reduce(ctx context.Context, combined *CombinedLayerSet, plots []model.Plot) (*Matrix, error) {
	ids := make([]string, len(plots))
	for i, p := range plots {
		ids[i] = p.ID
	}
	matrix := NewMatrix(ids)

	for start := 0; start < len(plots); start += s.pageSize {
		end := start + s.pageSize
		if end > len(plots) {
			end = len(plots)
		}
		page := plots[start:end]

		resp, err := s.client.ReduceRegions(ctx, buildRequest(combined, page))
		if err != nil {
			return nil, eris.Wrapf(err, "page %d-%d", start, end)
		}
		partial, err := responseToMatrix(resp, combined, page)
		if err != nil {
			return nil, eris.Wrapf(err, "page %d-%d", start, end)
		}
		for _, p := range page {
			for _, d := range combined.Layers {
				matrix.Set(p.ID, d.ID, partial.Get(p.ID, d.ID))
			}
		}
	}

	return matrix, nil
}

func buildRequest(combined *CombinedLayerSet, plots []model.Plot) gee.ReduceRequest {
	geoms := make([]gee.PlotGeometry, len(plots))
	for i, p := range plots {
		geoms[i] = gee.PlotGeometry{
			ID:       p.ID,
			Geometry: json.RawMessage(p.Geometry),
		}
	}
	return gee.ReduceRequest{Plots: geoms, Layers: combined.Specs()}
}

// responseToMatrix indexes the backend response by plot id and fills the
// matrix in plot input order. Every (plot, layer) pair gets an entry;
// pairs the backend omitted are explicit nulls.
func responseToMatrix(resp *gee.ReduceResponse, combined *CombinedLayerSet, plots []model.Plot) (*Matrix, error) {
	byPlot := make(map[string]gee.PlotResult, len(resp.Results))
	for _, pr := range resp.Results {
		byPlot[pr.PlotID] = pr
	}

	ids := make([]string, len(plots))
	for i, p := range plots {
		ids[i] = p.ID
	}
	matrix := NewMatrix(ids)

	for _, p := range plots {
		pr, ok := byPlot[p.ID]
		if !ok {
			return nil, eris.Errorf("backend response missing plot %s", p.ID)
		}
		for _, d := range combined.Layers {
			v, present := pr.Values[d.ID]
			if !present {
				v = model.Null()
			}
			matrix.Set(p.ID, d.ID, v)
		}
	}

	return matrix, nil
}
