package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/herrtunante/whisp/internal/model"
	"github.com/herrtunante/whisp/pkg/gee"
)

// CombinedLayerSet is the unified multi-attribute descriptor the reducer
// consumes: validated layers in registry-declared order.
type CombinedLayerSet struct {
	Layers []model.DatasetDescriptor
}

// Specs renders the combined layers as backend layer specifications,
// preserving order.
func (c *CombinedLayerSet) Specs() []gee.LayerSpec {
	specs := make([]gee.LayerSpec, len(c.Layers))
	for i, d := range c.Layers {
		specs[i] = gee.LayerSpec{
			ID:          d.ID,
			Asset:       d.Asset,
			Band:        d.Band,
			Aggregation: string(d.Aggregation),
		}
	}
	return specs
}

// Columns returns the combined layer ids in order.
func (c *CombinedLayerSet) Columns() []string {
	cols := make([]string, len(c.Layers))
	for i, d := range c.Layers {
		cols[i] = d.ID
	}
	return cols
}

// CombineOption configures Combine.
type CombineOption func(*combineOpts)

type combineOpts struct {
	structural gee.Client
}

// WithStructuralCheck enables the deep structural check: each layer's
// asset is described via the backend and must expose the declared band.
// This is far slower than plain combination and is skipped by default.
func WithStructuralCheck(client gee.Client) CombineOption {
	return func(o *combineOpts) { o.structural = client }
}

// Combine merges the descriptor list into one CombinedLayerSet. The input
// may be a caller-restricted subset of the registry; descriptors keep
// their given order, which must already be the registry's declared order.
// Duplicate ids and invalid units fail with a CombinationError even
// though the registry prevents them at load, guarding caller-filtered
// descriptor lists.
func Combine(ctx context.Context, descriptors []model.DatasetDescriptor, opts ...CombineOption) (*CombinedLayerSet, error) {
	var o combineOpts
	for _, opt := range opts {
		opt(&o)
	}

	seen := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, &CombinationError{DatasetID: "(empty)", Err: eris.New("empty id")}
		}
		if seen[d.ID] {
			return nil, &CombinationError{DatasetID: d.ID, Err: eris.New("duplicate id")}
		}
		seen[d.ID] = true
		if !d.Unit.Valid() {
			return nil, &CombinationError{DatasetID: d.ID, Err: eris.Errorf("unsupported unit %q", d.Unit)}
		}
	}

	if o.structural != nil {
		for _, d := range descriptors {
			info, err := o.structural.DescribeLayer(ctx, d.Asset)
			if err != nil {
				return nil, &CombinationError{DatasetID: d.ID, Err: eris.Wrap(err, "structural check")}
			}
			if !info.HasBand(d.Band) {
				return nil, &CombinationError{DatasetID: d.ID, Err: eris.Errorf("asset %s does not expose band %q", d.Asset, d.Band)}
			}
		}
		zap.L().Debug("combine: structural check passed", zap.Int("layers", len(descriptors)))
	}

	combined := &CombinedLayerSet{Layers: make([]model.DatasetDescriptor, len(descriptors))}
	copy(combined.Layers, descriptors)

	zap.L().Debug("combine: layer set combined", zap.Int("layers", len(combined.Layers)))
	return combined, nil
}
