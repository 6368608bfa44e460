// Package registry holds the static catalog of geospatial indicator layers.
// The catalog is loaded once at startup and is read-only afterwards.
package registry

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/herrtunante/whisp/internal/model"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Error reports a malformed dataset catalog. It is fatal at startup,
// never per-request.
type Error struct {
	DatasetID string
	Err       error
}

func (e *Error) Error() string {
	if e.DatasetID != "" {
		return "registry: dataset " + e.DatasetID + ": " + e.Err.Error()
	}
	return "registry: " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Registry is an ordered, immutable collection of dataset descriptors.
type Registry struct {
	datasets []model.DatasetDescriptor
	byID     map[string]*model.DatasetDescriptor
	byInd    map[model.Indicator][]string
}

type catalogFile struct {
	Datasets []model.DatasetDescriptor `yaml:"datasets"`
}

// Load parses the embedded catalog and validates it.
func Load() (*Registry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(catalogYAML, &file); err != nil {
		return nil, &Error{Err: eris.Wrap(err, "parse catalog")}
	}
	return New(file.Datasets)
}

// New builds a Registry from descriptors, preserving their order.
// It fails with a registry Error on duplicate ids, missing or invalid
// units, or indicator-linked layers that are not numeric.
func New(datasets []model.DatasetDescriptor) (*Registry, error) {
	r := &Registry{
		datasets: make([]model.DatasetDescriptor, len(datasets)),
		byID:     make(map[string]*model.DatasetDescriptor, len(datasets)),
		byInd:    make(map[model.Indicator][]string),
	}
	copy(r.datasets, datasets)

	for i := range r.datasets {
		d := &r.datasets[i]
		if d.ID == "" {
			return nil, &Error{Err: eris.New("descriptor with empty id")}
		}
		if model.IsMetadataColumn(d.ID) {
			return nil, &Error{DatasetID: d.ID, Err: eris.New("id collides with a metadata column")}
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, &Error{DatasetID: d.ID, Err: eris.New("duplicate id")}
		}
		if d.Unit == "" {
			return nil, &Error{DatasetID: d.ID, Err: eris.New("missing unit")}
		}
		if !d.Unit.Valid() {
			return nil, &Error{DatasetID: d.ID, Err: eris.Errorf("unsupported unit %q", d.Unit)}
		}
		if d.ValueType == "" {
			d.ValueType = defaultValueType(d.Unit)
		}
		if d.Aggregation == "" {
			d.Aggregation = model.AggregationSum
		}
		if d.Indicator != model.IndicatorNone {
			if d.Indicator < model.IndicatorTreeCover || d.Indicator > model.IndicatorDisturbanceAfter {
				return nil, &Error{DatasetID: d.ID, Err: eris.Errorf("invalid indicator %d", int(d.Indicator))}
			}
			if !d.Numeric() {
				return nil, &Error{DatasetID: d.ID, Err: eris.New("indicator-linked layer must be numeric")}
			}
		}
		r.byID[d.ID] = d
		if d.Indicator != model.IndicatorNone {
			r.byInd[d.Indicator] = append(r.byInd[d.Indicator], d.ID)
		}
	}

	return r, nil
}

func defaultValueType(u model.Unit) model.ValueType {
	switch u {
	case model.UnitCategorical:
		return model.ValueCategorical
	case model.UnitBoolean:
		return model.ValueBoolean
	}
	return model.ValueNumeric
}

// Datasets returns the descriptors in declared order. The returned slice
// is a copy; the registry itself never changes after load.
func (r *Registry) Datasets() []model.DatasetDescriptor {
	out := make([]model.DatasetDescriptor, len(r.datasets))
	copy(out, r.datasets)
	return out
}

// Len returns the number of registered datasets.
func (r *Registry) Len() int { return len(r.datasets) }

// ByID returns the descriptor with the given id, or nil.
func (r *Registry) ByID(id string) *model.DatasetDescriptor {
	return r.byID[id]
}

// Columns returns the dataset column names in declared order.
func (r *Registry) Columns() []string {
	cols := make([]string, len(r.datasets))
	for i, d := range r.datasets {
		cols[i] = d.ID
	}
	return cols
}

// ForIndicator returns the ids of layers contributing to an indicator,
// in declared order.
func (r *Registry) ForIndicator(ind model.Indicator) []string {
	src := r.byInd[ind]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Subset returns a new Registry restricted to the given dataset ids,
// keeping the declared order of the full catalog. Unknown ids fail.
func (r *Registry) Subset(ids []string) (*Registry, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if r.byID[id] == nil {
			return nil, &Error{DatasetID: id, Err: eris.New("unknown dataset id")}
		}
		want[id] = true
	}
	var subset []model.DatasetDescriptor
	for _, d := range r.datasets {
		if want[d.ID] {
			subset = append(subset, d)
		}
	}
	return New(subset)
}
