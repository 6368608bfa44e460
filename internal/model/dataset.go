package model

// Unit is the unit a dataset layer reports its zonal statistic in.
type Unit string

const (
	UnitHectares    Unit = "ha"
	UnitPercent     Unit = "percent"
	UnitCategorical Unit = "categorical"
	UnitBoolean     Unit = "boolean"
)

// Valid reports whether the unit is one of the supported kinds.
func (u Unit) Valid() bool {
	switch u {
	case UnitHectares, UnitPercent, UnitCategorical, UnitBoolean:
		return true
	}
	return false
}

// Convertible reports whether statistics in this unit participate in
// area/percent output-unit conversion. Categorical and boolean layers
// are reported as-is regardless of the requested output unit.
func (u Unit) Convertible() bool {
	return u == UnitHectares || u == UnitPercent
}

// OutputUnit is the run-wide requested unit for convertible statistics.
type OutputUnit string

const (
	OutputHectares OutputUnit = "ha"
	OutputPercent  OutputUnit = "percent"
)

// Valid reports whether the output unit is supported.
func (u OutputUnit) Valid() bool {
	return u == OutputHectares || u == OutputPercent
}

// ValueType is the declared type of a dataset's statistic values,
// resolved once at registry load rather than inferred per request.
type ValueType string

const (
	ValueNumeric     ValueType = "numeric"
	ValueCategorical ValueType = "categorical"
	ValueBoolean     ValueType = "boolean"
)

// Category is the thematic grouping of a dataset layer.
type Category string

const (
	CategoryTreeCover          Category = "tree_cover"
	CategoryCommodity          Category = "commodity"
	CategoryDisturbanceBefore  Category = "disturbance_before_2020"
	CategoryDisturbanceAfter   Category = "disturbance_after_2020"
	CategoryAdministrative     Category = "administrative"
	CategoryWater              Category = "water"
	CategoryInformational      Category = "informational"
)

// Aggregation names the pixel reduction the compute backend applies
// over a plot geometry for a layer.
type Aggregation string

const (
	AggregationMean Aggregation = "mean"
	AggregationSum  Aggregation = "sum"
	AggregationMode Aggregation = "mode"
)

// Indicator identifies one of the four regulatory risk indicators.
// IndicatorNone marks an informational-only layer.
type Indicator int

const (
	IndicatorNone Indicator = 0
	// IndicatorTreeCover is indicator 1: tree cover presence at cutoff.
	IndicatorTreeCover Indicator = 1
	// IndicatorCommodities is indicator 2: commodity plantation presence.
	IndicatorCommodities Indicator = 2
	// IndicatorDisturbanceBefore is indicator 3: disturbance before the cutoff year.
	IndicatorDisturbanceBefore Indicator = 3
	// IndicatorDisturbanceAfter is indicator 4: disturbance after the cutoff year.
	IndicatorDisturbanceAfter Indicator = 4
)

// Indicators lists the four regulatory indicators in priority order.
var Indicators = []Indicator{
	IndicatorTreeCover,
	IndicatorCommodities,
	IndicatorDisturbanceBefore,
	IndicatorDisturbanceAfter,
}

// Column returns the output column name for a computed indicator state.
func (i Indicator) Column() string {
	switch i {
	case IndicatorTreeCover:
		return "Indicator_1_treecover"
	case IndicatorCommodities:
		return "Indicator_2_commodities"
	case IndicatorDisturbanceBefore:
		return "Indicator_3_disturbance_before_2020"
	case IndicatorDisturbanceAfter:
		return "Indicator_4_disturbance_after_2020"
	}
	return ""
}

// ValueRange holds optional numeric sanity bounds for a dataset.
type ValueRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// DatasetDescriptor describes one geospatial indicator layer in the registry.
type DatasetDescriptor struct {
	// ID is the unique stable name of the layer; it becomes the statistics
	// table column name.
	ID string `json:"id" yaml:"id"`

	// Asset is the compute-backend asset path for the layer.
	Asset string `json:"asset" yaml:"asset"`

	// Band selects the asset band to reduce; empty means the first band.
	Band string `json:"band,omitempty" yaml:"band,omitempty"`

	Category    Category    `json:"category" yaml:"category"`
	Unit        Unit        `json:"unit" yaml:"unit"`
	ValueType   ValueType   `json:"value_type" yaml:"value_type"`
	Aggregation Aggregation `json:"aggregation" yaml:"aggregation"`

	// Indicator links the layer to one of the four regulatory indicators;
	// IndicatorNone means the layer only appears in the raw statistics table.
	Indicator Indicator `json:"indicator,omitempty" yaml:"indicator,omitempty"`

	// Range holds optional expected value bounds used for sanity validation.
	Range *ValueRange `json:"range,omitempty" yaml:"range,omitempty"`
}

// Numeric reports whether the dataset carries numeric statistic values.
func (d DatasetDescriptor) Numeric() bool {
	return d.ValueType == ValueNumeric
}
