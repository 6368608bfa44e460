package engine

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/herrtunante/whisp/internal/model"
)

// BuildTable assembles the raw-value matrix into the wide statistics
// table: metadata columns first, then one column per combined layer in
// declared order, one row per plot in input order. Convertible statistics
// are emitted in the requested output unit; conversion failures null the
// affected cell and are returned alongside the table, never aborting the
// run.
func BuildTable(matrix *Matrix, plots []model.Plot, combined *CombinedLayerSet, requestedUnit model.OutputUnit) (*model.StatisticsTable, []*ConversionError) {
	columns := append(model.MetadataColumns(), combined.Columns()...)
	table := model.NewStatisticsTable(columns, requestedUnit)

	var cellErrs []*ConversionError
	for _, plot := range plots {
		cells := make([]model.Value, 0, len(columns))
		cells = append(cells, metadataCells(plot, requestedUnit)...)

		for _, d := range combined.Layers {
			v, cerr := convertCell(matrix.Get(plot.ID, d.ID), d, plot, requestedUnit)
			if cerr != nil {
				cellErrs = append(cellErrs, cerr)
				zap.L().Warn("table: statistic nulled",
					zap.String("plot_id", cerr.PlotID),
					zap.String("dataset_id", cerr.DatasetID),
					zap.String("reason", cerr.Reason),
				)
			}
			cells = append(cells, v)
		}

		table.AppendRow(plot.ID, cells)
	}

	return table, cellErrs
}

// flagWaterbodies derives each plot's waterbody flag from the reduced
// water-category layers: a boolean water layer whose mode reduces truthy
// means the plot predominantly falls within mapped surface water. The
// input slice is left unmodified.
func flagWaterbodies(matrix *Matrix, plots []model.Plot, combined *CombinedLayerSet) []model.Plot {
	var waterCols []string
	for _, d := range combined.Layers {
		if d.Category == model.CategoryWater && d.ValueType == model.ValueBoolean {
			waterCols = append(waterCols, d.ID)
		}
	}
	if len(waterCols) == 0 {
		return plots
	}

	flagged := make([]model.Plot, len(plots))
	copy(flagged, plots)
	for i := range flagged {
		for _, col := range waterCols {
			if f, ok := matrix.Get(flagged[i].ID, col).Coerce(); ok && f > 0 {
				flagged[i].InWaterbody = true
				break
			}
		}
	}
	return flagged
}

func metadataCells(plot model.Plot, unit model.OutputUnit) []model.Value {
	country := model.Null()
	if plot.Country != "" {
		country = model.Str(plot.Country)
	}
	admin1 := model.Null()
	if plot.AdminLevel1 != "" {
		admin1 = model.Str(plot.AdminLevel1)
	}
	return []model.Value{
		model.Str(plot.ID),
		model.Str(string(plot.GeometryKind)),
		model.Num(plot.AreaHa),
		country,
		admin1,
		model.Num(plot.CentroidLon),
		model.Num(plot.CentroidLat),
		model.Str(strconv.FormatBool(plot.InWaterbody)),
		model.Str(string(unit)),
	}
}

// convertCell applies declared-type coercion and the requested output-unit
// conversion to one raw value. Categorical and boolean layers pass through
// untouched. Conversion is a pure function of the raw value, the dataset
// unit, the plot area, and the requested unit.
func convertCell(raw model.Value, d model.DatasetDescriptor, plot model.Plot, requested model.OutputUnit) (model.Value, *ConversionError) {
	if raw.IsNull() {
		return model.Null(), nil
	}

	if !d.Numeric() {
		return raw, nil
	}

	f, ok := raw.Coerce()
	if !ok {
		return model.Null(), &ConversionError{
			PlotID:    plot.ID,
			DatasetID: d.ID,
			Reason:    "non-numeric value " + strconv.Quote(raw.String()) + " for numeric layer",
		}
	}

	if !d.Unit.Convertible() {
		return model.Num(f), nil
	}

	switch {
	case d.Unit == model.UnitHectares && requested == model.OutputPercent:
		if plot.Degenerate() {
			return model.Null(), &ConversionError{
				PlotID:    plot.ID,
				DatasetID: d.ID,
				Reason:    "area to percent conversion on zero-area plot",
			}
		}
		return model.Num(f / plot.AreaHa * 100), nil

	case d.Unit == model.UnitPercent && requested == model.OutputHectares:
		if plot.Degenerate() {
			return model.Null(), &ConversionError{
				PlotID:    plot.ID,
				DatasetID: d.ID,
				Reason:    "percent to area conversion on zero-area plot",
			}
		}
		return model.Num(f * plot.AreaHa / 100), nil
	}

	return model.Num(f), nil
}
