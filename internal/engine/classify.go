package engine

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/herrtunante/whisp/internal/model"
)

// Classify evaluates the four threshold indicators for every table row and
// derives the final risk label. contributors maps each indicator to the
// dataset columns feeding it (registry declared order). Classification is
// a pure function of the table contents and thresholds: each plot is
// classified independently, with no ordering sensitivity across plots.
func Classify(table *model.StatisticsTable, thresholds model.Thresholds, contributors map[model.Indicator][]string) ([]model.RiskAssessment, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	// Schema check up front: a missing contributing column is a
	// registry/table mismatch bug, not a data-quality issue.
	for _, ind := range model.Indicators {
		for _, col := range contributors[ind] {
			if table.ColumnIndex(col) < 0 {
				return nil, &ClassificationError{
					Column: col,
					Err:    eris.Errorf("contributing column for indicator %d absent from table", int(ind)),
				}
			}
		}
	}

	areaIdx := table.ColumnIndex(model.ColPlotAreaHa)
	if areaIdx < 0 {
		return nil, &ClassificationError{
			Column: model.ColPlotAreaHa,
			Err:    eris.New("plot area column absent from table"),
		}
	}

	assessments := make([]model.RiskAssessment, 0, len(table.Rows))
	for i, row := range table.Rows {
		states := make(model.IndicatorStates, len(model.Indicators))
		for _, ind := range model.Indicators {
			states[ind] = indicatorState(table, i, contributors[ind], thresholds.For(ind))
		}

		label := combineStates(states)
		assessments = append(assessments, model.RiskAssessment{
			PlotID: row.PlotID,
			States: states,
			Label:  label,
		})

		zap.L().Debug("classify: plot labeled",
			zap.String("plot_id", row.PlotID),
			zap.String("label", string(label)),
		)
	}

	return assessments, nil
}

// indicatorState compares every contributing statistic against the
// threshold as a percent of plot area. Any known value meeting the
// inclusive threshold wins; otherwise missing data forces unknown rather
// than a silent not_exceeded. A zero statistic never exceeds: with the
// reference zero-thresholds for the disturbance indicators, "exceeded"
// must still mean some disturbance was detected.
func indicatorState(table *model.StatisticsTable, row int, columns []string, threshold float64) model.IndicatorState {
	if len(columns) == 0 {
		return model.StateUnknown
	}

	sawMissing := false
	for _, col := range columns {
		cell, _ := table.Cell(row, col)
		if cell.IsNull() {
			sawMissing = true
			continue
		}
		f, ok := cell.Coerce()
		if !ok {
			sawMissing = true
			continue
		}

		pct, ok := asPercent(table, row, f)
		if !ok {
			sawMissing = true
			continue
		}
		if pct > 0 && pct >= threshold {
			return model.StateExceeded
		}
	}

	if sawMissing {
		return model.StateUnknown
	}
	return model.StateNotExceeded
}

// asPercent normalizes a contributing statistic to percent-of-plot. Tables
// built in hectares divide by the plot area; a degenerate area makes the
// comparison undefined, so the caller records the value as missing instead
// of dividing by zero.
func asPercent(table *model.StatisticsTable, row int, v float64) (float64, bool) {
	if table.Unit == model.OutputPercent {
		return v, true
	}
	areaCell, _ := table.Cell(row, model.ColPlotAreaHa)
	area, ok := areaCell.Float()
	if !ok || area <= 0 {
		return 0, false
	}
	return v / area * 100, true
}

// combineStates derives the final label from the four indicator states.
// The rule mirrors the reference implementation, evaluated in indicator
// priority order:
//
//  1. low when tree cover is definitively absent, commodities are
//     definitively present, or pre-cutoff disturbance is definitively
//     present — the plot was not forest, or was already converted,
//     before the cutoff year;
//  2. otherwise high when post-cutoff disturbance is definitively present;
//  3. otherwise more_info_needed — covering both "no post-cutoff
//     disturbance detected" and any unknown that blocked a definite call.
func combineStates(states model.IndicatorStates) model.RiskLabel {
	if states[model.IndicatorTreeCover] == model.StateNotExceeded ||
		states[model.IndicatorCommodities] == model.StateExceeded ||
		states[model.IndicatorDisturbanceBefore] == model.StateExceeded {
		return model.RiskLow
	}
	if states[model.IndicatorDisturbanceAfter] == model.StateExceeded {
		return model.RiskHigh
	}
	return model.RiskMoreInfoNeeded
}
