// Package export writes statistics tables to CSV and XLSX files.
package export

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/herrtunante/whisp/internal/model"
)

// WriteCSV streams the table to w, one header row followed by one row per plot.
// Null cells render as empty fields.
func WriteCSV(w io.Writer, table *model.StatisticsTable, assessments []model.RiskAssessment) error {
	cw := csv.NewWriter(w)

	columns := table.Columns
	if assessments != nil {
		columns = append(append([]string{}, columns...), assessmentColumns()...)
	}
	if err := cw.Write(columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}

	byPlot := assessmentIndex(assessments)
	for _, row := range table.Rows {
		record := make([]string, 0, len(columns))
		for _, cell := range row.Cells {
			record = append(record, cell.String())
		}
		if assessments != nil {
			record = append(record, assessmentCells(byPlot, row.PlotID)...)
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", row.PlotID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteCSVFile writes the table to the named file.
func WriteCSVFile(path string, table *model.StatisticsTable, assessments []model.RiskAssessment) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	if err := WriteCSV(f, table, assessments); err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// assessmentColumns are the classification columns appended after the
// statistics columns: the four indicator states, then the final label.
func assessmentColumns() []string {
	cols := make([]string, 0, len(model.Indicators)+1)
	for _, ind := range model.Indicators {
		cols = append(cols, ind.Column())
	}
	return append(cols, model.RiskColumn)
}

func assessmentIndex(assessments []model.RiskAssessment) map[string]model.RiskAssessment {
	if assessments == nil {
		return nil
	}
	idx := make(map[string]model.RiskAssessment, len(assessments))
	for _, a := range assessments {
		idx[a.PlotID] = a
	}
	return idx
}

// assessmentCells renders one plot's indicator states and label in the
// same order as assessmentColumns. Plots without an assessment get empty
// fields.
func assessmentCells(byPlot map[string]model.RiskAssessment, plotID string) []string {
	cells := make([]string, 0, len(model.Indicators)+1)
	a, ok := byPlot[plotID]
	if !ok {
		for range model.Indicators {
			cells = append(cells, "")
		}
		return append(cells, "")
	}
	for _, ind := range model.Indicators {
		cells = append(cells, string(a.State(ind)))
	}
	return append(cells, string(a.Label))
}
