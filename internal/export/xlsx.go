package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/herrtunante/whisp/internal/model"
)

const resultsSheetName = "Results"

// WriteXLSX renders the table as a single-sheet workbook. Numeric cells keep
// their numeric type so downstream spreadsheets can aggregate them.
func WriteXLSX(w io.Writer, table *model.StatisticsTable, assessments []model.RiskAssessment) error {
	file, err := buildWorkbook(table, assessments)
	if err != nil {
		return err
	}
	return eris.Wrap(file.Write(w), "export: write xlsx")
}

// WriteXLSXFile writes the workbook to the named file.
func WriteXLSXFile(path string, table *model.StatisticsTable, assessments []model.RiskAssessment) error {
	file, err := buildWorkbook(table, assessments)
	if err != nil {
		return err
	}
	return eris.Wrapf(file.Save(path), "export: save %s", path)
}

func buildWorkbook(table *model.StatisticsTable, assessments []model.RiskAssessment) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(resultsSheetName)
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	withRisk := assessments != nil
	header := sheet.AddRow()
	for _, col := range table.Columns {
		header.AddCell().SetString(col)
	}
	if withRisk {
		for _, col := range assessmentColumns() {
			header.AddCell().SetString(col)
		}
	}

	byPlot := assessmentIndex(assessments)
	for _, tableRow := range table.Rows {
		row := sheet.AddRow()
		for _, cell := range tableRow.Cells {
			xc := row.AddCell()
			if f, ok := cell.Float(); ok {
				xc.SetFloat(f)
			} else {
				xc.SetString(cell.String())
			}
		}
		if withRisk {
			for _, cell := range assessmentCells(byPlot, tableRow.PlotID) {
				row.AddCell().SetString(cell)
			}
		}
	}

	return file, nil
}
