package model

// Metadata column names, in their fixed table order. These columns are
// attached once per plot and are exempt from numeric coercion and unit
// conversion.
const (
	ColPlotID       = "Plot_ID"
	ColGeometryType = "Geometry_type"
	ColPlotAreaHa   = "Plot_area_ha"
	ColCountry      = "Country"
	ColAdminLevel1  = "Admin_Level_1"
	ColCentroidLon  = "Centroid_lon"
	ColCentroidLat  = "Centroid_lat"
	ColInWaterbody  = "In_waterbody"
	ColUnit         = "Unit"
)

// MetadataColumns returns the fixed metadata column names in table order.
func MetadataColumns() []string {
	return []string{
		ColPlotID,
		ColGeometryType,
		ColPlotAreaHa,
		ColCountry,
		ColAdminLevel1,
		ColCentroidLon,
		ColCentroidLat,
		ColInWaterbody,
		ColUnit,
	}
}

// IsMetadataColumn reports whether name is one of the fixed metadata columns.
func IsMetadataColumn(name string) bool {
	switch name {
	case ColPlotID, ColGeometryType, ColPlotAreaHa, ColCountry,
		ColAdminLevel1, ColCentroidLon, ColCentroidLat, ColInWaterbody, ColUnit:
		return true
	}
	return false
}

// Row is one plot's statistics, with cells aligned to the parent table's
// column order.
type Row struct {
	PlotID string  `json:"plot_id"`
	Cells  []Value `json:"cells"`
}

// StatisticsTable is the wide per-plot statistics table: one row per plot
// in input order, one column per registered dataset in registry order,
// preceded by the fixed metadata columns.
type StatisticsTable struct {
	Columns []string   `json:"columns"`
	Rows    []Row      `json:"rows"`
	Unit    OutputUnit `json:"unit"`

	index map[string]int
}

// NewStatisticsTable creates an empty table with the given column order.
func NewStatisticsTable(columns []string, unit OutputUnit) *StatisticsTable {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return &StatisticsTable{
		Columns: columns,
		Unit:    unit,
		index:   idx,
	}
}

// ColumnIndex returns the position of a column, or -1 if absent.
func (t *StatisticsTable) ColumnIndex(name string) int {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			t.index[c] = i
		}
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Cell returns the value at (row, column name). Absent columns report false.
func (t *StatisticsTable) Cell(row int, column string) (Value, bool) {
	i := t.ColumnIndex(column)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return Null(), false
	}
	return t.Rows[row].Cells[i], true
}

// AppendRow adds a row. The cell slice must align with Columns.
func (t *StatisticsTable) AppendRow(plotID string, cells []Value) {
	t.Rows = append(t.Rows, Row{PlotID: plotID, Cells: cells})
}

// Records renders the table as one map per row, suitable for JSON output
// in the same shape the HTTP API returns.
func (t *StatisticsTable) Records() []map[string]Value {
	records := make([]map[string]Value, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]Value, len(t.Columns))
		for i, col := range t.Columns {
			rec[col] = row.Cells[i]
		}
		records = append(records, rec)
	}
	return records
}
