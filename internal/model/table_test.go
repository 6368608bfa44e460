package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataColumns(t *testing.T) {
	cols := MetadataColumns()
	assert.Equal(t, ColPlotID, cols[0])
	assert.Equal(t, ColUnit, cols[len(cols)-1])

	for _, c := range cols {
		assert.True(t, IsMetadataColumn(c), c)
	}
	assert.False(t, IsMetadataColumn("EUFO_2020"))
}

func TestStatisticsTableCellAccess(t *testing.T) {
	table := NewStatisticsTable([]string{ColPlotID, "forest"}, OutputHectares)
	table.AppendRow("p1", []Value{Str("p1"), Num(4)})

	v, ok := table.Cell(0, "forest")
	require.True(t, ok)
	f, _ := v.Float()
	assert.Equal(t, 4.0, f)

	_, ok = table.Cell(0, "ghost")
	assert.False(t, ok)
	_, ok = table.Cell(5, "forest")
	assert.False(t, ok)
	_, ok = table.Cell(-1, "forest")
	assert.False(t, ok)
}

func TestStatisticsTableColumnIndexLazyRebuild(t *testing.T) {
	// A table built directly (e.g. decoded from JSON) has no index yet.
	table := &StatisticsTable{
		Columns: []string{ColPlotID, "forest"},
		Rows:    []Row{{PlotID: "p1", Cells: []Value{Str("p1"), Num(1)}}},
	}
	assert.Equal(t, 1, table.ColumnIndex("forest"))
	assert.Equal(t, -1, table.ColumnIndex("ghost"))
}

func TestStatisticsTableRecords(t *testing.T) {
	table := NewStatisticsTable([]string{ColPlotID, "forest"}, OutputHectares)
	table.AppendRow("p1", []Value{Str("p1"), Num(4)})
	table.AppendRow("p2", []Value{Str("p2"), Null()})

	records := table.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "p1", records[0][ColPlotID].String())
	assert.True(t, records[1]["forest"].IsNull())
}
