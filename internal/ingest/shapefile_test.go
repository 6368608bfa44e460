package ingest

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twpayne/go-geom"
)

func TestShapeToGeomPoint(t *testing.T) {
	g := shapeToGeom(&shp.Point{X: -80.19, Y: 25.77})
	require.NotNil(t, g)

	pt, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, -80.19, pt.X())
	assert.Equal(t, 25.77, pt.Y())
	assert.Equal(t, 4326, pt.SRID())
}

func TestShapeToGeomPolygon(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: -80.0, Y: 25.0},
			{X: -80.0, Y: 25.01},
			{X: -79.99, Y: 25.01},
			{X: -79.99, Y: 25.0},
			{X: -80.0, Y: 25.0},
		},
	}

	g := shapeToGeom(poly)
	require.NotNil(t, g)

	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())

	// Converted geometry must yield a sensible area (~123 ha square).
	assert.InDelta(t, 112.0, sphericalAreaHa(mp), 15.0)
}

func TestShapeToGeomMultiPartPolygon(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 2,
		Parts:    []int32{0, 5},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 0.01}, {X: 0.01, Y: 0.01}, {X: 0.01, Y: 0}, {X: 0, Y: 0},
			{X: 1, Y: 1}, {X: 1, Y: 1.01}, {X: 1.01, Y: 1.01}, {X: 1.01, Y: 1}, {X: 1, Y: 1},
		},
	}

	g := shapeToGeom(poly)
	require.NotNil(t, g)

	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 2, mp.NumPolygons())
}

func TestShapeToGeomUnsupported(t *testing.T) {
	assert.Nil(t, shapeToGeom(&shp.PolyLine{}))
	assert.Nil(t, shapeToGeom(&shp.Polygon{}))
}

func TestParseShapefileMissingFile(t *testing.T) {
	_, err := ParseShapefile("testdata/does_not_exist.shp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open shapefile")
}
