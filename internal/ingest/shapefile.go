package ingest

import (
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/herrtunante/whisp/internal/model"
)

// ParseShapefile reads plot geometries from an ESRI shapefile. Attribute
// fields matching the known plot id keys supply ids; otherwise positional
// ids are generated. Unsupported shape types are skipped with a log entry.
func ParseShapefile(path string) ([]model.Plot, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	var plots []model.Plot
	var skipped int
	index := 0

	for reader.Next() {
		_, shape := reader.Shape()
		index++

		g := shapeToGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		raw, encErr := geojson.Marshal(g)
		if encErr != nil {
			skipped++
			continue
		}

		plot := model.Plot{
			ID:           shapefilePlotID(reader, fieldIdx, index),
			GeometryKind: geometryKind(g),
			AreaHa:       sphericalAreaHa(g),
			Geometry:     raw,
		}
		plot.CentroidLon, plot.CentroidLat = centroid(g)

		plots = append(plots, plot)
	}

	if skipped > 0 {
		zap.L().Warn("ingest: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(plots) == 0 {
		return nil, eris.Errorf("ingest: shapefile %s contains no usable features", path)
	}

	return plots, nil
}

func shapefilePlotID(reader *shp.Reader, fieldIdx map[string]int, index int) string {
	for _, key := range plotIDKeys {
		if i, ok := fieldIdx[strings.ToLower(key)]; ok {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				return val
			}
		}
	}
	return fmt.Sprintf("plot_%d", index)
}

// shapeToGeom converts a go-shp shape to a go-geom geometry. Only polygons
// and points are meaningful plot geometries here.
func shapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(4326)
	case *shp.Polygon:
		return polygonToMultiPolygon(s)
	}
	return nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon,
// one single-ring polygon per part.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("ingest: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("ingest: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
