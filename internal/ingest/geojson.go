// Package ingest turns caller-supplied geometry inputs (GeoJSON, ESRI
// shapefiles) into plots ready for analysis, with area and centroid
// computed once at ingestion. The engine itself never touches geometry.
package ingest

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/herrtunante/whisp/internal/model"
)

// earthRadiusM is the WGS84 equatorial radius used for spherical area.
const earthRadiusM = 6378137.0

// Property keys consulted for plot attributes, in priority order.
var plotIDKeys = []string{"plot_id", "Plot_ID", "geoid", "id", "name"}

// ParseGeoJSON parses a GeoJSON FeatureCollection (or a single Feature or
// geometry) into plots. Plot ids come from feature properties when present,
// otherwise positional ids are generated. Degenerate geometries keep a zero
// area and are flagged in the log, never dropped.
func ParseGeoJSON(data []byte) ([]model.Plot, error) {
	features, err := decodeFeatures(data)
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, eris.New("ingest: input contains no features")
	}

	plots := make([]model.Plot, 0, len(features))
	for i, f := range features {
		if f.Geometry == nil {
			return nil, eris.Errorf("ingest: feature %d has no geometry", i)
		}

		raw, err := geojson.Marshal(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: encode geometry for feature %d", i)
		}

		plot := model.Plot{
			ID:           plotID(f.Properties, i),
			GeometryKind: geometryKind(f.Geometry),
			AreaHa:       sphericalAreaHa(f.Geometry),
			Geometry:     raw,
		}
		plot.CentroidLon, plot.CentroidLat = centroid(f.Geometry)
		if s, ok := f.Properties["country"].(string); ok {
			plot.Country = s
		}
		if s, ok := f.Properties["admin_level_1"].(string); ok {
			plot.AdminLevel1 = s
		}

		if plot.Degenerate() && plot.GeometryKind != model.GeometryPoint {
			zap.L().Warn("ingest: degenerate plot geometry",
				zap.String("plot_id", plot.ID),
				zap.String("kind", string(plot.GeometryKind)),
			)
		}

		plots = append(plots, plot)
	}

	return plots, nil
}

func decodeFeatures(data []byte) ([]*geojson.Feature, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, eris.Wrap(err, "ingest: parse GeoJSON")
	}

	switch probe.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, eris.Wrap(err, "ingest: parse feature collection")
		}
		return fc.Features, nil
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(err, "ingest: parse feature")
		}
		return []*geojson.Feature{&f}, nil
	default:
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, eris.Wrap(err, "ingest: parse geometry")
		}
		return []*geojson.Feature{{Geometry: g}}, nil
	}
}

func plotID(props map[string]any, index int) string {
	for _, key := range plotIDKeys {
		switch v := props[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%g", v)
		}
	}
	return fmt.Sprintf("plot_%d", index+1)
}

func geometryKind(g geom.T) model.GeometryKind {
	switch g.(type) {
	case *geom.Polygon:
		return model.GeometryPolygon
	case *geom.MultiPolygon:
		return model.GeometryMultiPolygon
	case *geom.Point:
		return model.GeometryPoint
	}
	return model.GeometryKind("")
}

// sphericalAreaHa computes the geodesic area of a polygonal geometry in
// hectares using the spherical excess approximation over lon/lat rings.
// Interior rings subtract; non-areal geometries report zero.
func sphericalAreaHa(g geom.T) float64 {
	var m2 float64
	switch t := g.(type) {
	case *geom.Polygon:
		m2 = polygonAreaM2(t)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			m2 += polygonAreaM2(t.Polygon(i))
		}
	}
	return m2 / 10000.0
}

func polygonAreaM2(p *geom.Polygon) float64 {
	var area float64
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := ringAreaM2(p.LinearRing(i))
		if i == 0 {
			area += ring
		} else {
			area -= ring
		}
	}
	if area < 0 {
		area = 0
	}
	return area
}

// ringAreaM2 implements the spherical shoelace formula over a lon/lat ring.
func ringAreaM2(ring *geom.LinearRing) float64 {
	coords := ring.Coords()
	if len(coords) < 3 {
		return 0
	}
	var sum float64
	for i := range coords {
		c1 := coords[i]
		c2 := coords[(i+1)%len(coords)]
		lon1, lat1 := c1[0]*math.Pi/180, c1[1]*math.Pi/180
		lon2, lat2 := c2[0]*math.Pi/180, c2[1]*math.Pi/180
		sum += (lon2 - lon1) * (2 + math.Sin(lat1) + math.Sin(lat2))
	}
	return math.Abs(sum * earthRadiusM * earthRadiusM / 2)
}

// centroid returns the vertex mean of the geometry's outer rings, which is
// sufficient for the informational centroid columns.
func centroid(g geom.T) (lon, lat float64) {
	var sumLon, sumLat float64
	var n int

	add := func(coords []geom.Coord) {
		for _, c := range coords {
			sumLon += c[0]
			sumLat += c[1]
			n++
		}
	}

	switch t := g.(type) {
	case *geom.Point:
		return t.X(), t.Y()
	case *geom.Polygon:
		if t.NumLinearRings() > 0 {
			add(t.LinearRing(0).Coords())
		}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if t.Polygon(i).NumLinearRings() > 0 {
				add(t.Polygon(i).LinearRing(0).Coords())
			}
		}
	}

	if n == 0 {
		return 0, 0
	}
	return sumLon / float64(n), sumLat / float64(n)
}
