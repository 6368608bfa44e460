package model

// GeometryKind is the geometry type of a plot, informational only.
type GeometryKind string

const (
	GeometryPolygon      GeometryKind = "Polygon"
	GeometryMultiPolygon GeometryKind = "MultiPolygon"
	GeometryPoint        GeometryKind = "Point"
)

// Plot is one land parcel under analysis. It arrives from the geometry
// ingestion collaborator with area and administrative attributes already
// populated; the engine never recomputes them.
type Plot struct {
	ID           string       `json:"plot_id"`
	GeometryKind GeometryKind `json:"geometry_type"`

	// AreaHa is the plot area in hectares. It must be strictly positive
	// for area/percent conversions to be defined; a degenerate plot keeps
	// AreaHa == 0 and is flagged rather than silently divided.
	AreaHa float64 `json:"plot_area_ha"`

	Country     string  `json:"country,omitempty"`
	AdminLevel1 string  `json:"admin_level_1,omitempty"`
	CentroidLon float64 `json:"centroid_lon"`
	CentroidLat float64 `json:"centroid_lat"`

	// InWaterbody flags plots whose centroid falls in a mapped waterbody.
	InWaterbody bool `json:"in_waterbody"`

	// Geometry is the plot geometry as GeoJSON, passed through to the
	// compute backend untouched.
	Geometry []byte `json:"-"`
}

// Degenerate reports whether the plot has a zero or negative area and so
// cannot participate in area/percent unit conversion.
func (p Plot) Degenerate() bool {
	return p.AreaHa <= 0
}
