// Package geo turns raw feature geometries into the shapes the store accepts.
// Everything here is pure: no I/O, no logging. Rejections come back as errors
// of type *Rejection so the ingestion pipeline can count them.
package geo

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// SRID is the reference frame of every stored geometry (WGS84 lon/lat).
const SRID = 4326

// Kind names a stored feature collection.
type Kind string

const (
	KindPark       Kind = "parks"
	KindPlayground Kind = "playgrounds"
	KindRoute      Kind = "walking_routes"
)

// Kinds lists the collections in import order.
var Kinds = []Kind{KindPark, KindPlayground, KindRoute}

// ParseKind accepts the table name or a short alias.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "parks", "park":
		return KindPark, nil
	case "playgrounds", "playground":
		return KindPlayground, nil
	case "walking_routes", "routes", "route", "footways":
		return KindRoute, nil
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

// Geometry is a normalized geometry stamped with its SRID.
type Geometry struct {
	SRID int
	Geom orb.Geometry
}

// Type returns the GeoJSON type name of the geometry.
func (g Geometry) Type() string {
	if g.Geom == nil {
		return ""
	}
	return g.Geom.GeoJSONType()
}

func stamp(g orb.Geometry) Geometry {
	return Geometry{SRID: SRID, Geom: g}
}

// DistanceMeters is the great-circle distance between two lon/lat points.
func DistanceMeters(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}

// AreaHectares is the spherical area of a multipolygon in hectares.
func AreaHectares(mp orb.MultiPolygon) float64 {
	ha := math.Abs(geo.Area(mp)) / 10000
	return math.Round(ha*10000) / 10000
}

// ValidLonLat reports whether p is a finite WGS84 coordinate.
func ValidLonLat(p orb.Point) bool {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}
