package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// RejectReason is a stable, countable code for a rejected geometry.
type RejectReason string

const (
	ReasonMissingGeometry     RejectReason = "missing_geometry"
	ReasonUnsupportedGeometry RejectReason = "unsupported_geometry"
	ReasonDisconnected        RejectReason = "disconnected_multilinestring"
	ReasonInvalidCoordinates  RejectReason = "invalid_coordinates"
	ReasonInvalidShape        RejectReason = "invalid_shape"
)

// Rejection explains why a geometry cannot be stored in a collection.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return string(r.Reason) + ": " + r.Detail
}

func reject(reason RejectReason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Options tunes normalization.
type Options struct {
	// PolygonBoundaries lets the route collection take a single-ring polygon
	// as its exterior boundary line. Off by default: polygons are rejected.
	PolygonBoundaries bool
}

// Normalize validates g for the target collection and returns it in the stored
// shape: MultiPolygon for parks, Point for playgrounds, one LineString for
// routes. The returned error, if any, is a *Rejection.
func Normalize(kind Kind, g orb.Geometry, opts Options) (Geometry, error) {
	if g == nil {
		return Geometry{}, reject(ReasonMissingGeometry, "feature has no geometry")
	}

	switch kind {
	case KindPark:
		return normalizePark(g)
	case KindPlayground:
		return normalizePlayground(g)
	case KindRoute:
		return normalizeRoute(g, opts)
	}
	return Geometry{}, fmt.Errorf("normalize: unknown collection %q", kind)
}

func normalizePark(g orb.Geometry) (Geometry, error) {
	var mp orb.MultiPolygon
	switch v := g.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{v}
	case orb.MultiPolygon:
		mp = v
	default:
		return Geometry{}, reject(ReasonUnsupportedGeometry, "%s is not accepted for parks", g.GeoJSONType())
	}

	if len(mp) == 0 {
		return Geometry{}, reject(ReasonInvalidShape, "empty multipolygon")
	}
	for i, poly := range mp {
		if err := checkPolygon(poly); err != nil {
			err.Detail = fmt.Sprintf("polygon %d: %s", i, err.Detail)
			return Geometry{}, err
		}
	}
	return stamp(mp), nil
}

func normalizePlayground(g orb.Geometry) (Geometry, error) {
	p, ok := g.(orb.Point)
	if !ok {
		return Geometry{}, reject(ReasonUnsupportedGeometry, "%s is not accepted for playgrounds", g.GeoJSONType())
	}
	if !ValidLonLat(p) {
		return Geometry{}, reject(ReasonInvalidCoordinates, "point %v outside WGS84 bounds", p)
	}
	return stamp(p), nil
}

func normalizeRoute(g orb.Geometry, opts Options) (Geometry, error) {
	switch v := g.(type) {
	case orb.LineString:
		if err := checkLine(v); err != nil {
			return Geometry{}, err
		}
		return stamp(v), nil

	case orb.MultiLineString:
		if len(v) == 0 {
			return Geometry{}, reject(ReasonInvalidShape, "empty multilinestring")
		}
		for i, ls := range v {
			if err := checkLine(ls); err != nil {
				err.Detail = fmt.Sprintf("part %d: %s", i, err.Detail)
				return Geometry{}, err
			}
		}
		merged, ok := MergeLines(v)
		if !ok {
			return Geometry{}, reject(ReasonDisconnected, "%d parts do not form a single connected line", len(v))
		}
		return stamp(merged), nil

	case orb.Polygon, orb.MultiPolygon:
		if !opts.PolygonBoundaries {
			return Geometry{}, reject(ReasonUnsupportedGeometry, "%s is not accepted for walking routes", g.GeoJSONType())
		}
		line, err := Boundary(g)
		if err != nil {
			return Geometry{}, err
		}
		return stamp(line), nil
	}

	return Geometry{}, reject(ReasonUnsupportedGeometry, "%s is not accepted for walking routes", g.GeoJSONType())
}

// Boundary returns the exterior ring of a single-ring polygon as a line.
// Polygons with holes or several parts have a disconnected boundary and are rejected.
func Boundary(g orb.Geometry) (orb.LineString, error) {
	var poly orb.Polygon
	switch v := g.(type) {
	case orb.Polygon:
		poly = v
	case orb.MultiPolygon:
		if len(v) != 1 {
			return nil, reject(ReasonDisconnected, "multipolygon with %d parts has no single boundary line", len(v))
		}
		poly = v[0]
	default:
		return nil, reject(ReasonUnsupportedGeometry, "%s has no polygon boundary", g.GeoJSONType())
	}

	if err := checkPolygon(poly); err != nil {
		return nil, err
	}
	if len(poly) != 1 {
		return nil, reject(ReasonDisconnected, "polygon with %d holes has no single boundary line", len(poly)-1)
	}
	return orb.LineString(poly[0].Clone()), nil
}

func checkLine(ls orb.LineString) *Rejection {
	if len(ls) < 2 {
		return reject(ReasonInvalidShape, "linestring has %d points", len(ls))
	}
	distinct := false
	for _, p := range ls {
		if !ValidLonLat(p) {
			return reject(ReasonInvalidCoordinates, "point %v outside WGS84 bounds", p)
		}
		if !samePoint(p, ls[0]) {
			distinct = true
		}
	}
	if !distinct {
		return reject(ReasonInvalidShape, "linestring has no length")
	}
	return nil
}

func checkPolygon(poly orb.Polygon) *Rejection {
	if len(poly) == 0 {
		return reject(ReasonInvalidShape, "polygon has no rings")
	}
	for i, ring := range poly {
		if len(ring) < 4 {
			return reject(ReasonInvalidShape, "ring %d has %d points", i, len(ring))
		}
		if !ring.Closed() {
			return reject(ReasonInvalidShape, "ring %d is not closed", i)
		}
		for _, p := range ring {
			if !ValidLonLat(p) {
				return reject(ReasonInvalidCoordinates, "point %v outside WGS84 bounds", p)
			}
		}
	}
	return nil
}
