// Package spatial answers the read-only map queries: parks, playgrounds and
// walking routes around a point, by containment, by intersection and by name.
package spatial

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/paulmach/orb"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
	"github.com/accessmaps/parks-api/internal/geo"
	"github.com/accessmaps/parks-api/internal/metrics"
	"github.com/accessmaps/parks-api/internal/store"
)

const (
	DefaultParkRadiusM  = 2000.0
	DefaultRouteRadiusM = 1000.0

	parkRadiusCap       = 500
	routeRadiusCap      = 2000
	accessibleRoutesCap = 5000
	intersectionCap     = 1000
	searchCap           = 25

	DefaultNearestK = 1
	MaxNearestK     = 50

	// MinSearchLen is the shortest query, in characters, that searches at all.
	MinSearchLen = 2

	parkSimplify  = 0.0003
	routeSimplify = 0.0002
)

// Reader is the subset of the store the engine reads from.
type Reader interface {
	ParksWithin(ctx context.Context, rq store.RadiusQuery) ([]store.ParkHit, error)
	ParkContaining(ctx context.Context, p orb.Point, simplify float64) ([]store.ParkHit, error)
	SearchParks(ctx context.Context, q string, limit int, simplify float64) ([]store.ParkHit, error)
	RoutesWithin(ctx context.Context, rq store.RadiusQuery) ([]store.RouteHit, error)
	AccessibleRoutesWithin(ctx context.Context, rq store.RadiusQuery, onlyAccessible bool) ([]store.RouteHit, error)
	RoutesIntersectingPark(ctx context.Context, parkID int64, limit int, simplify float64) ([]store.RouteHit, error)
	NearestPlaygrounds(ctx context.Context, p orb.Point, k int) ([]store.PlaygroundHit, error)
	SearchPlaygrounds(ctx context.Context, q string, limit int) ([]store.PlaygroundHit, error)
}

// Engine validates query inputs, applies the per-query caps and records latency.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	r          Reader
	maxRadiusM float64
}

func NewEngine(r Reader, maxRadiusM float64) *Engine {
	return &Engine{r: r, maxRadiusM: maxRadiusM}
}

// MaxRadiusM is the largest radius a query may ask for.
func (e *Engine) MaxRadiusM() float64 { return e.maxRadiusM }

// CheckRadius validates a search around center against the engine's maximum.
func (e *Engine) CheckRadius(center orb.Point, radiusM float64) error {
	return ValidateRadius(center, radiusM, e.maxRadiusM)
}

// ValidateRadius checks that center is a WGS84 point and radiusM lies in [0, maxRadiusM].
func ValidateRadius(center orb.Point, radiusM, maxRadiusM float64) error {
	if !geo.ValidLonLat(center) {
		return apperrors.ValidationError("lat must be within [-90, 90] and lng within [-180, 180]")
	}
	if radiusM < 0 {
		return apperrors.ValidationError("radius_m must not be negative")
	}
	if radiusM > maxRadiusM {
		return apperrors.ValidationError("radius_m must be at most %g", maxRadiusM)
	}
	return nil
}

func (e *Engine) ParksWithin(ctx context.Context, center orb.Point, radiusM float64) (hits []store.ParkHit, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("parks_within", start, err) }(time.Now())
	if err := e.CheckRadius(center, radiusM); err != nil {
		return nil, err
	}
	return e.r.ParksWithin(ctx, store.RadiusQuery{
		Center: center, RadiusM: radiusM, Limit: parkRadiusCap, Simplify: parkSimplify,
	})
}

// ParkContaining returns at most one park: the smallest one containing p.
func (e *Engine) ParkContaining(ctx context.Context, p orb.Point) (hits []store.ParkHit, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("park_containing", start, err) }(time.Now())
	if !geo.ValidLonLat(p) {
		return nil, apperrors.ValidationError("lat must be within [-90, 90] and lng within [-180, 180]")
	}
	return e.r.ParkContaining(ctx, p, parkSimplify)
}

func (e *Engine) SearchParks(ctx context.Context, q string) (hits []store.ParkHit, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("parks_search", start, err) }(time.Now())
	q, ok := searchTerm(q)
	if !ok {
		return []store.ParkHit{}, nil
	}
	return e.r.SearchParks(ctx, q, searchCap, parkSimplify)
}

func (e *Engine) RoutesWithin(ctx context.Context, center orb.Point, radiusM float64) (hits []store.RouteHit, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("routes_within", start, err) }(time.Now())
	if err := e.CheckRadius(center, radiusM); err != nil {
		return nil, err
	}
	return e.r.RoutesWithin(ctx, store.RadiusQuery{
		Center: center, RadiusM: radiusM, Limit: routeRadiusCap, Simplify: routeSimplify,
	})
}

// AccessibleRoutesWithin lists routes around center with accessible ones first.
// With onlyAccessible set, routes not known to be accessible are left out.
func (e *Engine) AccessibleRoutesWithin(ctx context.Context, center orb.Point, radiusM float64, onlyAccessible bool) (hits []store.RouteHit, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("accessible_routes_within", start, err) }(time.Now())
	if err := e.CheckRadius(center, radiusM); err != nil {
		return nil, err
	}
	return e.r.AccessibleRoutesWithin(ctx, store.RadiusQuery{
		Center: center, RadiusM: radiusM, Limit: accessibleRoutesCap, Simplify: routeSimplify,
	}, onlyAccessible)
}

func (e *Engine) RoutesIntersectingPark(ctx context.Context, parkID int64) (hits []store.RouteHit, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("routes_intersecting_park", start, err) }(time.Now())
	if parkID <= 0 {
		return nil, apperrors.ValidationError("park_id must be a positive integer")
	}
	return e.r.RoutesIntersectingPark(ctx, parkID, intersectionCap, routeSimplify)
}

func (e *Engine) NearestPlaygrounds(ctx context.Context, p orb.Point, k int) (hits []store.PlaygroundHit, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("playgrounds_nearest", start, err) }(time.Now())
	if !geo.ValidLonLat(p) {
		return nil, apperrors.ValidationError("lat must be within [-90, 90] and lng within [-180, 180]")
	}
	if k < 1 || k > MaxNearestK {
		return nil, apperrors.ValidationError("limit must be between 1 and %d", MaxNearestK)
	}
	return e.r.NearestPlaygrounds(ctx, p, k)
}

func (e *Engine) SearchPlaygrounds(ctx context.Context, q string) (hits []store.PlaygroundHit, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("playgrounds_search", start, err) }(time.Now())
	q, ok := searchTerm(q)
	if !ok {
		return []store.PlaygroundHit{}, nil
	}
	return e.r.SearchPlaygrounds(ctx, q, searchCap)
}

func searchTerm(q string) (string, bool) {
	q = strings.TrimSpace(q)
	return q, utf8.RuneCountInString(q) >= MinSearchLen
}
