package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/paulmach/orb"

	"github.com/accessmaps/parks-api/internal/accessibility"
	apperrors "github.com/accessmaps/parks-api/internal/errors"
)

// RadiusQuery selects rows whose geometry lies within RadiusM meters of Center.
// Simplify is the output simplification tolerance in degrees; zero disables it.
type RadiusQuery struct {
	Center   orb.Point
	RadiusM  float64
	Limit    int
	Simplify float64
}

type ParkHit struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Category  *string  `json:"category,omitempty"`
	AreaHa    *float64 `json:"area_ha,omitempty"`
	DistanceM *float64 `json:"distance_m,omitempty"`
	Geom      GeoJSON  `json:"geom"`
}

type RouteHit struct {
	ID           int64                 `json:"id"`
	Name         string                `json:"name"`
	Source       string                `json:"source,omitempty"`
	Surface      *string               `json:"surface,omitempty"`
	Smoothness   *string               `json:"smoothness,omitempty"`
	IsAccessible *accessibility.Status `json:"is_accessible,omitempty"`
	DistanceM    *float64              `json:"distance_m,omitempty"`
	Geom         GeoJSON               `json:"geom"`
}

// centerCTE binds the query point once as geography.
const centerCTE = `WITH q AS (SELECT ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography AS g) `

// ParksWithin returns parks within the radius, nearest first.
func (s *Store) ParksWithin(ctx context.Context, rq RadiusQuery) ([]ParkHit, error) {
	rows, err := s.db.WithContext(ctx).Raw(centerCTE+`
		SELECT p.id, p.name, p.category, p.area_ha,
		       ST_Distance(p.geom::geography, q.g) AS distance_m,
		       ST_AsGeoJSON(ST_SimplifyPreserveTopology(p.geom, ?))
		FROM parks p, q
		WHERE ST_DWithin(p.geom::geography, q.g, ?)
		ORDER BY distance_m, p.id
		LIMIT ?
	`, rq.Center.Lon(), rq.Center.Lat(), rq.Simplify, rq.RadiusM, rq.Limit).Rows()
	if err != nil {
		return nil, dbErr("parks within", err)
	}
	hits, err := scanParks(rows, true)
	if err != nil {
		return nil, dbErr("parks within", err)
	}
	return hits, nil
}

// ParkContaining returns the smallest park whose polygon contains p, if any.
func (s *Store) ParkContaining(ctx context.Context, p orb.Point, simplify float64) ([]ParkHit, error) {
	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT id, name, category, area_ha,
		       ST_AsGeoJSON(ST_SimplifyPreserveTopology(geom, ?))
		FROM parks
		WHERE ST_Contains(geom, ST_SetSRID(ST_Point(?, ?), 4326))
		ORDER BY ST_Area(geom), id
		LIMIT 1
	`, simplify, p.Lon(), p.Lat()).Rows()
	if err != nil {
		return nil, dbErr("park containing", err)
	}
	hits, err := scanParks(rows, false)
	if err != nil {
		return nil, dbErr("park containing", err)
	}
	return hits, nil
}

// SearchParks matches names case-insensitively by substring, ordered by name.
// The caller enforces the minimum query length.
func (s *Store) SearchParks(ctx context.Context, q string, limit int, simplify float64) ([]ParkHit, error) {
	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT id, name, ST_AsGeoJSON(ST_SimplifyPreserveTopology(geom, ?))
		FROM parks
		WHERE name ILIKE ?
		ORDER BY name, id
		LIMIT ?
	`, simplify, ContainsPattern(q), limit).Rows()
	if err != nil {
		return nil, dbErr("search parks", err)
	}
	defer rows.Close()

	hits := []ParkHit{}
	for rows.Next() {
		var (
			h   ParkHit
			raw []byte
		)
		if err := rows.Scan(&h.ID, &h.Name, &raw); err != nil {
			return nil, dbErr("search parks", err)
		}
		if h.Geom, err = decodeGeoJSON(raw); err != nil {
			return nil, dbErr("search parks", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("search parks", err)
	}
	return hits, nil
}

func scanParks(rows *sql.Rows, withDistance bool) ([]ParkHit, error) {
	defer rows.Close()

	hits := []ParkHit{}
	for rows.Next() {
		var (
			h    ParkHit
			dist float64
			raw  []byte
		)
		dest := []any{&h.ID, &h.Name, &h.Category, &h.AreaHa}
		if withDistance {
			dest = append(dest, &dist)
		}
		dest = append(dest, &raw)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if withDistance {
			h.DistanceM = &dist
		}
		g, err := decodeGeoJSON(raw)
		if err != nil {
			return nil, err
		}
		h.Geom = g
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// RoutesWithin returns routes within the radius, nearest first.
func (s *Store) RoutesWithin(ctx context.Context, rq RadiusQuery) ([]RouteHit, error) {
	rows, err := s.db.WithContext(ctx).Raw(centerCTE+`
		SELECT r.id, r.name, r.source, r.surface, r.smoothness, r.is_accessible,
		       ST_Distance(r.geom::geography, q.g) AS distance_m,
		       ST_AsGeoJSON(ST_Simplify(r.geom, ?))
		FROM walking_routes r, q
		WHERE ST_DWithin(r.geom::geography, q.g, ?)
		ORDER BY distance_m, r.id
		LIMIT ?
	`, rq.Center.Lon(), rq.Center.Lat(), rq.Simplify, rq.RadiusM, rq.Limit).Rows()
	if err != nil {
		return nil, dbErr("routes within", err)
	}
	hits, err := scanRoutes(rows)
	if err != nil {
		return nil, dbErr("routes within", err)
	}
	return hits, nil
}

// AccessibleRoutesWithin returns routes within the radius with accessible
// routes first, then by distance. With onlyAccessible, everything else is dropped.
func (s *Store) AccessibleRoutesWithin(ctx context.Context, rq RadiusQuery, onlyAccessible bool) ([]RouteHit, error) {
	rows, err := s.db.WithContext(ctx).Raw(centerCTE+`
		SELECT r.id, r.name, r.source, r.surface, r.smoothness, r.is_accessible,
		       ST_Distance(r.geom::geography, q.g) AS distance_m,
		       ST_AsGeoJSON(ST_Simplify(r.geom, ?))
		FROM walking_routes r, q
		WHERE ST_DWithin(r.geom::geography, q.g, ?)
		  AND (NOT ? OR r.is_accessible IS TRUE)
		ORDER BY (r.is_accessible IS TRUE) DESC, distance_m, r.id
		LIMIT ?
	`, rq.Center.Lon(), rq.Center.Lat(), rq.Simplify, rq.RadiusM, onlyAccessible, rq.Limit).Rows()
	if err != nil {
		return nil, dbErr("accessible routes within", err)
	}
	hits, err := scanRoutes(rows)
	if err != nil {
		return nil, dbErr("accessible routes within", err)
	}
	return hits, nil
}

// RoutesIntersectingPark returns routes crossing the park's polygon, by id.
func (s *Store) RoutesIntersectingPark(ctx context.Context, parkID int64, limit int, simplify float64) ([]RouteHit, error) {
	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT r.id, r.name, r.source, r.surface, r.smoothness, r.is_accessible,
		       NULL::float8, ST_AsGeoJSON(ST_Simplify(r.geom, ?))
		FROM walking_routes r
		JOIN parks p ON p.id = ?
		WHERE ST_Intersects(r.geom, p.geom)
		ORDER BY r.id
		LIMIT ?
	`, simplify, parkID, limit).Rows()
	if err != nil {
		return nil, dbErr("routes intersecting park", err)
	}
	hits, err := scanRoutes(rows)
	if err != nil {
		return nil, dbErr("routes intersecting park", err)
	}
	if len(hits) > 0 {
		return hits, nil
	}

	var exists bool
	if err := s.db.WithContext(ctx).Raw(`SELECT EXISTS (SELECT 1 FROM parks WHERE id = ?)`, parkID).
		Scan(&exists).Error; err != nil {
		return nil, dbErr("routes intersecting park", err)
	}
	if !exists {
		return nil, apperrors.NotFound("park", parkID)
	}
	return hits, nil
}

func scanRoutes(rows *sql.Rows) ([]RouteHit, error) {
	defer rows.Close()

	hits := []RouteHit{}
	for rows.Next() {
		var (
			h      RouteHit
			status accessibility.Status
			raw    []byte
		)
		if err := rows.Scan(&h.ID, &h.Name, &h.Source, &h.Surface, &h.Smoothness, &status, &h.DistanceM, &raw); err != nil {
			return nil, err
		}
		h.IsAccessible = &status
		g, err := decodeGeoJSON(raw)
		if err != nil {
			return nil, err
		}
		h.Geom = g
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// NearestPlaygrounds returns the k playgrounds closest to p with their distance in meters.
func (s *Store) NearestPlaygrounds(ctx context.Context, p orb.Point, k int) ([]PlaygroundHit, error) {
	rows, err := s.db.WithContext(ctx).Raw(centerCTE+`
		SELECT pg.id, pg.name, pg.source,
		       ST_Distance(pg.geom::geography, q.g) AS meters,
		       ST_AsGeoJSON(pg.geom)
		FROM playgrounds pg, q
		ORDER BY pg.geom::geography <-> q.g, pg.id
		LIMIT ?
	`, p.Lon(), p.Lat(), k).Rows()
	if err != nil {
		return nil, dbErr("nearest playgrounds", err)
	}
	defer rows.Close()

	hits := []PlaygroundHit{}
	for rows.Next() {
		var (
			h      PlaygroundHit
			meters float64
			raw    []byte
		)
		if err := rows.Scan(&h.ID, &h.Name, &h.Source, &meters, &raw); err != nil {
			return nil, dbErr("nearest playgrounds", err)
		}
		h.Meters = &meters
		if h.Geom, err = decodeGeoJSON(raw); err != nil {
			return nil, dbErr("nearest playgrounds", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("nearest playgrounds", err)
	}
	return hits, nil
}

// SearchPlaygrounds matches names case-insensitively by substring, ordered by name.
func (s *Store) SearchPlaygrounds(ctx context.Context, q string, limit int) ([]PlaygroundHit, error) {
	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT id, name, ST_AsGeoJSON(geom)
		FROM playgrounds
		WHERE name ILIKE ?
		ORDER BY name, id
		LIMIT ?
	`, ContainsPattern(q), limit).Rows()
	if err != nil {
		return nil, dbErr("search playgrounds", err)
	}
	defer rows.Close()

	hits := []PlaygroundHit{}
	for rows.Next() {
		var (
			h   PlaygroundHit
			raw []byte
		)
		if err := rows.Scan(&h.ID, &h.Name, &raw); err != nil {
			return nil, dbErr("search playgrounds", err)
		}
		if h.Geom, err = decodeGeoJSON(raw); err != nil {
			return nil, dbErr("search playgrounds", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("search playgrounds", err)
	}
	return hits, nil
}

// IssuesNear returns issues within the radius, newest first.
func (s *Store) IssuesNear(ctx context.Context, rq RadiusQuery) ([]Issue, error) {
	rows, err := s.db.WithContext(ctx).Raw(centerCTE+`
		SELECT i.id, i.route_id, r.name, i.issue_type, i.description, i.lat, i.lng,
		       i.created_at, ST_Distance(i.geom::geography, q.g), ST_AsGeoJSON(i.geom)
		FROM access_issues i
		CROSS JOIN q
		LEFT JOIN walking_routes r ON r.id = i.route_id
		WHERE ST_DWithin(i.geom::geography, q.g, ?)
		ORDER BY i.created_at DESC, i.id DESC
		LIMIT ?
	`, rq.Center.Lon(), rq.Center.Lat(), rq.RadiusM, rq.Limit).Rows()
	if err != nil {
		return nil, dbErr("issues near", err)
	}
	issues, err := scanIssues(rows)
	if err != nil {
		return nil, dbErr("issues near", err)
	}
	return issues, nil
}

// Counts is the row count of every table.
type Counts struct {
	Parks         int64 `json:"parks"`
	Playgrounds   int64 `json:"playgrounds"`
	WalkingRoutes int64 `json:"walking_routes"`
	AccessIssues  int64 `json:"access_issues"`
}

func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.WithContext(ctx).Raw(`
		SELECT (SELECT count(*) FROM parks),
		       (SELECT count(*) FROM playgrounds),
		       (SELECT count(*) FROM walking_routes),
		       (SELECT count(*) FROM access_issues)
	`).Row().Scan(&c.Parks, &c.Playgrounds, &c.WalkingRoutes, &c.AccessIssues)
	if err != nil {
		return Counts{}, dbErr("counts", err)
	}
	return c, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds an ILIKE pattern matching q literally anywhere in a value.
func ContainsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
