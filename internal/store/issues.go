package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
)

const pgForeignKeyViolation = "23503"

// NewIssue is a validated issue report.
type NewIssue struct {
	RouteID     int64
	IssueType   string
	Description string
	Lat         float64
	Lng         float64
}

// CreatedIssue carries the server-assigned fields of a new issue.
type CreatedIssue struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Issue is an access issue as returned by reads.
type Issue struct {
	ID          int64     `json:"id"`
	RouteID     int64     `json:"route_id"`
	RouteName   *string   `json:"route_name"`
	IssueType   string    `json:"issue_type"`
	Description string    `json:"description"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	CreatedAt   time.Time `json:"created_at"`
	DistanceM   *float64  `json:"distance_m,omitempty"`
	Geom        GeoJSON   `json:"geom"`
}

// CreateIssue inserts one report. A route_id that does not exist, including one
// removed by a concurrent reload, is reported as not-found.
func (s *Store) CreateIssue(ctx context.Context, in NewIssue) (CreatedIssue, error) {
	var out CreatedIssue
	err := s.db.WithContext(ctx).Raw(`
		INSERT INTO access_issues (route_id, issue_type, description, lat, lng, geom)
		VALUES (?, ?, ?, ?, ?, ST_SetSRID(ST_MakePoint(?, ?), 4326))
		RETURNING id, created_at
	`, in.RouteID, in.IssueType, in.Description, in.Lat, in.Lng, in.Lng, in.Lat).Row().Scan(&out.ID, &out.CreatedAt)

	if isForeignKeyViolation(err) {
		return CreatedIssue{}, apperrors.NotFound("route", in.RouteID)
	}
	if err != nil {
		return CreatedIssue{}, dbErr("create issue", err)
	}
	return out, nil
}

func (s *Store) GetIssue(ctx context.Context, id int64) (Issue, error) {
	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT i.id, i.route_id, r.name, i.issue_type, i.description, i.lat, i.lng,
		       i.created_at, NULL::float8, ST_AsGeoJSON(i.geom)
		FROM access_issues i
		LEFT JOIN walking_routes r ON r.id = i.route_id
		WHERE i.id = ?
	`, id).Rows()
	if err != nil {
		return Issue{}, dbErr("get issue", err)
	}
	issues, err := scanIssues(rows)
	if err != nil {
		return Issue{}, dbErr("get issue", err)
	}
	if len(issues) == 0 {
		return Issue{}, apperrors.NotFound("issue", id)
	}
	return issues[0], nil
}

func (s *Store) DeleteIssue(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&AccessIssue{}, id)
	if res.Error != nil {
		return dbErr("delete issue", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("issue", id)
	}
	return nil
}

func scanIssues(rows *sql.Rows) ([]Issue, error) {
	defer rows.Close()

	issues := []Issue{}
	for rows.Next() {
		var (
			is  Issue
			raw []byte
		)
		if err := rows.Scan(&is.ID, &is.RouteID, &is.RouteName, &is.IssueType, &is.Description,
			&is.Lat, &is.Lng, &is.CreatedAt, &is.DistanceM, &raw); err != nil {
			return nil, err
		}
		g, err := decodeGeoJSON(raw)
		if err != nil {
			return nil, err
		}
		is.Geom = g
		issues = append(issues, is)
	}
	return issues, rows.Err()
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return apperrors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
