package store

import (
	"context"

	"github.com/lib/pq"
	"gorm.io/gorm"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
)

// RouteDeletion reports what a route delete removed.
type RouteDeletion struct {
	Deleted       int64 `json:"deleted"`
	IssuesRemoved int64 `json:"issues_removed"`
}

// DeleteRoute removes one route; its issues go with it via the cascade.
func (s *Store) DeleteRoute(ctx context.Context, id int64) (RouteDeletion, error) {
	out, err := s.DeleteRoutes(ctx, []int64{id})
	if err != nil {
		return RouteDeletion{}, err
	}
	if out.Deleted == 0 {
		return RouteDeletion{}, apperrors.NotFound("route", id)
	}
	return out, nil
}

// DeleteRoutes removes every listed route in one transaction. Unknown ids are ignored.
// The routes are locked before their issues are counted, so an issue inserted
// concurrently either lands before the count or fails its foreign key check.
func (s *Store) DeleteRoutes(ctx context.Context, ids []int64) (RouteDeletion, error) {
	var out RouteDeletion
	if len(ids) == 0 {
		return out, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []int64
		if err := tx.Raw(`SELECT id FROM walking_routes WHERE id = ANY(?) ORDER BY id FOR UPDATE`, pq.Array(ids)).
			Scan(&locked).Error; err != nil {
			return err
		}
		if len(locked) == 0 {
			return nil
		}
		if err := tx.Raw(`SELECT count(*) FROM access_issues WHERE route_id = ANY(?)`, pq.Array(locked)).
			Scan(&out.IssuesRemoved).Error; err != nil {
			return err
		}
		res := tx.Exec(`DELETE FROM walking_routes WHERE id = ANY(?)`, pq.Array(locked))
		if res.Error != nil {
			return res.Error
		}
		out.Deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return RouteDeletion{}, dbErr("delete routes", err)
	}
	return out, nil
}
