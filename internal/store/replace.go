package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"gorm.io/gorm"

	"github.com/accessmaps/parks-api/internal/accessibility"
	apperrors "github.com/accessmaps/parks-api/internal/errors"
	"github.com/accessmaps/parks-api/internal/geo"
	"github.com/accessmaps/parks-api/internal/utils"
)

const insertBatchSize = 500

type ParkRow struct {
	Name     string
	Category *string
	AreaHa   *float64
	Geom     orb.MultiPolygon
}

type PlaygroundRow struct {
	Name   string
	Source string
	Geom   orb.Point
}

type RouteRow struct {
	Name       string
	Source     string
	Surface    *string
	Smoothness *string
	Access     accessibility.Status
	Geom       orb.LineString
}

// ReplaceResult describes a committed collection reload.
type ReplaceResult struct {
	Replaced      int64 `json:"replaced"`
	Inserted      int   `json:"inserted"`
	IssuesRemoved int64 `json:"issues_removed"`
}

// ReplaceParks atomically swaps the parks collection for rows.
func (s *Store) ReplaceParks(ctx context.Context, rows []ParkRow) (ReplaceResult, error) {
	return s.replace(ctx, geo.KindPark, len(rows), func(tx *gorm.DB) error {
		return insertBatches(tx,
			`INSERT INTO parks (name, category, area_ha, geom) VALUES `,
			`(?, ?, ?, ST_SetSRID(ST_GeomFromEWKB(?), 4326))`,
			len(rows),
			func(i int) ([]any, error) {
				r := rows[i]
				g, err := ewkb.Marshal(r.Geom, geo.SRID)
				if err != nil {
					return nil, err
				}
				return []any{r.Name, r.Category, r.AreaHa, g}, nil
			})
	})
}

// ReplacePlaygrounds atomically swaps the playgrounds collection for rows,
// manual rows included.
func (s *Store) ReplacePlaygrounds(ctx context.Context, rows []PlaygroundRow) (ReplaceResult, error) {
	return s.replace(ctx, geo.KindPlayground, len(rows), func(tx *gorm.DB) error {
		return insertBatches(tx,
			`INSERT INTO playgrounds (name, source, geom) VALUES `,
			`(?, ?, ST_SetSRID(ST_GeomFromEWKB(?), 4326))`,
			len(rows),
			func(i int) ([]any, error) {
				r := rows[i]
				g, err := ewkb.Marshal(r.Geom, geo.SRID)
				if err != nil {
					return nil, err
				}
				return []any{r.Name, r.Source, g}, nil
			})
	})
}

// ReplaceRoutes atomically swaps the walking routes for rows. Issues pinned to
// the old routes are deleted in the same transaction.
func (s *Store) ReplaceRoutes(ctx context.Context, rows []RouteRow) (ReplaceResult, error) {
	return s.replace(ctx, geo.KindRoute, len(rows), func(tx *gorm.DB) error {
		return insertBatches(tx,
			`INSERT INTO walking_routes (name, source, surface, smoothness, is_accessible, geom) VALUES `,
			`(?, ?, ?, ?, ?, ST_SetSRID(ST_GeomFromEWKB(?), 4326))`,
			len(rows),
			func(i int) ([]any, error) {
				r := rows[i]
				g, err := ewkb.Marshal(r.Geom, geo.SRID)
				if err != nil {
					return nil, err
				}
				return []any{r.Name, r.Source, r.Surface, r.Smoothness, r.Access, g}, nil
			})
	})
}

func (s *Store) replace(ctx context.Context, kind geo.Kind, n int, insert func(tx *gorm.DB) error) (ReplaceResult, error) {
	res := ReplaceResult{Inserted: n}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext(?))`, reloadLockKey(kind)).Error; err != nil {
			return fmt.Errorf("acquire reload lock: %w", err)
		}

		if kind == geo.KindRoute {
			del := tx.Exec(`DELETE FROM access_issues`)
			if del.Error != nil {
				return fmt.Errorf("delete access issues: %w", del.Error)
			}
			res.IssuesRemoved = del.RowsAffected
		}

		// DELETE rather than TRUNCATE: readers keep their snapshot instead of
		// waiting on an ACCESS EXCLUSIVE lock.
		del := tx.Exec(`DELETE FROM ` + string(kind))
		if del.Error != nil {
			return fmt.Errorf("delete %s: %w", kind, del.Error)
		}
		res.Replaced = del.RowsAffected

		if err := insert(tx); err != nil {
			return fmt.Errorf("insert %s: %w", kind, err)
		}
		return nil
	})
	runID, _ := utils.GetRunIDFromContext(ctx)
	if err != nil {
		return ReplaceResult{}, apperrors.New(err).
			Category(apperrors.CategoryIngestTx).
			Context("collection", string(kind)).
			Context("run_id", runID).
			Build()
	}

	s.log.Info("collection replaced",
		"run_id", runID,
		"collection", kind,
		"replaced", res.Replaced,
		"inserted", res.Inserted,
		"issues_removed", res.IssuesRemoved,
	)
	return res, nil
}

// insertBatches issues multi-row INSERTs of up to insertBatchSize rows.
func insertBatches(tx *gorm.DB, prefix, tuple string, n int, args func(i int) ([]any, error)) error {
	for start := 0; start < n; start += insertBatchSize {
		end := min(start+insertBatchSize, n)

		tuples := make([]string, 0, end-start)
		var vals []any
		for i := start; i < end; i++ {
			a, err := args(i)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			tuples = append(tuples, tuple)
			vals = append(vals, a...)
		}

		if err := tx.Exec(prefix+strings.Join(tuples, ", "), vals...).Error; err != nil {
			return err
		}
	}
	return nil
}
