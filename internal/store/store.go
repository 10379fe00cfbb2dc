// Package store is the PostGIS-backed feature store. Collections are replaced
// wholesale inside one transaction; reads are single statements served by the
// geometry and geography GIST indexes.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gorm.io/gorm"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
	"github.com/accessmaps/parks-api/internal/geo"
	"github.com/accessmaps/parks-api/internal/logger"
)

// Store wraps a gorm handle. It is safe for concurrent use.
type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

// New returns a Store on conn.
func New(conn *gorm.DB) *Store {
	return &Store{db: conn, log: logger.Module("store")}
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbErr("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbErr("ping", err)
	}
	return nil
}

// reloadLockKey names the advisory lock serializing reloads of one collection.
func reloadLockKey(kind geo.Kind) string {
	return "parks-api:reload:" + string(kind)
}

// GeoJSON is a geometry column read back with ST_AsGeoJSON. It marshals
// as a GeoJSON geometry object.
type GeoJSON struct {
	Geom orb.Geometry
}

func (g GeoJSON) MarshalJSON() ([]byte, error) {
	if g.Geom == nil {
		return []byte("null"), nil
	}
	return geojson.NewGeometry(g.Geom).MarshalJSON()
}

// decodeGeoJSON parses the text produced by ST_AsGeoJSON.
func decodeGeoJSON(raw []byte) (GeoJSON, error) {
	if len(raw) == 0 {
		return GeoJSON{}, nil
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return GeoJSON{}, fmt.Errorf("decode geometry: %w", err)
	}
	return GeoJSON{Geom: g.Geometry()}, nil
}

func dbErr(op string, err error) error {
	if apperrors.CategoryOf(err) != apperrors.CategoryGeneric {
		return err
	}
	return apperrors.Database(op, err)
}
