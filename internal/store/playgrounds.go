package store

import (
	"context"
	"database/sql"

	"github.com/paulmach/orb"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
)

// ManualSource marks playgrounds added through the API rather than an import.
const ManualSource = "Manual"

// PlaygroundHit is a playground row as returned by reads. Meters is set by
// nearest-neighbour queries only.
type PlaygroundHit struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Source string   `json:"source,omitempty"`
	Meters *float64 `json:"meters,omitempty"`
	Geom   GeoJSON  `json:"geom"`
}

// CreatePlayground inserts one manual playground at p.
func (s *Store) CreatePlayground(ctx context.Context, name string, p orb.Point) (PlaygroundHit, error) {
	row := s.db.WithContext(ctx).Raw(`
		INSERT INTO playgrounds (name, source, geom)
		VALUES (?, ?, ST_SetSRID(ST_MakePoint(?, ?), 4326))
		RETURNING id, name, source, ST_AsGeoJSON(geom)
	`, name, ManualSource, p.Lon(), p.Lat()).Row()

	hit, err := scanPlayground(row)
	if err != nil {
		return PlaygroundHit{}, dbErr("create playground", err)
	}
	return hit, nil
}

func (s *Store) GetPlayground(ctx context.Context, id int64) (PlaygroundHit, error) {
	row := s.db.WithContext(ctx).Raw(`
		SELECT id, name, source, ST_AsGeoJSON(geom)
		FROM playgrounds
		WHERE id = ?
	`, id).Row()

	hit, err := scanPlayground(row)
	if apperrors.Is(err, sql.ErrNoRows) {
		return PlaygroundHit{}, apperrors.NotFound("playground", id)
	}
	if err != nil {
		return PlaygroundHit{}, dbErr("get playground", err)
	}
	return hit, nil
}

// Renamed is the result of a name update.
type Renamed struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UpdatePlaygroundName renames one playground.
func (s *Store) UpdatePlaygroundName(ctx context.Context, id int64, name string) (Renamed, error) {
	res := s.db.WithContext(ctx).Model(&Playground{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return Renamed{}, dbErr("update playground", res.Error)
	}
	if res.RowsAffected == 0 {
		return Renamed{}, apperrors.NotFound("playground", id)
	}
	return Renamed{ID: id, Name: name}, nil
}

func (s *Store) DeletePlayground(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&Playground{}, id)
	if res.Error != nil {
		return dbErr("delete playground", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("playground", id)
	}
	return nil
}

func scanPlayground(row *sql.Row) (PlaygroundHit, error) {
	var (
		hit PlaygroundHit
		raw []byte
	)
	if err := row.Scan(&hit.ID, &hit.Name, &hit.Source, &raw); err != nil {
		return PlaygroundHit{}, err
	}
	g, err := decodeGeoJSON(raw)
	if err != nil {
		return PlaygroundHit{}, err
	}
	hit.Geom = g
	return hit, nil
}
