// Package playgrounds serves manual create, read, rename and delete of
// playgrounds that did not come from an import.
package playgrounds

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/paulmach/orb"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
	"github.com/accessmaps/parks-api/internal/geo"
	"github.com/accessmaps/parks-api/internal/logger"
	"github.com/accessmaps/parks-api/internal/store"
)

const (
	DefaultName   = "Playground"
	maxNameLength = 200
)

type Store interface {
	CreatePlayground(ctx context.Context, name string, p orb.Point) (store.PlaygroundHit, error)
	GetPlayground(ctx context.Context, id int64) (store.PlaygroundHit, error)
	UpdatePlaygroundName(ctx context.Context, id int64, name string) (store.Renamed, error)
	DeletePlayground(ctx context.Context, id int64) error
}

type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

// Create adds a manual playground at p. An empty name becomes DefaultName.
func (s *Service) Create(ctx context.Context, name string, p orb.Point) (store.PlaygroundHit, error) {
	if !geo.ValidLonLat(p) {
		return store.PlaygroundHit{}, apperrors.ValidationError("lat must be within [-90, 90] and lng within [-180, 180]")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	if err := checkName(name); err != nil {
		return store.PlaygroundHit{}, err
	}

	hit, err := s.store.CreatePlayground(ctx, name, p)
	if err != nil {
		return store.PlaygroundHit{}, err
	}
	logger.Module("playgrounds").Info("playground created", "id", hit.ID, "name", hit.Name)
	return hit, nil
}

func (s *Service) Get(ctx context.Context, id int64) (store.PlaygroundHit, error) {
	return s.store.GetPlayground(ctx, id)
}

// Rename sets a new, non-empty name.
func (s *Service) Rename(ctx context.Context, id int64, name string) (store.Renamed, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Renamed{}, apperrors.ValidationError("name required")
	}
	if err := checkName(name); err != nil {
		return store.Renamed{}, err
	}
	return s.store.UpdatePlaygroundName(ctx, id, name)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeletePlayground(ctx, id); err != nil {
		return err
	}
	logger.Module("playgrounds").Info("playground deleted", "id", id)
	return nil
}

func checkName(name string) error {
	if !utf8.ValidString(name) {
		return apperrors.ValidationError("name must be valid UTF-8")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return apperrors.ValidationError("name must be at most %d characters", maxNameLength)
	}
	return nil
}
