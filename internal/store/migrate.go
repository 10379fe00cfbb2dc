package store

import (
	"context"
	"fmt"

	"github.com/accessmaps/parks-api/internal/db"
)

var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS parks_geom_gist ON parks USING GIST (geom)`,
	`CREATE INDEX IF NOT EXISTS parks_geog_gist ON parks USING GIST ((geom::geography))`,
	`CREATE INDEX IF NOT EXISTS parks_name_trgm ON parks USING GIN (name gin_trgm_ops)`,

	`CREATE INDEX IF NOT EXISTS playgrounds_geom_gist ON playgrounds USING GIST (geom)`,
	`CREATE INDEX IF NOT EXISTS playgrounds_geog_gist ON playgrounds USING GIST ((geom::geography))`,
	`CREATE INDEX IF NOT EXISTS playgrounds_name_trgm ON playgrounds USING GIN (name gin_trgm_ops)`,

	`CREATE INDEX IF NOT EXISTS walking_routes_geom_gist ON walking_routes USING GIST (geom)`,
	`CREATE INDEX IF NOT EXISTS walking_routes_geog_gist ON walking_routes USING GIST ((geom::geography))`,

	`CREATE INDEX IF NOT EXISTS access_issues_geog_gist ON access_issues USING GIST ((geom::geography))`,
}

const issueRouteFK = `
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'access_issues_route_id_fkey') THEN
		ALTER TABLE access_issues
			ADD CONSTRAINT access_issues_route_id_fkey
			FOREIGN KEY (route_id) REFERENCES walking_routes(id) ON DELETE CASCADE;
	END IF;
END
$$`

// Migrate creates extensions, tables, indexes and the issue foreign key.
// Every step is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	conn := s.db.WithContext(ctx)

	if err := db.EnsureExtensions(conn); err != nil {
		return fmt.Errorf("enable extensions: %w", err)
	}

	if err := conn.AutoMigrate(&Park{}, &Playground{}, &WalkingRoute{}, &AccessIssue{}); err != nil {
		return fmt.Errorf("auto-migrate tables: %w", err)
	}

	for _, stmt := range indexStatements {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	if err := conn.Exec(issueRouteFK).Error; err != nil {
		return fmt.Errorf("add access_issues route foreign key: %w", err)
	}

	s.log.Info("schema migrated")
	return nil
}
