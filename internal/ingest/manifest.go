package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/accessmaps/parks-api/internal/geo"
)

// Manifest maps collections to their sources for a multi-collection import:
//
//	parks: data/parks.geojson
//	playgrounds: https://example.org/playgrounds.geojson
//	walking_routes: data/footways.fgb
//	route_polygon_boundaries: false
type Manifest struct {
	Parks                  string `yaml:"parks"`
	Playgrounds            string `yaml:"playgrounds"`
	Routes                 string `yaml:"walking_routes"`
	RoutePolygonBoundaries *bool  `yaml:"route_polygon_boundaries"`
}

// ManifestEntry is one collection to reload.
type ManifestEntry struct {
	Kind geo.Kind
	Ref  string
}

// LoadManifest reads a manifest file. Relative file references resolve
// against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for _, ref := range []*string{&m.Parks, &m.Playgrounds, &m.Routes} {
		*ref = resolveRef(base, *ref)
	}

	if len(m.Entries()) == 0 {
		return nil, fmt.Errorf("manifest %s names no collections", path)
	}
	return &m, nil
}

// Entries lists the configured collections in import order.
func (m *Manifest) Entries() []ManifestEntry {
	var out []ManifestEntry
	for _, e := range []ManifestEntry{
		{Kind: geo.KindPark, Ref: m.Parks},
		{Kind: geo.KindPlayground, Ref: m.Playgrounds},
		{Kind: geo.KindRoute, Ref: m.Routes},
	} {
		if e.Ref != "" {
			out = append(out, e)
		}
	}
	return out
}

func resolveRef(base, ref string) string {
	if ref == "" || filepath.IsAbs(ref) || isURL(ref) {
		return ref
	}
	return filepath.Join(base, ref)
}
