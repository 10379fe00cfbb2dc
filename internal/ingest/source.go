// Package ingest loads third-party feature collections into the store. Each
// feature is normalized on its own; bad features are skipped and reported, and
// the accepted rows replace the collection in one transaction.
package ingest

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// RawFeature is one decoded input feature. Err is set when the feature could
// not be decoded; Geometry may then be nil.
type RawFeature struct {
	Index      int
	ID         string
	Geometry   orb.Geometry
	Properties map[string]any
	Err        error
}

// FeatureSource yields the features of one input. An error from Features means
// the whole input is unreadable.
type FeatureSource interface {
	Name() string
	Features(ctx context.Context) ([]RawFeature, error)
}

// SourceOptions configures sources opened by reference.
type SourceOptions struct {
	HTTPTimeout      time.Duration
	MaxDownloadBytes int64
}

// OpenSource picks a source for ref: http(s) URLs are downloaded, .fgb files
// are read as FlatGeobuf and anything else as a GeoJSON file.
func OpenSource(ref string, opts SourceOptions) (FeatureSource, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty source reference")
	}

	switch {
	case isURL(ref):
		return &HTTPSource{
			URL:      ref,
			Client:   &http.Client{Timeout: opts.HTTPTimeout},
			MaxBytes: opts.MaxDownloadBytes,
		}, nil
	case strings.EqualFold(filepath.Ext(ref), ".fgb"):
		return &FGBFile{Path: ref}, nil
	default:
		return &GeoJSONFile{Path: ref}, nil
	}
}

func isURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
