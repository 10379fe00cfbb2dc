package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
)

// errUnsupportedType marks a feature whose geometry type is not GeoJSON.
var errUnsupportedType = apperrors.NewStd("unsupported geometry type")

var geoJSONTypes = map[string]bool{
	"Point": true, "MultiPoint": true,
	"LineString": true, "MultiLineString": true,
	"Polygon": true, "MultiPolygon": true,
	"GeometryCollection": true,
}

// GeoJSONFile reads a FeatureCollection from disk.
type GeoJSONFile struct {
	Path string
}

func (f *GeoJSONFile) Name() string { return f.Path }

func (f *GeoJSONFile) Features(ctx context.Context) ([]RawFeature, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, apperrors.New(fmt.Errorf("read %s: %w", f.Path, err)).
			Category(apperrors.CategoryFileIO).
			Context("path", f.Path).
			Build()
	}
	return ParseFeatureCollection(data)
}

// GeoJSONBytes is an in-memory FeatureCollection, such as a request body.
type GeoJSONBytes struct {
	Label string
	Data  []byte
}

func (b *GeoJSONBytes) Name() string { return b.Label }

func (b *GeoJSONBytes) Features(ctx context.Context) ([]RawFeature, error) {
	return ParseFeatureCollection(b.Data)
}

// ParseFeatureCollection decodes each feature of a FeatureCollection
// independently so that one malformed feature does not fail the document.
func ParseFeatureCollection(data []byte) ([]RawFeature, error) {
	var doc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.ValidationError("invalid GeoJSON document: %v", err)
	}
	if doc.Type != "FeatureCollection" {
		return nil, apperrors.ValidationError("expected a FeatureCollection, got type %q", doc.Type)
	}

	out := make([]RawFeature, 0, len(doc.Features))
	for i, raw := range doc.Features {
		out = append(out, decodeFeature(i, raw))
	}
	return out, nil
}

func decodeFeature(i int, raw json.RawMessage) RawFeature {
	rf := RawFeature{Index: i}

	f, err := geojson.UnmarshalFeature(raw)
	if err != nil {
		rf.Err = err
		if t := peekGeometryType(raw); t != "" && !geoJSONTypes[t] {
			rf.Err = fmt.Errorf("%w %q", errUnsupportedType, t)
		}
		return rf
	}

	if f.ID != nil {
		rf.ID = fmt.Sprint(f.ID)
	}
	rf.Geometry = f.Geometry
	rf.Properties = f.Properties
	return rf
}

// peekGeometryType returns geometry.type of a feature that orb refused to decode.
func peekGeometryType(raw json.RawMessage) string {
	var head struct {
		Geometry *struct {
			Type string `json:"type"`
		} `json:"geometry"`
	}
	if json.Unmarshal(raw, &head) != nil || head.Geometry == nil {
		return ""
	}
	return head.Geometry.Type
}
