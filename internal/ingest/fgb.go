package ingest

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
)

// FGBFile reads features from a FlatGeobuf file. The Go reader can only
// enumerate features through the packed R-tree, so files without an index are
// rejected.
type FGBFile struct {
	Path string
}

func (f *FGBFile) Name() string { return f.Path }

func (f *FGBFile) Features(ctx context.Context) ([]RawFeature, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, apperrors.New(fmt.Errorf("read %s: %w", f.Path, err)).
			Category(apperrors.CategoryFileIO).
			Context("path", f.Path).
			Build()
	}

	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, apperrors.ValidationError("invalid FlatGeobuf file %s: %v", f.Path, err)
	}

	h := fgb.Header()
	if h == nil || h.FeaturesCount() == 0 {
		return []RawFeature{}, nil
	}
	if h.IndexNodeSize() == 0 || h.EnvelopeLength() < 4 {
		return nil, apperrors.ValidationError("FlatGeobuf file %s has no spatial index", f.Path)
	}

	found, err := fgb.Search(h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3))
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", f.Path, err)
	}

	columns := headerColumns(h)
	out := make([]RawFeature, 0, len(found))
	for i, feat := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, convertFGBFeature(i, feat, h.GeometryType(), columns))
	}
	return out, nil
}

// fgbColumn is the part of a FlatGeobuf column schema needed to decode values.
type fgbColumn struct {
	Name string
	Type flattypes.ColumnType
}

func headerColumns(h *flattypes.Header) []fgbColumn {
	cols := make([]fgbColumn, 0, h.ColumnsLength())
	for i := 0; i < h.ColumnsLength(); i++ {
		var c flattypes.Column
		if h.Columns(&c, i) {
			cols = append(cols, fgbColumn{Name: string(c.Name()), Type: c.Type()})
		}
	}
	return cols
}

func convertFGBFeature(i int, feat *flattypes.Feature, headerType flattypes.GeometryType, columns []fgbColumn) RawFeature {
	rf := RawFeature{Index: i}

	var g flattypes.Geometry
	if feat.Geometry(&g) != nil {
		geom, err := geometryFromFGB(&g, headerType)
		if err != nil {
			rf.Err = err
			return rf
		}
		rf.Geometry = geom
	}

	n := feat.PropertiesLength()
	if n > 0 && len(columns) > 0 {
		raw := make([]byte, n)
		for j := 0; j < n; j++ {
			raw[j] = feat.Properties(j)
		}
		props, err := decodeFGBProperties(raw, columns)
		if err != nil {
			rf.Err = err
			return rf
		}
		rf.Properties = props
	}
	return rf
}

// geometryFromFGB converts a feature geometry. Features in a typed layer omit
// their own type, so the header type is the fallback.
func geometryFromFGB(g *flattypes.Geometry, headerType flattypes.GeometryType) (orb.Geometry, error) {
	t := g.Type()
	if t == flattypes.GeometryTypeUnknown {
		t = headerType
	}

	switch t {
	case flattypes.GeometryTypePoint:
		pts := fgbPoints(g)
		if len(pts) == 0 {
			return nil, nil
		}
		return pts[0], nil
	case flattypes.GeometryTypeLineString:
		return orb.LineString(fgbPoints(g)), nil
	case flattypes.GeometryTypeMultiLineString:
		var mls orb.MultiLineString
		for _, part := range fgbSplit(g) {
			mls = append(mls, orb.LineString(part))
		}
		return mls, nil
	case flattypes.GeometryTypePolygon:
		return fgbPolygon(g), nil
	case flattypes.GeometryTypeMultiPolygon:
		var mp orb.MultiPolygon
		if g.PartsLength() == 0 {
			return orb.MultiPolygon{fgbPolygon(g)}, nil
		}
		for i := 0; i < g.PartsLength(); i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				mp = append(mp, fgbPolygon(&part))
			}
		}
		return mp, nil
	}

	name := flattypes.EnumNamesGeometryType[t]
	if name == "" {
		name = fmt.Sprintf("type %d", t)
	}
	return nil, fmt.Errorf("%w %q", errUnsupportedType, name)
}

func fgbPoints(g *flattypes.Geometry) []orb.Point {
	n := g.XyLength() / 2
	pts := make([]orb.Point, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, orb.Point{g.Xy(2 * i), g.Xy(2*i + 1)})
	}
	return pts
}

// fgbSplit cuts the coordinate array at the ends offsets (counted in points).
func fgbSplit(g *flattypes.Geometry) [][]orb.Point {
	pts := fgbPoints(g)
	if g.EndsLength() == 0 {
		return [][]orb.Point{pts}
	}
	parts := make([][]orb.Point, 0, g.EndsLength())
	start := 0
	for i := 0; i < g.EndsLength(); i++ {
		end := min(int(g.Ends(i)), len(pts))
		if end < start {
			break
		}
		parts = append(parts, pts[start:end])
		start = end
	}
	return parts
}

func fgbPolygon(g *flattypes.Geometry) orb.Polygon {
	var poly orb.Polygon
	for _, ring := range fgbSplit(g) {
		poly = append(poly, orb.Ring(ring))
	}
	return poly
}

// decodeFGBProperties decodes the FlatGeobuf property buffer: repeated
// (uint16 column index, value) pairs, little endian.
func decodeFGBProperties(data []byte, columns []fgbColumn) (map[string]any, error) {
	props := make(map[string]any, len(columns))
	for off := 0; off < len(data); {
		if off+2 > len(data) {
			return nil, fmt.Errorf("truncated property buffer at offset %d", off)
		}
		idx := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if idx >= len(columns) {
			return nil, fmt.Errorf("property column %d out of range", idx)
		}

		col := columns[idx]
		v, n, err := readFGBValue(data[off:], col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		off += n
		props[col.Name] = v
	}
	return props, nil
}

func readFGBValue(b []byte, t flattypes.ColumnType) (any, int, error) {
	need := func(n int) error {
		if len(b) < n {
			return fmt.Errorf("need %d bytes, have %d", n, len(b))
		}
		return nil
	}

	switch t {
	case flattypes.ColumnTypeBool:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return b[0] != 0, 1, nil
	case flattypes.ColumnTypeByte:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return float64(int8(b[0])), 1, nil
	case flattypes.ColumnTypeUByte:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return float64(b[0]), 1, nil
	case flattypes.ColumnTypeShort:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return float64(int16(binary.LittleEndian.Uint16(b))), 2, nil
	case flattypes.ColumnTypeUShort:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return float64(binary.LittleEndian.Uint16(b)), 2, nil
	case flattypes.ColumnTypeInt:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return float64(int32(binary.LittleEndian.Uint32(b))), 4, nil
	case flattypes.ColumnTypeUInt:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return float64(binary.LittleEndian.Uint32(b)), 4, nil
	case flattypes.ColumnTypeLong:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return float64(int64(binary.LittleEndian.Uint64(b))), 8, nil
	case flattypes.ColumnTypeULong:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return float64(binary.LittleEndian.Uint64(b)), 8, nil
	case flattypes.ColumnTypeFloat:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), 4, nil
	case flattypes.ColumnTypeDouble:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), 8, nil
	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime, flattypes.ColumnTypeJson:
		// Variable-length values carry a uint32 byte length prefix.
		if err := need(4); err != nil {
			return nil, 0, err
		}
		n := int(binary.LittleEndian.Uint32(b))
		if err := need(4 + n); err != nil {
			return nil, 0, err
		}
		s := b[4 : 4+n]
		if t == flattypes.ColumnTypeJson {
			var v any
			if err := json.NewDecoder(bytes.NewReader(s)).Decode(&v); err != nil {
				return string(s), 4 + n, nil
			}
			return v, 4 + n, nil
		}
		return string(s), 4 + n, nil
	case flattypes.ColumnTypeBinary:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		n := int(binary.LittleEndian.Uint32(b))
		if err := need(4 + n); err != nil {
			return nil, 0, err
		}
		return append([]byte(nil), b[4:4+n]...), 4 + n, nil
	}
	return nil, 0, fmt.Errorf("unsupported column type %d", t)
}
