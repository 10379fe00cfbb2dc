package ingest

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessmaps/parks-api/internal/accessibility"
	apperrors "github.com/accessmaps/parks-api/internal/errors"
	"github.com/accessmaps/parks-api/internal/geo"
	"github.com/accessmaps/parks-api/internal/store"
)

type fakeStore struct {
	parks       []store.ParkRow
	playgrounds []store.PlaygroundRow
	routes      []store.RouteRow
	calls       int
	err         error
}

func (f *fakeStore) ReplaceParks(_ context.Context, rows []store.ParkRow) (store.ReplaceResult, error) {
	f.calls++
	if f.err != nil {
		return store.ReplaceResult{}, f.err
	}
	prev := len(f.parks)
	f.parks = rows
	return store.ReplaceResult{Replaced: int64(prev), Inserted: len(rows)}, nil
}

func (f *fakeStore) ReplacePlaygrounds(_ context.Context, rows []store.PlaygroundRow) (store.ReplaceResult, error) {
	f.calls++
	if f.err != nil {
		return store.ReplaceResult{}, f.err
	}
	prev := len(f.playgrounds)
	f.playgrounds = rows
	return store.ReplaceResult{Replaced: int64(prev), Inserted: len(rows)}, nil
}

func (f *fakeStore) ReplaceRoutes(_ context.Context, rows []store.RouteRow) (store.ReplaceResult, error) {
	f.calls++
	if f.err != nil {
		return store.ReplaceResult{}, f.err
	}
	prev := len(f.routes)
	f.routes = rows
	return store.ReplaceResult{Replaced: int64(prev), Inserted: len(rows), IssuesRemoved: 2}, nil
}

func src(doc string) FeatureSource {
	return &GeoJSONBytes{Label: "test", Data: []byte(doc)}
}

const parksDoc = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": 7, "properties": {"NAME": "Phoenix Park", "TYPE": "Regional", "AREA_HA": "707"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0.01,0],[0.01,0.01],[0,0.01],[0,0]]]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[1,1],[1.01,1],[1.01,1.01],[1,1]]]]}},
    {"type": "Feature", "properties": {"name": "Point park"},
     "geometry": {"type": "Point", "coordinates": [0,0]}},
    {"type": "Feature", "properties": {"name": "Nowhere"}, "geometry": null},
    {"type": "Feature", "properties": {}, "geometry": {"type": "Circle", "coordinates": [0,0]}},
    {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": "oops"}}
  ]
}`

func TestReload_Parks(t *testing.T) {
	fs := &fakeStore{}
	p := NewPipeline(fs, Config{})

	report, err := p.Reload(context.Background(), geo.KindPark, src(parksDoc))
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 6, report.Read)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 4, report.Skipped)
	require.Len(t, report.Skips, 4)

	reasons := map[int]string{}
	for _, s := range report.Skips {
		reasons[s.Index] = s.Reason
	}
	assert.Equal(t, string(geo.ReasonUnsupportedGeometry), reasons[2])
	assert.Equal(t, string(geo.ReasonMissingGeometry), reasons[3])
	assert.Equal(t, string(geo.ReasonUnsupportedGeometry), reasons[4])
	assert.Equal(t, ReasonMalformed, reasons[5])

	require.Len(t, fs.parks, 2)
	first := fs.parks[0]
	assert.Equal(t, "Phoenix Park", first.Name)
	require.NotNil(t, first.Category)
	assert.Equal(t, "Regional", *first.Category)
	require.NotNil(t, first.AreaHa)
	assert.InDelta(t, 707.0, *first.AreaHa, 0.0001)
	assert.Len(t, first.Geom, 1)

	second := fs.parks[1]
	assert.Equal(t, "Park", second.Name)
	assert.Nil(t, second.Category)
	require.NotNil(t, second.AreaHa)
	assert.Greater(t, *second.AreaHa, 0.0)
}

func TestReload_ParkAreaFallsBackToGeometry(t *testing.T) {
	doc := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {"name": "A", "area_ha": "NaN"},
	   "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0.01,0],[0.01,0.01],[0,0.01],[0,0]]]}},
	  {"type": "Feature", "properties": {"name": "B", "area_ha": "-Inf", "AREA_HA": 3.5},
	   "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0.01,0],[0.01,0.01],[0,0.01],[0,0]]]}},
	  {"type": "Feature", "properties": {"name": "C", "area_ha": -2},
	   "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0.01,0],[0.01,0.01],[0,0.01],[0,0]]]}}
	]}`
	fs := &fakeStore{}
	_, err := NewPipeline(fs, Config{}).Reload(context.Background(), geo.KindPark, src(doc))
	require.NoError(t, err)
	require.Len(t, fs.parks, 3)

	computed := geo.AreaHectares(fs.parks[0].Geom)
	require.NotNil(t, fs.parks[0].AreaHa)
	assert.False(t, math.IsNaN(*fs.parks[0].AreaHa))
	assert.InDelta(t, computed, *fs.parks[0].AreaHa, 1e-9)
	assert.InDelta(t, 3.5, *fs.parks[1].AreaHa, 0)
	assert.InDelta(t, computed, *fs.parks[2].AreaHa, 1e-9)
}

func TestSkip_ErrIsIngestRow(t *testing.T) {
	err := Skip{Index: 4, FeatureID: "w12", Reason: "too_short", Detail: "length 0.4 m"}.Err()

	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryIngestRow))
	assert.False(t, apperrors.IsValidation(err))
	assert.Equal(t, "feature 4 rejected: too_short: length 0.4 m", err.Error())

	var ee *apperrors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 4, ee.GetContext()["index"])
	assert.Equal(t, "w12", ee.GetContext()["feature_id"])

	_, hasID := Skip{Index: 1, Reason: ReasonMalformed}.Err().(*apperrors.EnhancedError).GetContext()["feature_id"]
	assert.False(t, hasID)
}

func TestReload_Idempotent(t *testing.T) {
	fs := &fakeStore{}
	p := NewPipeline(fs, Config{})

	_, err := p.Reload(context.Background(), geo.KindPark, src(parksDoc))
	require.NoError(t, err)
	firstRows := fs.parks

	report, err := p.Reload(context.Background(), geo.KindPark, src(parksDoc))
	require.NoError(t, err)
	assert.EqualValues(t, 2, report.Replaced)
	assert.Equal(t, firstRows, fs.parks)
}

func TestReload_RoutesClassifiedAndMerged(t *testing.T) {
	doc := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {"highway": "footway", "SURFACE": "Paving Stones", "is_accessible": false},
	   "geometry": {"type": "LineString", "coordinates": [[0,0],[0.001,0]]}},
	  {"type": "Feature", "properties": {"name": "Loop", "surface": "asphalt", "smoothness": "bad", "source": "council"},
	   "geometry": {"type": "MultiLineString", "coordinates": [[[0,0],[1,0]], [[2,0],[1,0]]]}},
	  {"type": "Feature", "properties": {"is_accessible": true},
	   "geometry": {"type": "LineString", "coordinates": [[0,0],[0,1]]}},
	  {"type": "Feature", "properties": {},
	   "geometry": {"type": "MultiLineString", "coordinates": [[[0,0],[1,0]], [[5,5],[6,6]]]}},
	  {"type": "Feature", "properties": {},
	   "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}}
	]}`

	fs := &fakeStore{}
	report, err := NewPipeline(fs, Config{}).Reload(context.Background(), geo.KindRoute, src(doc))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Inserted)
	assert.EqualValues(t, 2, report.IssuesRemoved)
	require.Len(t, report.Skips, 2)
	assert.Equal(t, string(geo.ReasonDisconnected), report.Skips[0].Reason)
	assert.Equal(t, string(geo.ReasonUnsupportedGeometry), report.Skips[1].Reason)

	require.Len(t, fs.routes, 3)
	assert.Equal(t, "footway", fs.routes[0].Name)
	assert.Equal(t, "OSM", fs.routes[0].Source)
	assert.Equal(t, accessibility.Accessible, fs.routes[0].Access)

	assert.Equal(t, "Loop", fs.routes[1].Name)
	assert.Equal(t, "council", fs.routes[1].Source)
	assert.Equal(t, accessibility.NotAccessible, fs.routes[1].Access)
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}, {2, 0}}, fs.routes[1].Geom)

	assert.Equal(t, "Footway", fs.routes[2].Name)
	assert.Equal(t, accessibility.Unknown, fs.routes[2].Access, "input is_accessible is ignored")
}

func TestReload_RoutePolygonBoundariesOptIn(t *testing.T) {
	doc := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {},
	   "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}}
	]}`

	fs := &fakeStore{}
	p := NewPipeline(fs, Config{}).WithGeometryOptions(geo.Options{PolygonBoundaries: true})
	report, err := p.Reload(context.Background(), geo.KindRoute, src(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	require.Len(t, fs.routes, 1)
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, fs.routes[0].Geom)
}

func TestReload_Playgrounds(t *testing.T) {
	doc := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {"Name": "Swings"}, "geometry": {"type": "Point", "coordinates": [-6.26, 53.34]}},
	  {"type": "Feature", "properties": {"SOURCE": "council", "name": 42}, "geometry": {"type": "Point", "coordinates": [-6.2, 53.3]}},
	  {"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [-200, 53.3]}}
	]}`

	fs := &fakeStore{}
	report, err := NewPipeline(fs, Config{DefaultSource: "import"}).Reload(context.Background(), geo.KindPlayground, src(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
	require.Len(t, report.Skips, 1)
	assert.Equal(t, string(geo.ReasonInvalidCoordinates), report.Skips[0].Reason)

	assert.Equal(t, "Swings", fs.playgrounds[0].Name)
	assert.Equal(t, "import", fs.playgrounds[0].Source)
	assert.Equal(t, "42", fs.playgrounds[1].Name)
	assert.Equal(t, "council", fs.playgrounds[1].Source)
}

func TestReload_DryRunDoesNotWrite(t *testing.T) {
	fs := &fakeStore{}
	report, err := NewPipeline(fs, Config{DryRun: true}).Reload(context.Background(), geo.KindPark, src(parksDoc))
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Inserted)
	assert.Zero(t, fs.calls)
}

func TestReload_StoreFailureIsReturned(t *testing.T) {
	fs := &fakeStore{err: apperrors.New(errors.New("deadlock")).Category(apperrors.CategoryIngestTx).Build()}
	_, err := NewPipeline(fs, Config{}).Reload(context.Background(), geo.KindPark, src(parksDoc))
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryIngestTx))
}

func TestReload_BadDocumentFailsSource(t *testing.T) {
	fs := &fakeStore{}
	_, err := NewPipeline(fs, Config{}).Reload(context.Background(), geo.KindPark, src(`{"type":"Feature"}`))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Zero(t, fs.calls)

	_, err = NewPipeline(fs, Config{}).Reload(context.Background(), geo.KindPark, src(`not json`))
	assert.True(t, apperrors.IsValidation(err))
}

func TestReload_EmptyCollectionReplaces(t *testing.T) {
	fs := &fakeStore{parks: []store.ParkRow{{Name: "old"}}}
	report, err := NewPipeline(fs, Config{}).Reload(context.Background(), geo.KindPark,
		src(`{"type":"FeatureCollection","features":[]}`))
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.Replaced)
	assert.Empty(t, fs.parks)
}
