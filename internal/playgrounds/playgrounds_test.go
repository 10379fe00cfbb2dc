package playgrounds_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
	"github.com/accessmaps/parks-api/internal/playgrounds"
	"github.com/accessmaps/parks-api/internal/store"
)

type fakeStore struct {
	rows   map[int64]store.PlaygroundHit
	nextID int64
}

func (f *fakeStore) CreatePlayground(_ context.Context, name string, p orb.Point) (store.PlaygroundHit, error) {
	f.nextID++
	hit := store.PlaygroundHit{ID: f.nextID, Name: name, Source: store.ManualSource, Geom: store.GeoJSON{Geom: p}}
	f.rows[hit.ID] = hit
	return hit, nil
}

func (f *fakeStore) GetPlayground(_ context.Context, id int64) (store.PlaygroundHit, error) {
	hit, ok := f.rows[id]
	if !ok {
		return store.PlaygroundHit{}, apperrors.NotFound("playground", id)
	}
	return hit, nil
}

func (f *fakeStore) UpdatePlaygroundName(_ context.Context, id int64, name string) (store.Renamed, error) {
	hit, ok := f.rows[id]
	if !ok {
		return store.Renamed{}, apperrors.NotFound("playground", id)
	}
	hit.Name = name
	f.rows[id] = hit
	return store.Renamed{ID: id, Name: name}, nil
}

func (f *fakeStore) DeletePlayground(_ context.Context, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return apperrors.NotFound("playground", id)
	}
	delete(f.rows, id)
	return nil
}

func setup() (*fakeStore, http.Handler) {
	f := &fakeStore{rows: map[int64]store.PlaygroundHit{}}
	r := chi.NewRouter()
	playgrounds.NewHandler(playgrounds.NewService(f)).Routes(r)
	return f, r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestCreate(t *testing.T) {
	f, h := setup()

	rec := do(h, http.MethodPost, "/playgrounds", `{"lat": 53.34, "lng": -6.26}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"created":{"id":1,"name":"Playground","source":"Manual","geom":{"type":"Point","coordinates":[-6.26,53.34]}}}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/playgrounds", `{"name": "  Swings ", "lat": "1", "lng": "2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Swings", f.rows[2].Name)
}

func TestCreate_Invalid(t *testing.T) {
	f, h := setup()
	for _, body := range []string{
		`{"name": "x", "lng": 1}`,
		`{"name": "x", "lat": "north", "lng": 1}`,
		`{"name": "x", "lat": 1, "lng": 190}`,
		`not json`,
	} {
		rec := do(h, http.MethodPost, "/playgrounds", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, f.rows)
}

func TestUpdateGetDelete(t *testing.T) {
	_, h := setup()
	require.Equal(t, http.StatusCreated, do(h, http.MethodPost, "/playgrounds", `{"lat":0,"lng":0}`).Code)

	rec := do(h, http.MethodPatch, "/playgrounds/1", `{"name":"Slides"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":{"id":1,"name":"Slides"}}`, rec.Body.String())

	rec = do(h, http.MethodPatch, "/playgrounds/1", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name required")
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPatch, "/playgrounds/1", `{}`).Code)

	rec = do(h, http.MethodGet, "/playgrounds/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Slides"`)

	rec = do(h, http.MethodDelete, "/playgrounds/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":1}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/playgrounds/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPatch, "/playgrounds/1", `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/playgrounds/1", "").Code)
}
