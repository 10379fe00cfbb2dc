package access_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessmaps/parks-api/internal/access"
	apperrors "github.com/accessmaps/parks-api/internal/errors"
	"github.com/accessmaps/parks-api/internal/store"
)

type fakeStore struct {
	created  []store.NewIssue
	near     []store.RadiusQuery
	deleted  []int64
	routes   map[int64]bool
	issues   map[int64]store.Issue
	nextID   int64
	createAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		routes:   map[int64]bool{1: true},
		issues:   map[int64]store.Issue{},
		createAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) CreateIssue(_ context.Context, in store.NewIssue) (store.CreatedIssue, error) {
	if !f.routes[in.RouteID] {
		return store.CreatedIssue{}, apperrors.NotFound("route", in.RouteID)
	}
	f.nextID++
	f.created = append(f.created, in)
	f.issues[f.nextID] = store.Issue{ID: f.nextID, RouteID: in.RouteID, IssueType: in.IssueType, Lat: in.Lat, Lng: in.Lng}
	return store.CreatedIssue{ID: f.nextID, CreatedAt: f.createAt}, nil
}

func (f *fakeStore) GetIssue(_ context.Context, id int64) (store.Issue, error) {
	is, ok := f.issues[id]
	if !ok {
		return store.Issue{}, apperrors.NotFound("issue", id)
	}
	return is, nil
}

func (f *fakeStore) DeleteIssue(_ context.Context, id int64) error {
	if _, ok := f.issues[id]; !ok {
		return apperrors.NotFound("issue", id)
	}
	delete(f.issues, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) IssuesNear(_ context.Context, rq store.RadiusQuery) ([]store.Issue, error) {
	f.near = append(f.near, rq)
	return nil, nil
}

func newServer(f *fakeStore) http.Handler {
	r := chi.NewRouter()
	access.NewHandler(access.NewService(f, 50000)).Routes(r)
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestCreate_Defaults(t *testing.T) {
	f := newFakeStore()
	rec := do(newServer(f), http.MethodPost, "/access/issues", `{"route_id": 1, "lat": 53.34, "lng": -6.26}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"created":{"id":1,"created_at":"2026-05-01T12:00:00Z"}}`, rec.Body.String())
	require.Len(t, f.created, 1)
	assert.Equal(t, "issue", f.created[0].IssueType)
	assert.Equal(t, "", f.created[0].Description)
	assert.InDelta(t, -6.26, f.created[0].Lng, 0)
}

func TestCreate_StringNumbersAccepted(t *testing.T) {
	f := newFakeStore()
	rec := do(newServer(f), http.MethodPost, "/access/issues",
		`{"route_id": "1", "issue_type": "blocked_ramp", "description": "kerb", "lat": "53.3", "lng": "-6.2"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "blocked_ramp", f.created[0].IssueType)
	assert.Equal(t, "kerb", f.created[0].Description)
}

func TestCreate_Rejections(t *testing.T) {
	cases := map[string]struct {
		body string
		msg  string
	}{
		"missing route":    {`{"lat": 1, "lng": 1}`, "route_id is required"},
		"route not int":    {`{"route_id": "abc", "lat": 1, "lng": 1}`, "route_id must be an integer"},
		"unknown route":    {`{"route_id": 99, "lat": 1, "lng": 1}`, "route not found"},
		"missing lat":      {`{"route_id": 1, "lng": 1}`, "lat is required"},
		"lat not numeric":  {`{"route_id": 1, "lat": "north", "lng": 1}`, "lat must be a number"},
		"lat out of range": {`{"route_id": 1, "lat": 95, "lng": 1}`, "lat must be within"},
		"malformed":        {`{"route_id": `, "invalid body"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFakeStore()
			rec := do(newServer(f), http.MethodPost, "/access/issues", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.msg)
			assert.Empty(t, f.created)
		})
	}
}

func TestGetAndDelete(t *testing.T) {
	f := newFakeStore()
	h := newServer(f)
	require.Equal(t, http.StatusCreated, do(h, http.MethodPost, "/access/issues", `{"route_id":1,"lat":0,"lng":0}`).Code)

	rec := do(h, http.MethodGet, "/access/issues/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"route_id":1`)

	rec = do(h, http.MethodDelete, "/access/issues/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":1}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/access/issues/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/access/issues/1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/access/issues/abc", "").Code)
}

func TestNear_DefaultsAndValidation(t *testing.T) {
	f := newFakeStore()
	h := newServer(f)

	rec := do(h, http.MethodGet, "/access/issues/near?lat=53.3&lng=-6.2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"features":[]}`, rec.Body.String())
	require.Len(t, f.near, 1)
	assert.Equal(t, orb.Point{-6.2, 53.3}, f.near[0].Center)
	assert.InDelta(t, 500, f.near[0].RadiusM, 0)
	assert.Equal(t, 200, f.near[0].Limit)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/access/issues/near?lat=1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/access/issues/near?lat=1&lng=1&radius_m=-5", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/access/issues/near?lat=1&lng=1&radius_m=60000", "").Code)
	assert.Len(t, f.near, 1)
}
