package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/accessmaps/parks-api/internal/access"
	"github.com/accessmaps/parks-api/internal/admin"
	"github.com/accessmaps/parks-api/internal/config"
	"github.com/accessmaps/parks-api/internal/ingest"
	"github.com/accessmaps/parks-api/internal/playgrounds"
	"github.com/accessmaps/parks-api/internal/spatial"
	"github.com/accessmaps/parks-api/internal/store"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func settings(t *testing.T, adminToken string) *config.Settings {
	t.Helper()
	s := &config.Settings{
		Server: config.Server{Port: "0", AllowedOrigins: []string{"https://maps.example.org"}},
		Query:  config.Query{MaxRadiusM: 50000},
	}
	if adminToken != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
		require.NoError(t, err)
		s.Admin.TokenHash = string(h)
	}
	return s
}

func router(t *testing.T, s *config.Settings, ping error) http.Handler {
	t.Helper()
	// Every request below is rejected before it reaches the store.
	var st *store.Store
	h := Handlers{
		Spatial:     spatial.NewHandler(spatial.NewEngine(st, s.Query.MaxRadiusM)),
		Access:      access.NewHandler(access.NewService(st, s.Query.MaxRadiusM)),
		Playgrounds: playgrounds.NewHandler(playgrounds.NewService(st)),
		Admin:       admin.NewHandler(st, ingest.NewPipeline(st, ingest.Config{}), 1<<20),
		Health:      pinger{err: ping},
	}
	return NewRouter(s, h)
}

func serve(h http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(router(t, settings(t, ""), nil), http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(router(t, settings(t, ""), errors.New("down")), http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestValidationRoutesWired(t *testing.T) {
	h := router(t, settings(t, ""), nil)
	for _, target := range []string{
		"/api/parks/within",
		"/api/parks/containing?lat=1",
		"/api/routes/within?lng=1",
		"/api/routes/intersecting_park",
		"/api/access/routes/within",
		"/api/access/issues/near",
		"/api/playgrounds/nearest",
		"/api/playgrounds/abc",
	} {
		assert.Equal(t, http.StatusBadRequest, serve(h, http.MethodGet, target, nil).Code, target)
	}
}

func TestAdminHiddenWithoutHash(t *testing.T) {
	h := router(t, settings(t, ""), nil)
	rec := serve(h, http.MethodGet, "/admin/counts", map[string]string{"X-Admin-Token": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	h := router(t, settings(t, "letmein"), nil)
	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, "/admin/counts", nil).Code)
	assert.Equal(t, http.StatusForbidden,
		serve(h, http.MethodGet, "/admin/counts", map[string]string{"X-Admin-Token": "nope"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		serve(h, http.MethodPost, "/admin/reload/lakes", map[string]string{"X-Admin-Token": "letmein"}).Code)
}

func TestCORSPreflight(t *testing.T) {
	h := router(t, settings(t, ""), nil)
	rec := serve(h, http.MethodOptions, "/api/parks/within", map[string]string{"Origin": "https://maps.example.org"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://maps.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsServed(t *testing.T) {
	rec := serve(router(t, settings(t, ""), nil), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "parks_rate_limited_total")
}
