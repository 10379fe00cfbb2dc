// Package admin exposes the maintenance endpoints: collection reloads from an
// uploaded FeatureCollection, route deletion and table counts.
package admin

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/accessmaps/parks-api/internal/accessibility"
	apperrors "github.com/accessmaps/parks-api/internal/errors"
	"github.com/accessmaps/parks-api/internal/geo"
	"github.com/accessmaps/parks-api/internal/httputil"
	"github.com/accessmaps/parks-api/internal/ingest"
	"github.com/accessmaps/parks-api/internal/logger"
	"github.com/accessmaps/parks-api/internal/store"
	"github.com/accessmaps/parks-api/internal/utils"
)

type Store interface {
	DeleteRoute(ctx context.Context, id int64) (store.RouteDeletion, error)
	Counts(ctx context.Context) (store.Counts, error)
}

type Handler struct {
	store    Store
	pipeline *ingest.Pipeline
	maxBody  int64
}

func NewHandler(s Store, p *ingest.Pipeline, maxBodyBytes int64) *Handler {
	return &Handler{store: s, pipeline: p, maxBody: maxBodyBytes}
}

// Reload handles POST /reload/{collection}?dry_run= with a GeoJSON
// FeatureCollection body and answers with the reload report.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	kind, err := geo.ParseKind(chi.URLParam(r, "collection"))
	if err != nil {
		httputil.WriteError(w, r, apperrors.ValidationError("%v", err))
		return
	}
	dryRun, err := accessibility.ParseTriState(r.URL.Query().Get("dry_run"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		httputil.WriteError(w, r, apperrors.ValidationError("read body: %v", err))
		return
	}

	src := &ingest.GeoJSONBytes{Label: "upload:" + string(kind), Data: body}
	report, err := h.pipeline.WithDryRun(dryRun.IsTrue()).Reload(r.Context(), kind, src)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// DeleteRoute handles DELETE /routes/{id}. The route's issues go with it.
func (h *Handler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	res, err := h.store.DeleteRoute(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	logger.Module("admin").Info("route deleted", "id", id, "issues_removed", res.IssuesRemoved)
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": id, "issues_removed": res.IssuesRemoved})
}

func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Counts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// Routes registers the admin endpoints on r, which is mounted at /admin
// behind the admin token check. Requests that reach r without a verified
// token in their context are refused.
func (h *Handler) Routes(r chi.Router) {
	r.Use(requireAdmin)
	r.Post("/reload/{collection}", h.Reload)
	r.Delete("/routes/{id}", h.DeleteRoute)
	r.Get("/counts", h.Counts)
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !utils.IsAdmin(r.Context()) {
			logger.Module("admin").Warn("admin route reached without verified token", "path", r.URL.Path)
			httputil.WriteJSON(w, http.StatusForbidden, map[string]string{"error": "admin token required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
