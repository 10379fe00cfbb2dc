package access

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/accessmaps/parks-api/internal/httputil"
	"github.com/accessmaps/parks-api/internal/spatial"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	RouteID     httputil.Number `json:"route_id"`
	IssueType   *string         `json:"issue_type"`
	Description *string         `json:"description"`
	Lat         httputil.Number `json:"lat"`
	Lng         httputil.Number `json:"lng"`
}

func (c createRequest) report() (Report, error) {
	var (
		r   Report
		err error
	)
	if r.RouteID, err = c.RouteID.Int("route_id"); err != nil {
		return Report{}, err
	}
	if r.Lat, err = c.Lat.Float("lat"); err != nil {
		return Report{}, err
	}
	if r.Lng, err = c.Lng.Float("lng"); err != nil {
		return Report{}, err
	}
	if c.IssueType != nil {
		r.IssueType = *c.IssueType
	}
	if c.Description != nil {
		r.Description = *c.Description
	}
	return r, nil
}

// Create handles POST /access/issues.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httputil.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	report, err := req.report()
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	created, err := h.svc.Create(r.Context(), report)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"created": created})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	issue, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, issue)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

// Near handles GET /access/issues/near?lat=&lng=&radius_m=
func (h *Handler) Near(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	center, err := spatial.ParseCenter(q)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	radius, err := spatial.ParseRadius(q, DefaultNearRadiusM)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	issues, err := h.svc.Near(r.Context(), center, radius)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteFeatures(w, issues)
}

// Routes registers the issue endpoints on r, which is mounted at /api.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/access/issues", h.Create)
	r.Get("/access/issues/near", h.Near)
	r.Get("/access/issues/{id}", h.Get)
	r.Delete("/access/issues/{id}", h.Delete)
}
