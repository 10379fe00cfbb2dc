package playgrounds

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"

	"github.com/accessmaps/parks-api/internal/httputil"
)

const maxBodyBytes = 16 << 10

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	Name *string         `json:"name"`
	Lat  httputil.Number `json:"lat"`
	Lng  httputil.Number `json:"lng"`
}

type updateRequest struct {
	Name *string `json:"name"`
}

// Create handles POST /playgrounds with {"name", "lat", "lng"}.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httputil.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	lat, err := req.Lat.Float("lat")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	lng, err := req.Lng.Float("lng")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var name string
	if req.Name != nil {
		name = *req.Name
	}

	hit, err := h.svc.Create(r.Context(), name, orb.Point{lng, lat})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"created": hit})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	hit, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, hit)
}

// Update handles PATCH /playgrounds/{id} with {"name"}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var req updateRequest
	if err := httputil.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var name string
	if req.Name != nil {
		name = *req.Name
	}

	renamed, err := h.svc.Rename(r.Context(), id, name)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"updated": renamed})
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

// Routes registers the manual playground endpoints on r, which is mounted at /api.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/playgrounds", h.Create)
	r.Get("/playgrounds/{id}", h.Get)
	r.Patch("/playgrounds/{id}", h.Update)
	r.Delete("/playgrounds/{id}", h.Delete)
}
