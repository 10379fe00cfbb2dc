package spatial

import (
	"net/http"
	"time"

	"github.com/accessmaps/parks-api/internal/accessibility"
	"github.com/accessmaps/parks-api/internal/httputil"
)

type Handler struct {
	engine *Engine
}

func NewHandler(e *Engine) *Handler {
	return &Handler{engine: e}
}

// ParksWithin handles GET /parks/within?lat=&lng=&radius_m=
func (h *Handler) ParksWithin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	center, err := ParseCenter(q)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	radius, err := ParseRadius(q, DefaultParkRadiusM)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	start := time.Now()
	hits, err := h.engine.ParksWithin(r.Context(), center, radius)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.AddServerTiming(w, "db", start)
	httputil.WriteFeatures(w, hits)
}

// ParkContaining handles GET /parks/containing?lat=&lng=
func (h *Handler) ParkContaining(w http.ResponseWriter, r *http.Request) {
	center, err := ParseCenter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	start := time.Now()
	hits, err := h.engine.ParkContaining(r.Context(), center)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.AddServerTiming(w, "db", start)
	httputil.WriteFeatures(w, hits)
}

func (h *Handler) SearchParks(w http.ResponseWriter, r *http.Request) {
	hits, err := h.engine.SearchParks(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteFeatures(w, hits)
}

// RoutesWithin handles GET /routes/within?lat=&lng=&radius_m=
func (h *Handler) RoutesWithin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	center, err := ParseCenter(q)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	radius, err := ParseRadius(q, DefaultRouteRadiusM)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	start := time.Now()
	hits, err := h.engine.RoutesWithin(r.Context(), center, radius)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.AddServerTiming(w, "db", start)
	httputil.WriteFeatures(w, hits)
}

// AccessibleRoutesWithin handles GET /access/routes/within?lat=&lng=&radius_m=&accessible_only=
func (h *Handler) AccessibleRoutesWithin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	center, err := ParseCenter(q)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	radius, err := ParseRadius(q, DefaultRouteRadiusM)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	only, err := accessibility.ParseTriState(q.Get("accessible_only"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	start := time.Now()
	hits, err := h.engine.AccessibleRoutesWithin(r.Context(), center, radius, only.IsTrue())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.AddServerTiming(w, "db", start)
	httputil.WriteFeatures(w, hits)
}

// RoutesIntersectingPark handles GET /routes/intersecting_park?park_id=
func (h *Handler) RoutesIntersectingPark(w http.ResponseWriter, r *http.Request) {
	parkID, err := ParseID(r.URL.Query(), "park_id")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	start := time.Now()
	hits, err := h.engine.RoutesIntersectingPark(r.Context(), parkID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.AddServerTiming(w, "db", start)
	httputil.WriteFeatures(w, hits)
}

// NearestPlaygrounds handles GET /playgrounds/nearest?lat=&lng=&limit=
func (h *Handler) NearestPlaygrounds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	center, err := ParseCenter(q)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	k, err := ParseInt(q, "limit", DefaultNearestK)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	start := time.Now()
	hits, err := h.engine.NearestPlaygrounds(r.Context(), center, k)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.AddServerTiming(w, "db", start)
	httputil.WriteFeatures(w, hits)
}

func (h *Handler) SearchPlaygrounds(w http.ResponseWriter, r *http.Request) {
	hits, err := h.engine.SearchPlaygrounds(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteFeatures(w, hits)
}
