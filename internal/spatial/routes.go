package spatial

import (
	"github.com/go-chi/chi/v5"
)

// Routes registers the read-only query endpoints on r, which is mounted at /api.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/parks/within", h.ParksWithin)
	r.Get("/parks/containing", h.ParkContaining)
	r.Get("/parks/search", h.SearchParks)

	r.Get("/routes/within", h.RoutesWithin)
	r.Get("/routes/intersecting_park", h.RoutesIntersectingPark)
	r.Get("/access/routes/within", h.AccessibleRoutesWithin)

	r.Get("/playgrounds/nearest", h.NearestPlaygrounds)
	r.Get("/playgrounds/search", h.SearchPlaygrounds)
}
