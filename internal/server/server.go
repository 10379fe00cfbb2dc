// Package server assembles the HTTP router and runs it until shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/accessmaps/parks-api/internal/access"
	"github.com/accessmaps/parks-api/internal/admin"
	"github.com/accessmaps/parks-api/internal/config"
	"github.com/accessmaps/parks-api/internal/geo"
	"github.com/accessmaps/parks-api/internal/httputil"
	"github.com/accessmaps/parks-api/internal/ingest"
	"github.com/accessmaps/parks-api/internal/logger"
	"github.com/accessmaps/parks-api/internal/metrics"
	"github.com/accessmaps/parks-api/internal/middleware"
	"github.com/accessmaps/parks-api/internal/playgrounds"
	"github.com/accessmaps/parks-api/internal/spatial"
	"github.com/accessmaps/parks-api/internal/store"
)

const (
	limiterIdle     = 10 * time.Minute
	shutdownTimeout = 15 * time.Second
	healthTimeout   = 2 * time.Second
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers are the route groups served under /api and /admin.
type Handlers struct {
	Spatial     *spatial.Handler
	Access      *access.Handler
	Playgrounds *playgrounds.Handler
	Admin       *admin.Handler
	Health      Pinger
}

// NewHandlers wires every route group to st.
func NewHandlers(st *store.Store, s *config.Settings) Handlers {
	pipeline := ingest.NewPipeline(st, ingest.Config{
		DefaultSource: s.Ingest.DefaultSource,
		Geometry:      geo.Options{PolygonBoundaries: s.Ingest.RoutePolygonBoundaries},
	})
	return Handlers{
		Spatial:     spatial.NewHandler(spatial.NewEngine(st, s.Query.MaxRadiusM)),
		Access:      access.NewHandler(access.NewService(st, s.Query.MaxRadiusM)),
		Playgrounds: playgrounds.NewHandler(playgrounds.NewService(st)),
		Admin:       admin.NewHandler(st, pipeline, s.Ingest.MaxDownloadBytes),
		Health:      st,
	}
}

// NewRouter builds the full route tree.
func NewRouter(s *config.Settings, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(s.Server.AllowedOrigins))

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.Server.RateLimitRPS, s.Server.RateLimitBurst, limiterIdle))

		r.Get("/health", health(h.Health))
		h.Spatial.Routes(r)
		h.Access.Routes(r)
		h.Playgrounds.Routes(r)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminToken(s.Admin.TokenHash))
		h.Admin.Routes(r)
	})

	return r
}

func health(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		start := time.Now()
		if err := p.Ping(ctx); err != nil {
			logger.Module("http").Warn("health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.AddServerTiming(w, "db", start)
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Run serves handler on the configured port until ctx is cancelled, then
// drains in-flight requests.
func Run(ctx context.Context, s *config.Settings, handler http.Handler) error {
	srv := &http.Server{
		Addr:              "0.0.0.0:" + s.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.Server.ReadTimeout,
		WriteTimeout:      s.Server.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Module("http").Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Module("http").Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
