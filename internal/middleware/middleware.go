package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/accessmaps/parks-api/internal/httputil"
	"github.com/accessmaps/parks-api/internal/logger"
	"github.com/accessmaps/parks-api/internal/metrics"
	"github.com/accessmaps/parks-api/internal/utils"
)

// AdminTokenHeader carries the plain admin token.
const AdminTokenHeader = "X-Admin-Token"

// CORS echoes the request origin back when it is in allowed. A "*" entry allows any origin.
func CORS(allowed []string) func(http.Handler) http.Handler {
	origins := make(map[string]struct{}, len(allowed))
	anyOrigin := false
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			anyOrigin = true
		}
		origins[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			_, ok := origins[origin]
			if origin != "" && (ok || anyOrigin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+AdminTokenHeader)
			}
			w.Header().Set("Access-Control-Expose-Headers", "Server-Timing, Retry-After, X-Request-Id")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminToken admits requests whose X-Admin-Token matches the bcrypt hash.
// With no hash configured the admin surface does not exist and answers 404.
func AdminToken(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hash == "" {
				http.NotFound(w, r)
				return
			}

			token := r.Header.Get(AdminTokenHeader)
			if token == "" {
				httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "admin token required"})
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
				logger.Module("http").Warn("admin token rejected", "path", r.URL.Path, "remote", clientKey(r))
				httputil.WriteJSON(w, http.StatusForbidden, map[string]string{"error": "invalid admin token"})
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithAdmin(r.Context())))
		})
	}
}

type limiterStore struct {
	limit rate.Limit
	burst int
	c     *cache.Cache
}

// get returns the client's limiter and pushes back its idle expiry.
func (s *limiterStore) get(key string) *rate.Limiter {
	if v, ok := s.c.Get(key); ok {
		lim := v.(*rate.Limiter)
		s.c.SetDefault(key, lim)
		return lim
	}
	lim := rate.NewLimiter(s.limit, s.burst)
	if err := s.c.Add(key, lim, cache.DefaultExpiration); err != nil {
		// another request created it first
		if v, ok := s.c.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// RateLimit applies a token bucket per client address. rps <= 0 disables it.
// Limiters for clients idle longer than idle are dropped.
func RateLimit(rps float64, burst int, idle time.Duration) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	store := &limiterStore{
		limit: rate.Limit(rps),
		burst: burst,
		c:     cache.New(idle, 2*idle),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.get(clientKey(r)).Allow() {
				metrics.RateLimited.Inc()
				w.Header().Set("Retry-After", "1")
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AccessLog logs one line per request once the response is written.
func AccessLog(next http.Handler) http.Handler {
	log := logger.Module("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}
