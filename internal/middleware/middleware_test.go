package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/crypto/bcrypt"

	"github.com/accessmaps/parks-api/internal/metrics"
	"github.com/accessmaps/parks-api/internal/middleware"
	"github.com/accessmaps/parks-api/internal/utils"
)

// call wraps a 200-OK inner handler in mw and serves one request built by prep.
func call(t *testing.T, mw func(http.Handler) http.Handler, method string, prep func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if utils.IsAdmin(r.Context()) {
			w.Header().Set("X-Test-Admin", "yes")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(method, "/test", nil)
	if prep != nil {
		prep(req)
	}
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec
}

func hashToken(t *testing.T, token string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	return string(h)
}

// TestAdminToken_NoHashConfigured verifies the admin surface is hidden when no hash is set.
func TestAdminToken_NoHashConfigured(t *testing.T) {
	rec := call(t, middleware.AdminToken(""), http.MethodGet, func(r *http.Request) {
		r.Header.Set(middleware.AdminTokenHeader, "anything")
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// TestAdminToken_Missing verifies a request without the header receives 401.
func TestAdminToken_Missing(t *testing.T) {
	rec := call(t, middleware.AdminToken(hashToken(t, "s3cret")), http.MethodGet, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// TestAdminToken_Wrong verifies a mismatched token receives 403.
func TestAdminToken_Wrong(t *testing.T) {
	rec := call(t, middleware.AdminToken(hashToken(t, "s3cret")), http.MethodGet, func(r *http.Request) {
		r.Header.Set(middleware.AdminTokenHeader, "guess")
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid admin token") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

// TestAdminToken_Valid verifies the request passes and is marked as admin.
func TestAdminToken_Valid(t *testing.T) {
	rec := call(t, middleware.AdminToken(hashToken(t, "s3cret")), http.MethodPost, func(r *http.Request) {
		r.Header.Set(middleware.AdminTokenHeader, "s3cret")
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Test-Admin") != "yes" {
		t.Error("expected admin marker in request context")
	}
}

// TestCORS_AllowedOrigin verifies an allow-listed origin is echoed back.
func TestCORS_AllowedOrigin(t *testing.T) {
	mw := middleware.CORS([]string{"https://maps.example.org/"})
	rec := call(t, mw, http.MethodGet, func(r *http.Request) {
		r.Header.Set("Origin", "https://maps.example.org")
	})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://maps.example.org" {
		t.Errorf("expected origin echoed, got %q", got)
	}
}

// TestCORS_UnknownOrigin verifies other origins get no allow header.
func TestCORS_UnknownOrigin(t *testing.T) {
	mw := middleware.CORS([]string{"https://maps.example.org"})
	rec := call(t, mw, http.MethodGet, func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.example.com")
	})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected request to pass through, got %d", rec.Code)
	}
}

// TestCORS_Preflight verifies OPTIONS short-circuits with 204.
func TestCORS_Preflight(t *testing.T) {
	mw := middleware.CORS([]string{"*"})
	rec := call(t, mw, http.MethodOptions, func(r *http.Request) {
		r.Header.Set("Origin", "https://anywhere.example")
	})
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anywhere.example" {
		t.Errorf("expected wildcard to echo origin, got %q", got)
	}
}

// TestRateLimit_PerClient verifies the bucket is per client address and counted.
func TestRateLimit_PerClient(t *testing.T) {
	mw := middleware.RateLimit(0.001, 2, time.Minute)
	before := testutil.ToFloat64(metrics.RateLimited)

	from := func(addr string) func(*http.Request) {
		return func(r *http.Request) { r.RemoteAddr = addr }
	}

	for i := 0; i < 2; i++ {
		if rec := call(t, mw, http.MethodGet, from("10.0.0.1:5000")); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := call(t, mw, http.MethodGet, from("10.0.0.1:5001"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if rec := call(t, mw, http.MethodGet, from("10.0.0.2:5000")); rec.Code != http.StatusOK {
		t.Errorf("other client: expected 200, got %d", rec.Code)
	}
	if got := testutil.ToFloat64(metrics.RateLimited) - before; got != 1 {
		t.Errorf("expected 1 rate-limited request counted, got %v", got)
	}
}

// TestRateLimit_Disabled verifies a zero rate lets everything through.
func TestRateLimit_Disabled(t *testing.T) {
	mw := middleware.RateLimit(0, 0, time.Minute)
	for i := 0; i < 50; i++ {
		if rec := call(t, mw, http.MethodGet, nil); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
}

// TestAccessLog_PassesThrough verifies the wrapped handler's status reaches the client.
func TestAccessLog_PassesThrough(t *testing.T) {
	h := middleware.AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
}
