// Package httputil holds the JSON response helpers shared by the HTTP handlers.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
	"github.com/accessmaps/parks-api/internal/logger"
)

// Features is the envelope of every list response.
type Features[T any] struct {
	Features []T `json:"features"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Module("http").Error("encode response", "status", status, "error", err)
	}
}

// WriteFeatures writes {"features": [...]}, never null.
func WriteFeatures[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	WriteJSON(w, http.StatusOK, Features[T]{Features: items})
}

// StatusFor maps an error category to an HTTP status.
func StatusFor(err error) int {
	switch apperrors.CategoryOf(err) {
	case apperrors.CategoryValidation:
		return http.StatusBadRequest
	case apperrors.CategoryNotFound:
		return http.StatusNotFound
	case apperrors.CategoryNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteError writes {"error": msg}. Server-side failures get a generic message
// and the detail goes to the log.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Module("http").Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"category", apperrors.CategoryOf(err),
			"error", err,
		)
		msg = "internal server error"
	}
	WriteJSON(w, status, map[string]string{"error": msg})
}

// AddServerTiming appends a Server-Timing entry for name covering the time since start.
func AddServerTiming(w http.ResponseWriter, name string, start time.Time) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	w.Header().Add("Server-Timing", fmt.Sprintf("%s;dur=%.1f", name, ms))
}

// IDParam parses the positive integer URL parameter key.
func IDParam(r *http.Request, key string) (int64, error) {
	raw := chi.URLParam(r, key)
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationError("%s must be a positive integer", key)
	}
	return id, nil
}

// DecodeJSON decodes a request body of at most maxBytes into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.ValidationError("invalid body: %v", err)
	}
	return nil
}
