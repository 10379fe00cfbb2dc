package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/accessmaps/parks-api/internal/errors"
)

var (
	QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parks_query_duration_seconds",
		Help:    "Spatial query latency by operation",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"op"})
	QueryErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parks_query_errors_total",
		Help: "Failed spatial queries by operation (validation errors excluded)",
	}, []string{"op"})
	ReloadFeatures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parks_reload_features_total",
		Help: "Features seen by collection reloads, by outcome",
	}, []string{"collection", "outcome"})
	ReloadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parks_reload_duration_seconds",
		Help:    "Collection reload wall time",
		Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 180, 600},
	}, []string{"collection"})
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parks_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter",
	})
)

func init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryErrors)
	prometheus.MustRegister(ReloadFeatures)
	prometheus.MustRegister(ReloadDuration)
	prometheus.MustRegister(RateLimited)
}

// ObserveQuery records the latency of op since start. A non-nil err is
// counted unless it is a validation error raised before the query ran.
func ObserveQuery(op string, start time.Time, err error) {
	QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && !apperrors.IsValidation(err) {
		QueryErrors.WithLabelValues(op).Inc()
	}
}

// Handler serves the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
