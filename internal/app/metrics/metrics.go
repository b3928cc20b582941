// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "result_engine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "result_engine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	resultsDeclared = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "result_engine",
			Subsystem: "results",
			Name:      "declared_total",
			Help:      "Total number of result declarations written.",
		},
		[]string{"phase", "source"},
	)

	betsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "result_engine",
			Subsystem: "settlement",
			Name:      "bets_settled_total",
			Help:      "Total number of bets settled.",
		},
		[]string{"outcome"},
	)

	feedFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "result_engine",
			Subsystem: "feed",
			Name:      "fetches_total",
			Help:      "Total number of external feed fetch attempts.",
		},
		[]string{"status"},
	)

	schedulerTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "result_engine",
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total number of recovery scheduler ticks.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		resultsDeclared,
		betsSettled,
		feedFetches,
		schedulerTicks,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordDeclaration counts one declaration write for a draw phase.
func RecordDeclaration(phase, source string) {
	resultsDeclared.WithLabelValues(phase, source).Inc()
}

// RecordSettledBet counts one settled bet by outcome.
func RecordSettledBet(outcome string) {
	betsSettled.WithLabelValues(outcome).Inc()
}

// RecordFeedFetch counts one feed fetch attempt by status.
func RecordFeedFetch(status string) {
	feedFetches.WithLabelValues(status).Inc()
}

// RecordSchedulerTick counts one scheduler tick.
func RecordSchedulerTick() {
	schedulerTicks.Inc()
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource IDs so metric cardinality stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "markets":
		if len(parts) == 1 {
			return "/markets"
		}
		if len(parts) == 2 {
			return "/markets/:id"
		}
		return "/markets/:id/" + parts[2]
	case "bets":
		if len(parts) == 1 {
			return "/bets"
		}
		return "/bets/:id"
	case "players":
		return "/players/:id/bets"
	default:
		return "/" + parts[0]
	}
}
