package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	syncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_sync_runs_total",
			Help: "Total number of reconciliation runs",
		},
		[]string{"mode", "outcome"},
	)

	syncCards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_sync_cards_total",
			Help: "Cards processed by reconciliation, by result",
		},
		[]string{"result"},
	)

	syncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "board_sync_run_duration_seconds",
			Help:    "Duration of reconciliation runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 60, 120, 300},
		},
		[]string{"mode"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_webhook_events_total",
			Help: "Board webhook callbacks received, by action and result",
		},
		[]string{"action", "result"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// SyncRunStats é o recorte do resumo de uma execução que vira métrica.
type SyncRunStats struct {
	Created, Updated, Deleted, Skipped, Errors int
	Duration                                   time.Duration
}

// RecordSyncRun contabiliza uma execução; outcome é ok, truncated, partial ou failed.
func RecordSyncRun(mode, outcome string, stats SyncRunStats) {
	syncRuns.WithLabelValues(mode, outcome).Inc()
	syncDuration.WithLabelValues(mode).Observe(stats.Duration.Seconds())
	syncCards.WithLabelValues("created").Add(float64(stats.Created))
	syncCards.WithLabelValues("updated").Add(float64(stats.Updated))
	syncCards.WithLabelValues("deleted").Add(float64(stats.Deleted))
	syncCards.WithLabelValues("skipped").Add(float64(stats.Skipped))
	syncCards.WithLabelValues("error").Add(float64(stats.Errors))
}

// RunOutcome classifica uma execução concluída para o label outcome.
func RunOutcome(truncated bool, errors int) string {
	switch {
	case truncated:
		return "truncated"
	case errors > 0:
		return "partial"
	default:
		return "ok"
	}
}

func RecordWebhookEvent(action, result string) {
	webhookEvents.WithLabelValues(action, result).Inc()
}
