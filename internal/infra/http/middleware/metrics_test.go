package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCountsRequests(t *testing.T) {
	h := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/metrics-test", "202"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-test", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/metrics-test", "202"))
	assert.Equal(t, before+1, after)
}

func TestRecordSyncRun(t *testing.T) {
	runsBefore := testutil.ToFloat64(syncRuns.WithLabelValues("quick", "partial"))
	createdBefore := testutil.ToFloat64(syncCards.WithLabelValues("created"))
	errorsBefore := testutil.ToFloat64(syncCards.WithLabelValues("error"))

	RecordSyncRun("quick", "partial", SyncRunStats{Created: 2, Errors: 1, Duration: time.Second})

	assert.Equal(t, runsBefore+1, testutil.ToFloat64(syncRuns.WithLabelValues("quick", "partial")))
	assert.Equal(t, createdBefore+2, testutil.ToFloat64(syncCards.WithLabelValues("created")))
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(syncCards.WithLabelValues("error")))
}

func TestRecordWebhookEvent(t *testing.T) {
	before := testutil.ToFloat64(webhookEvents.WithLabelValues("updateCard", "updated"))
	RecordWebhookEvent("updateCard", "updated")
	assert.Equal(t, before+1, testutil.ToFloat64(webhookEvents.WithLabelValues("updateCard", "updated")))
}

func TestRunOutcome(t *testing.T) {
	assert.Equal(t, "ok", RunOutcome(false, 0))
	assert.Equal(t, "partial", RunOutcome(false, 2))
	assert.Equal(t, "truncated", RunOutcome(true, 2))
}
