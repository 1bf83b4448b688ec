package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jesser-selmi/idos-front/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.ObserveHTTP("/x", http.MethodGet, 200, time.Millisecond)
		m.ObserveTransition("PENDING", "RH_ACCEPTED", "RH")
		m.ObserveSubmission("LEAVE_REQUEST", "accepted")
		m.ObserveOutbox("request_submitted", "sent")
		m.ObserveBalanceDebit("LEAVE_REQUEST", "applied")
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.ObserveTransition("PENDING", "RH_ACCEPTED", "RH")
	m.ObserveTransition("RH_ACCEPTED", "ACCEPTED", "ADMIN")

	count, err := testutil.GatherAndCount(m.Registry(), "idos_request_transitions_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `idos_request_transitions_total{from="PENDING",role="RH",to="RH_ACCEPTED"} 1`)
}
