package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giho-tech/helpdesk/internal/gateway"
	"github.com/giho-tech/helpdesk/internal/notifications"
)

func newTestMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return New(reg, reg)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecorders(t *testing.T) {
	m := newTestMetrics()

	m.ObserveTurn("normal", "ai_suggested")
	m.ObserveAttempt("gemini", gateway.OutcomeTimedOut, 45*time.Second)
	m.ObserveAttempt("openai", gateway.OutcomeOK, time.Second)
	m.IncExhausted()
	m.ObserveTicket("active")
	m.ObserveNotification(notifications.ResultSkipped)

	out := scrape(t, m)
	assert.Contains(t, out, `helpdesk_turns_total{from="normal",to="ai_suggested"} 1`)
	assert.Contains(t, out, `helpdesk_ai_attempts_total{outcome="timed_out",provider="gemini"} 1`)
	assert.Contains(t, out, `helpdesk_ai_attempts_total{outcome="ok",provider="openai"} 1`)
	assert.Contains(t, out, `helpdesk_ai_exhausted_total 1`)
	assert.Contains(t, out, `helpdesk_tickets_created_total{warranty="active"} 1`)
	assert.Contains(t, out, `helpdesk_notifications_total{result="skipped"} 1`)
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	m := newTestMetrics()
	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/api/admin/tickets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/tickets/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	out := scrape(t, m)
	assert.Contains(t, out, `helpdesk_http_requests_total{method="GET",route="/api/admin/tickets/{id}",status="404"} 1`)
	assert.NotContains(t, out, "abc")
}
