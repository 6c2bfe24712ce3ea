// Package metrics exposes Prometheus collectors for the helpdesk and
// implements the recorder interfaces of the gateway, notification,
// ticket and conversation packages.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/giho-tech/helpdesk/internal/gateway"
	"github.com/giho-tech/helpdesk/internal/notifications"
)

// Metrics bundles every helpdesk collector.
type Metrics struct {
	gatherer prometheus.Gatherer

	turns         *prometheus.CounterVec
	aiAttempts    *prometheus.CounterVec
	aiLatency     *prometheus.HistogramVec
	aiExhausted   prometheus.Counter
	tickets       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	inFlight      prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_turns_total",
			Help: "Conversation turns by state transition.",
		}, []string{"from", "to"}),
		aiAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_ai_attempts_total",
			Help: "AI provider attempts by outcome.",
		}, []string{"provider", "outcome"}),
		aiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_ai_attempt_duration_seconds",
			Help:    "Duration of AI provider attempts.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		}, []string{"provider"}),
		aiExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_ai_exhausted_total",
			Help: "Requests where every AI provider failed.",
		}),
		tickets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_tickets_created_total",
			Help: "Tickets opened by warranty status.",
		}, []string{"warranty"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_notifications_total",
			Help: "New-ticket notifications by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "Total count of HTTP requests received.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "Histogram of request durations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "helpdesk_http_inflight_requests",
			Help: "Number of requests currently being handled.",
		}),
	}

	reg.MustRegister(
		m.turns, m.aiAttempts, m.aiLatency, m.aiExhausted,
		m.tickets, m.notifications,
		m.requests, m.duration, m.inFlight,
	)
	return m
}

// NewDefault registers on the global Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTurn(from, to string) {
	m.turns.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveAttempt(provider string, outcome gateway.Outcome, elapsed time.Duration) {
	m.aiAttempts.WithLabelValues(provider, outcome.String()).Inc()
	m.aiLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) IncExhausted() {
	m.aiExhausted.Inc()
}

func (m *Metrics) ObserveTicket(warranty string) {
	m.tickets.WithLabelValues(warranty).Inc()
}

func (m *Metrics) ObserveNotification(result notifications.Result) {
	m.notifications.WithLabelValues(string(result)).Inc()
}

// Instrument records request counts and durations labelled by the chi
// route pattern, which keeps ids out of the label values.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, route, strconv.Itoa(status)}
		m.requests.WithLabelValues(labels...).Inc()
		m.duration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}
