package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the funnel counters.
const (
	OutcomeSuccess          = "success"
	OutcomeFailure          = "failure"
	OutcomeDuplicate        = "duplicate"
	OutcomeIgnored          = "ignored"
	OutcomeRejected         = "rejected"
	OutcomeNotSucceeded     = "not_succeeded"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeDisabled         = "disabled"
)

// FunnelMetrics records checkout and attribution activity.
type FunnelMetrics struct {
	intents       *prometheus.CounterVec
	verifications *prometheus.CounterVec
	webhooks      *prometheus.CounterVec
	conversions   *prometheus.CounterVec
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewFunnelMetrics registers the funnel metrics on the provided registerer. A
// nil registerer yields a no-op recorder.
func NewFunnelMetrics(reg prometheus.Registerer) *FunnelMetrics {
	if reg == nil {
		return &FunnelMetrics{}
	}
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intents_total",
		Help: "Payment intents requested from the processor.",
	}, []string{"plan_tier", "offer_tier", "outcome"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Client payment verification outcomes.",
	}, []string{"outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events_total",
		Help: "Processor webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	conversions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conversion_events_total",
		Help: "Conversion events relayed to the attribution API.",
	}, []string{"event", "source", "outcome"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route pattern.",
	}, []string{"route", "method", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
	reg.MustRegister(intents, verifications, webhooks, conversions, requests, duration)
	return &FunnelMetrics{
		intents:       intents,
		verifications: verifications,
		webhooks:      webhooks,
		conversions:   conversions,
		requests:      requests,
		duration:      duration,
	}
}

func (m *FunnelMetrics) IncIntent(planTier, offerTier, outcome string) {
	if m == nil || m.intents == nil {
		return
	}
	m.intents.WithLabelValues(normalizeLabel(planTier), normalizeLabel(offerTier), normalizeLabel(outcome)).Inc()
}

func (m *FunnelMetrics) IncVerification(outcome string) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *FunnelMetrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *FunnelMetrics) IncConversion(event, source, outcome string) {
	if m == nil || m.conversions == nil {
		return
	}
	m.conversions.WithLabelValues(normalizeLabel(event), normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// ObserveRequest records one served HTTP request. route should be the router
// pattern, not the raw path, to keep label cardinality bounded.
func (m *FunnelMetrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(route, method, statusClass(status)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
