// Package metrics exposes Prometheus collectors for the pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	finalizeTotal     *prometheus.CounterVec
	pollTotal         *prometheus.CounterVec
	terminalTotal     *prometheus.CounterVec
	lockContention    prometheus.Counter
	lockTakeovers     prometheus.Counter
	deliveryTotal     *prometheus.CounterVec
	summarizeDuration prometheus.Histogram
	composeRounds     prometheus.Histogram
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		finalizeTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carenote_finalize_total",
			Help: "Finalize calls by outcome",
		}, []string{"outcome"}),
		pollTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carenote_poll_total",
			Help: "Poll results by status",
		}, []string{"status"}),
		terminalTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carenote_terminal_transitions_total",
			Help: "Terminal transitions executed by kind",
		}, []string{"kind"}),
		lockContention: f.NewCounter(prometheus.CounterOpts{
			Name: "carenote_delivery_lock_lost_total",
			Help: "Delivery lock attempts lost to another poller",
		}),
		lockTakeovers: f.NewCounter(prometheus.CounterOpts{
			Name: "carenote_delivery_lock_takeovers_total",
			Help: "Stale delivery locks taken over",
		}),
		deliveryTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carenote_delivery_total",
			Help: "Push deliveries by outcome",
		}, []string{"outcome"}),
		summarizeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "carenote_summarize_duration_seconds",
			Help:    "Time spent generating summaries",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 80},
		}),
		composeRounds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "carenote_compose_rounds",
			Help:    "Merge tree rounds per assembled session",
			Buckets: []float64{0, 1, 2, 3, 4},
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carenote_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carenote_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) Finalize(outcome string) {
	if m == nil {
		return
	}
	m.finalizeTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Poll(status string) {
	if m == nil {
		return
	}
	m.pollTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) Terminal(kind string) {
	if m == nil {
		return
	}
	m.terminalTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) LockLost() {
	if m == nil {
		return
	}
	m.lockContention.Inc()
}

func (m *Metrics) LockTakeover() {
	if m == nil {
		return
	}
	m.lockTakeovers.Inc()
}

func (m *Metrics) Delivery(outcome string) {
	if m == nil {
		return
	}
	m.deliveryTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SummarizeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.summarizeDuration.Observe(d.Seconds())
}

func (m *Metrics) ComposeRounds(n int) {
	if m == nil {
		return
	}
	m.composeRounds.Observe(float64(n))
}

// HTTPRequest records one served request
func (m *Metrics) HTTPRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
