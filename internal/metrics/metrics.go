package metrics

import (
	"context"
	"net/http"

	"eth-faucet/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "faucet"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry         *prometheus.Registry
	admissions       *prometheus.CounterVec
	payouts          *prometheus.CounterVec
	transferDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Payout requests by admission outcome.",
		}, []string{"outcome"}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Finished payouts by status.",
		}, []string{"status"}),
		transferDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Duration of payout transfer calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.admissions,
		m.payouts,
		m.transferDuration,
	)
	for _, o := range model.Outcomes() {
		m.admissions.WithLabelValues(o.String())
	}
	m.payouts.WithLabelValues(string(model.PayoutCompleted))
	m.payouts.WithLabelValues(string(model.PayoutFailed))
	return m
}

// TrackQueue exposes the pending depth and the in-flight count as gauges.
func (m *Metrics) TrackQueue(depth, processing func() int) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Payout requests waiting for the worker.",
		}, func() float64 { return float64(depth()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_processing",
			Help:      "Payout transfers in flight (0 or 1).",
		}, func() float64 { return float64(processing()) }),
	)
}

func (m *Metrics) ObserveDecision(d model.Decision) {
	m.admissions.WithLabelValues(d.Outcome.String()).Inc()
}

// Record implements queue.EventSink.
func (m *Metrics) Record(_ context.Context, ev model.PayoutEvent) error {
	m.payouts.WithLabelValues(string(ev.Status)).Inc()
	m.transferDuration.Observe(ev.Duration.Seconds())
	return nil
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
