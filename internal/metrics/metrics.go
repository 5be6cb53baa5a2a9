// Package metrics exposes engine and RPC activity as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/engine"
	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
)

const namespace = "stokvel"

var _ engine.Observer = (*Metrics)(nil)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	contributionsDecided *prometheus.CounterVec
	payouts              *prometheus.CounterVec
	disbursed            *prometheus.CounterVec
	settlements          *prometheus.CounterVec
	engineErrors         *prometheus.CounterVec
	rpcDuration          *prometheus.HistogramVec
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		contributionsDecided: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contributions_decided_total",
			Help:      "Contributions verified or rejected, by stokvel type and outcome.",
		}, []string{"type", "status"}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Processed payouts, by stokvel type, distribution shape and kind.",
		}, []string{"type", "shape", "kind"}),
		disbursed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disbursed_amount_total",
			Help:      "Cash paid out, in currency units, by stokvel type.",
		}, []string{"type"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Settled rotation cycles, by stokvel type.",
		}, []string{"type"}),
		engineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Failed engine operations, by error kind.",
		}, []string{"kind"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency, by procedure and connect code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.contributionsDecided,
		m.payouts,
		m.disbursed,
		m.settlements,
		m.engineErrors,
		m.rpcDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ContributionDecided(stokvelType models.StokvelType, status models.ContributionStatus) {
	m.contributionsDecided.WithLabelValues(string(stokvelType), string(status)).Inc()
}

func (m *Metrics) PayoutsProcessed(stokvelType models.StokvelType, shape models.DistributionShape, payouts []*models.Payout) {
	for _, p := range payouts {
		m.payouts.WithLabelValues(string(stokvelType), string(shape), string(p.Kind)).Inc()
		m.disbursed.WithLabelValues(string(stokvelType)).Add(p.Amount.InexactFloat64())
	}
}

func (m *Metrics) CycleSettled(stokvelType models.StokvelType, _ []*models.Adjustment) {
	m.settlements.WithLabelValues(string(stokvelType)).Inc()
}

// EngineError counts a failed operation under its error kind. Successful
// calls are ignored.
func (m *Metrics) EngineError(err error) {
	if err == nil {
		return
	}
	m.engineErrors.WithLabelValues(models.ErrorKind(err)).Inc()
}

// ObserveRPC records one RPC's latency.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	m.rpcDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
}
