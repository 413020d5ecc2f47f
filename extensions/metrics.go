package extensions

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	honeycomb "github.com/AegisLabsOrg/Honeycomb"
)

// Metrics exports container activity as Prometheus metrics: operation
// counts and latencies, live node gauge, recompute and stale-result
// counters.
type Metrics struct {
	honeycomb.BaseExtension

	ops        *prometheus.CounterVec
	opDuration *prometheus.HistogramVec
	liveNodes  *prometheus.GaugeVec
	recomputes *prometheus.CounterVec
	stale      *prometheus.CounterVec
}

// NewMetrics creates a metrics extension registered against reg. A nil
// registerer falls back to the default global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		BaseExtension: honeycomb.NewBaseExtension("metrics"),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honeycomb_operations_total",
			Help: "Container operations by kind and result.",
		}, []string{"op", "result"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "honeycomb_operation_duration_seconds",
			Help:    "Container operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		liveNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "honeycomb_live_nodes",
			Help: "Currently materialized nodes by kind.",
		}, []string{"kind"}),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honeycomb_recomputes_total",
			Help: "Derived node evaluations by atom.",
		}, []string{"atom"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honeycomb_stale_results_total",
			Help: "Async completions discarded as superseded.",
		}, []string{"atom"}),
	}
	reg.MustRegister(m.ops, m.opDuration, m.liveNodes, m.recomputes, m.stale)
	return m
}

func (m *Metrics) Order() int {
	return 50
}

func (m *Metrics) Wrap(ctx context.Context, next func() (any, error), op *honeycomb.Operation) (any, error) {
	start := time.Now()
	result, err := next()
	m.opDuration.WithLabelValues(string(op.Kind)).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ops.WithLabelValues(string(op.Kind), outcome).Inc()
	return result, err
}

func (m *Metrics) OnNodeCreated(atom honeycomb.AnyAtom, c *honeycomb.Container) {
	m.liveNodes.WithLabelValues(atom.Kind().String()).Inc()
}

func (m *Metrics) OnNodeDisposed(atom honeycomb.AnyAtom, c *honeycomb.Container) {
	m.liveNodes.WithLabelValues(atom.Kind().String()).Dec()
}

func (m *Metrics) OnRecompute(atom honeycomb.AnyAtom, c *honeycomb.Container) {
	m.recomputes.WithLabelValues(honeycomb.AtomLabel(atom)).Inc()
}

func (m *Metrics) OnStaleResult(atom honeycomb.AnyAtom, c *honeycomb.Container) {
	m.stale.WithLabelValues(honeycomb.AtomLabel(atom)).Inc()
}
