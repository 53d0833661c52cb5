// Package metrics exposes prometheus instrumentation for the ledger engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can create collectors without
// colliding on the default global one.
type Collector struct {
	registry  *prometheus.Registry
	mutations *prometheus.CounterVec
	reversals prometheus.Counter
	failures  *prometheus.CounterVec
	conflicts prometheus.Counter
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		mutations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_mutations_total",
			Help: "Committed ledger mutations by transaction type",
		}, []string{"type"}),
		reversals: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "ledger_reversals_total",
			Help: "Committed transaction reversals",
		}),
		failures: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_failures_total",
			Help: "Failed ledger operations by error class",
		}, []string{"class"}),
		conflicts: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "ledger_conflicts_total",
			Help: "Atomic units aborted by concurrent writers",
		}),
	}
}

func (c *Collector) RecordMutation(txType string) {
	if c == nil {
		return
	}
	c.mutations.WithLabelValues(txType).Inc()
}

func (c *Collector) RecordReversal() {
	if c == nil {
		return
	}
	c.reversals.Inc()
}

func (c *Collector) RecordFailure(class string) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(class).Inc()
}

func (c *Collector) RecordConflict() {
	if c == nil {
		return
	}
	c.conflicts.Inc()
}

// Handler returns the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
