// Package metrics keeps custody ledger counters in a private Prometheus
// registry and writes them in the node-exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ledger counters.
type Metrics struct {
	registry      *prometheus.Registry
	blocksTotal   *prometheus.CounterVec
	verifications *prometheus.CounterVec
	ledgerBlocks  prometheus.Gauge
}

// New registers the ledger metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		blocksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bchoc_blocks_appended_total",
			Help: "Total custody blocks appended by state.",
		}, []string{"state"}),
		verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bchoc_verifications_total",
			Help: "Total ledger verifications by result.",
		}, []string{"result"}),
		ledgerBlocks: f.NewGauge(prometheus.GaugeOpts{
			Name: "bchoc_ledger_blocks",
			Help: "Number of blocks in the ledger at the last verification.",
		}),
	}
}

// RecordAppend records one appended block.
func (m *Metrics) RecordAppend(state string) {
	if m == nil {
		return
	}
	m.blocksTotal.WithLabelValues(state).Inc()
}

// RecordVerify records a verification result and the ledger length it saw.
func (m *Metrics) RecordVerify(result string, blocks int) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(result).Inc()
	m.ledgerBlocks.Set(float64(blocks))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes all metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
