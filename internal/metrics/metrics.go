// Package metrics exposes the master's Prometheus collectors: active slave
// count, reply throughput, quorum latency, and desync/connect churn.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector wraps every Prometheus collector the master publishes.
type Collector struct {
	ActiveSlaves         prometheus.Gauge
	ReplyCount           prometheus.Counter
	QuorumLatencySeconds prometheus.Histogram
	SlaveDesyncsTotal    prometheus.Counter
	SlaveConnectsTotal   prometheus.Counter
	SlaveDisconnects     prometheus.Counter
}

// New registers every collector against reg and returns them wrapped.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		ActiveSlaves: factory.NewGauge(prometheus.GaugeOpts{
			Name: "master_active_slaves",
			Help: "Number of open slave connections, including those still in handshake.",
		}),
		ReplyCount: factory.NewCounter(prometheus.CounterOpts{
			Name: "master_reply_count",
			Help: "Total number of slave replies collected.",
		}),
		QuorumLatencySeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "master_quorum_latency_seconds",
			Help:    "Time spent waiting for a genmove quorum to form.",
			Buckets: prometheus.DefBuckets,
		}),
		SlaveDesyncsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "master_slave_desyncs_total",
			Help: "Total number of detected slave command-id mismatches requiring history replay.",
		}),
		SlaveConnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "master_slave_connects_total",
			Help: "Total number of accepted slave connections.",
		}),
		SlaveDisconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "master_slave_disconnects_total",
			Help: "Total number of slave connections that closed or failed.",
		}),
	}
}

// ObserveQuorumLatency records the duration of one completed genmove
// quorum wait.
func (c *Collector) ObserveQuorumLatency(seconds float64) {
	c.QuorumLatencySeconds.Observe(seconds)
}

// Serve blocks exposing /metrics on addr until the listener fails.
func (c *Collector) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		return fmt.Errorf("metrics: serve %s: %w", addr, err)
	}
	return nil
}
