package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCollectorRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ActiveSlaves.Set(3)
	c.ReplyCount.Inc()
	c.ObserveQuorumLatency(0.25)
	c.SlaveDesyncsTotal.Inc()
	c.SlaveConnectsTotal.Inc()
	c.SlaveDisconnects.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}

	want := []string{
		"master_active_slaves",
		"master_reply_count",
		"master_quorum_latency_seconds",
		"master_slave_desyncs_total",
		"master_slave_connects_total",
		"master_slave_disconnects_total",
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("missing registered metric %q", name)
		}
	}
}

func TestObserveQuorumLatencyRecordsSample(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.ObserveQuorumLatency(1.5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var hist *dto.Histogram
	for _, mf := range families {
		if mf.GetName() == "master_quorum_latency_seconds" {
			hist = mf.GetMetric()[0].GetHistogram()
		}
	}
	if hist == nil {
		t.Fatalf("histogram not found")
	}
	if hist.GetSampleCount() != 1 {
		t.Fatalf("SampleCount = %d, want 1", hist.GetSampleCount())
	}
}
