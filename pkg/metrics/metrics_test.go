package metrics_test

import (
	"testing"

	"github.com/Gunvolt24/spot_drain/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMustRegister_IsIdempotent(t *testing.T) {
	// Должно выполняться без паники даже при повторном вызове.
	metrics.MustRegister()
	metrics.MustRegister()
}

func TestQueueCounters_Inc(t *testing.T) {
	metrics.MustRegister()

	const backend = "memory"
	beforeReceived := testutil.ToFloat64(metrics.QueueMessagesReceived.WithLabelValues(backend))
	beforeFailed := testutil.ToFloat64(metrics.QueueMessagesFailed.WithLabelValues(backend))
	beforeOK := testutil.ToFloat64(metrics.QueueDeletes.WithLabelValues(backend, "ok"))

	metrics.QueueMessagesReceived.WithLabelValues(backend).Add(3)
	metrics.QueueMessagesFailed.WithLabelValues(backend).Inc()
	metrics.QueueDeletes.WithLabelValues(backend, "ok").Inc()

	if got := testutil.ToFloat64(metrics.QueueMessagesReceived.WithLabelValues(backend)); got != beforeReceived+3 {
		t.Fatalf("QueueMessagesReceived: got=%v want=%v", got, beforeReceived+3)
	}
	if got := testutil.ToFloat64(metrics.QueueMessagesFailed.WithLabelValues(backend)); got != beforeFailed+1 {
		t.Fatalf("QueueMessagesFailed: got=%v want=%v", got, beforeFailed+1)
	}
	if got := testutil.ToFloat64(metrics.QueueDeletes.WithLabelValues(backend, "ok")); got != beforeOK+1 {
		t.Fatalf("QueueDeletes(ok): got=%v want=%v", got, beforeOK+1)
	}
	// соседняя метка не затронута
	if got := testutil.ToFloat64(metrics.QueueDeletes.WithLabelValues(backend, "not_found")); got != 0 {
		t.Fatalf("QueueDeletes(not_found): got=%v want=0", got)
	}
}

func TestEvictionGauges_Set(t *testing.T) {
	metrics.MustRegister()

	metrics.EvictionMonitorState.Set(2)
	metrics.EvictionTripped.Set(1)

	if got := testutil.ToFloat64(metrics.EvictionMonitorState); got != 2 {
		t.Fatalf("EvictionMonitorState: got=%v want=2", got)
	}
	if got := testutil.ToFloat64(metrics.EvictionTripped); got != 1 {
		t.Fatalf("EvictionTripped: got=%v want=1", got)
	}
	metrics.EvictionMonitorState.Set(0)
	metrics.EvictionTripped.Set(0)
}

func TestCacheOps_CountersByLabel(t *testing.T) {
	metrics.MustRegister()

	hitBefore := testutil.ToFloat64(metrics.CacheOps.WithLabelValues("hit"))
	missBefore := testutil.ToFloat64(metrics.CacheOps.WithLabelValues("miss"))

	metrics.CacheOps.WithLabelValues("hit").Inc()
	metrics.CacheOps.WithLabelValues("hit").Inc()

	if got := testutil.ToFloat64(metrics.CacheOps.WithLabelValues("hit")); got != hitBefore+2 {
		t.Fatalf("CacheOps(hit): got=%v want=%v", got, hitBefore+2)
	}
	if got := testutil.ToFloat64(metrics.CacheOps.WithLabelValues("miss")); got != missBefore {
		t.Fatalf("CacheOps(miss): got=%v want=%v", got, missBefore)
	}
}
