package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Мониторинг эвикции.
var (
	EvictionPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eviction_polls_total",
			Help: "Scheduled events polls by outcome",
		},
		[]string{"result"}, // no_snapshot|clear|evicted|transient_error|error
	)
	EvictionMonitorState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eviction_monitor_state",
			Help: "Eviction monitor state: 0=idle 1=polling 2=tripped 3=stopped",
		},
	)
	EvictionTripped = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eviction_signal_tripped",
			Help: "1 once an eviction notice has been detected",
		},
	)
)

// Консьюмер очереди.
var (
	QueueMessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_received_total",
			Help: "Number of messages leased from the queue",
		},
		[]string{"backend"},
	)
	QueueMessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_processed_total",
			Help: "Number of messages processed successfully",
		},
		[]string{"backend"},
	)
	QueueMessagesFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_failed_total",
			Help: "Number of messages that failed processing and were left unacknowledged",
		},
		[]string{"backend"},
	)
	QueueMessagesAbandoned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_abandoned_total",
			Help: "Leased messages left unprocessed because of shutdown",
		},
		[]string{"backend"},
	)
	QueueDeletes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_deletes_total",
			Help: "Acknowledge (delete) attempts by result",
		},
		[]string{"backend", "result"}, // ok|not_found|error|cancelled
	)
	ConsumerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "consumer_state",
			Help: "Message consumer state: 0=ready 1=draining 2=stopped",
		},
	)
)

// Кэш дедупликации.
var (
	CacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_cache_operations_total",
			Help: "Dedup cache operations",
		},
		[]string{"op"}, // hit|miss|evicted|expired
	)
	CacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dedup_cache_size",
			Help: "Number of message ids currently remembered",
		},
	)
)

// Остановка процесса.
var ShutdownDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "shutdown_duration_seconds",
		Help:    "Time from stop request to consumer stopped",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	},
	[]string{"outcome"}, // graceful|forced
)

var registerOnce sync.Once

// MustRegister — регистрирует коллекторы в default registry; повторный вызов — no-op.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EvictionPolls, EvictionMonitorState, EvictionTripped,
			QueueMessagesReceived, QueueMessagesProcessed, QueueMessagesFailed,
			QueueMessagesAbandoned, QueueDeletes, ConsumerState,
			CacheOps, CacheSize,
			ShutdownDuration,
		)
	})
}
