package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger service.
type Metrics struct {
	// --- Core operations ---
	OpsApplied  *prometheus.CounterVec
	OpsRejected *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec

	// --- Ledger state gauges ---
	TotalSupply   prometheus.Gauge
	PausedState   prometheus.Gauge
	BlacklistSize prometheus.Gauge

	// --- Events ---
	EventsEmitted   prometheus.Counter
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
	PublishDrops    prometheus.Counter
	PublishQueueLen prometheus.Gauge

	// --- Persistence ---
	StoreCommitDuration prometheus.Histogram
	StoreCommitErrors   prometheus.Counter

	// --- Transport ---
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	opBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	commitBuckets := []float64{
		0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25,
	}

	return &Metrics{
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_ops_applied_total",
			Help: "Operations successfully committed",
		}, []string{"op"}),

		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_ops_rejected_total",
			Help: "Operations rejected by a guard or precondition",
		}, []string{"op", "reason"}),

		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_op_duration_seconds",
			Help:    "Time to run one operation, guards through commit",
			Buckets: opBuckets,
		}, []string{"op"}),

		TotalSupply: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_total_supply",
			Help: "Current total supply",
		}),

		PausedState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_paused",
			Help: "Pause flag (0 or 1)",
		}),

		BlacklistSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_blacklist_size",
			Help: "Accounts currently blacklisted",
		}),

		EventsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_events_emitted_total",
			Help: "Envelopes handed to the event sink",
		}),

		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_events_published_total",
			Help: "Envelopes published to NATS",
		}),

		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_publish_errors_total",
			Help: "Failed NATS publishes",
		}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_publish_drops_total",
			Help: "Envelopes dropped due to a full publish buffer",
		}),

		PublishQueueLen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_publish_queue_len",
			Help: "Envelopes buffered for publishing",
		}),

		StoreCommitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_store_commit_duration_seconds",
			Help:    "Changeset commit duration",
			Buckets: commitBuckets,
		}),

		StoreCommitErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_store_commit_errors_total",
			Help: "Failed changeset commits",
		}),

		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_requests_total",
			Help: "Transport requests by method and status",
		}, []string{"method", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_request_duration_seconds",
			Help:    "Transport request latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"method"}),
	}
}
