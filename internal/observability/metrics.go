package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the burni engine.
type Metrics struct {
	// --- Engine ---
	OpsApplied  *prometheus.CounterVec
	OpsRejected *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec
	Sequence    prometheus.Gauge

	// --- Mint / supply ---
	AssetsMinted   prometheus.Counter
	FeesPaidUnits  prometheus.Counter
	BurnedUnits    prometheus.Counter
	RegistryAssets prometheus.Gauge

	// --- Channels ---
	ChannelSize     *prometheus.GaugeVec
	ChannelCapacity *prometheus.GaugeVec
	ProjectionDrops prometheus.Counter
	PublishDrops    prometheus.Counter

	// --- Idempotency ---
	IdempotencyDuplicates *prometheus.CounterVec

	// --- Persistence ---
	PersistEventsWritten    prometheus.Counter
	PersistMovementsWritten prometheus.Counter
	PersistErrors           *prometheus.CounterVec
	SnapshotTaken           prometheus.Counter
	SnapshotLastSeq         prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "burni_ops_applied_total",
			Help: "Operations committed by the engine",
		}, []string{"op"}),
		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "burni_ops_rejected_total",
			Help: "Operations rejected by the engine",
		}, []string{"op", "reason"}),
		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "burni_op_duration_seconds",
			Help:    "Operation processing duration",
			Buckets: latencyBuckets,
		}, []string{"op"}),
		Sequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "burni_sequence",
			Help: "Current engine sequence number",
		}),

		AssetsMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "burni_assets_minted_total",
			Help: "Derived assets minted",
		}),
		FeesPaidUnits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "burni_fees_paid_units_total",
			Help: "Mint fees paid to the administrator, in whole units",
		}),
		BurnedUnits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "burni_burned_units_total",
			Help: "Base asset burned from supply, in whole units",
		}),
		RegistryAssets: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "burni_registry_assets",
			Help: "Live derived assets in the registry",
		}),

		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "burni_channel_size",
			Help: "Current fill of an output channel",
		}, []string{"channel"}),
		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "burni_channel_capacity",
			Help: "Capacity of an output channel",
		}, []string{"channel"}),
		ProjectionDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "burni_projection_drops_total",
			Help: "Outputs dropped because the projection channel was full",
		}),
		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "burni_publish_drops_total",
			Help: "Outputs dropped because the publish channel was full",
		}),

		IdempotencyDuplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "burni_idempotency_duplicates_total",
			Help: "Duplicate submissions suppressed",
		}, []string{"op", "tier"}),

		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "burni_persist_events_written_total",
			Help: "Events written to the Postgres event log",
		}),
		PersistMovementsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "burni_persist_movements_written_total",
			Help: "Movements written to the Postgres event log",
		}),
		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "burni_persist_errors_total",
			Help: "Persistence write failures",
		}, []string{"kind"}),
		SnapshotTaken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "burni_snapshot_taken_total",
			Help: "State snapshots persisted",
		}),
		SnapshotLastSeq: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "burni_snapshot_last_sequence",
			Help: "Sequence of the last persisted snapshot",
		}),
	}
}
