package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics groups the deposit and collection metrics.
type BusinessMetrics struct {
	DepositsProcessedTotal *prometheus.CounterVec
	CollectionsTotal       *prometheus.CounterVec
	RefuelFailuresTotal    *prometheus.CounterVec
	NodeErrorsTotal        *prometheus.CounterVec
	CollectionJobDuration  *prometheus.HistogramVec
	GasPriceGuardActive    *prometheus.GaugeVec
	OutboxRelayedTotal     *prometheus.CounterVec
}

// Business is registered on the default registry at import time.
var Business = newBusinessMetrics()

func newBusinessMetrics() *BusinessMetrics {
	return &BusinessMetrics{
		DepositsProcessedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_deposits_processed_total",
			Help: "Deposit notifications processed, by resulting status",
		}, []string{"blockchain", "status"}),
		CollectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_collections_total",
			Help: "Collect and refuel attempts, by outcome",
		}, []string{"blockchain", "kind", "result"}),
		RefuelFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_refuel_failures_total",
			Help: "Refuels abandoned after a classified node error",
		}, []string{"blockchain", "reason"}),
		NodeErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_node_errors_total",
			Help: "Classified JSON-RPC failures",
		}, []string{"kind"}),
		CollectionJobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collector_collection_job_duration_seconds",
			Help:    "Duration of collection jobs",
			Buckets: prometheus.DefBuckets,
		}, []string{"blockchain"}),
		GasPriceGuardActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "collector_gas_price_guard_active",
			Help: "1 while collections are paused because gas is too expensive",
		}, []string{"blockchain"}),
		OutboxRelayedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_outbox_relayed_total",
			Help: "Outbox messages published to the message bus",
		}, []string{"topic"}),
	}
}
