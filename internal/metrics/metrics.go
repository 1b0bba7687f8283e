package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "taxi_zones"

	MetricIngestions       = "ingestions_total"
	MetricRowsRead         = "ingest_rows_read_total"
	MetricZonesReconciled  = "zones_reconciled_total"
	MetricRoutesReconciled = "routes_reconciled_total"
	MetricReconcileErrors  = "reconcile_errors_total"
)

var CounterIngestions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricIngestions,
		Help:      "Trip dataset uploads processed, by outcome.",
	},
	[]string{"outcome"},
)

var CounterRowsRead = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricRowsRead,
		Help:      "Dataset rows read after the row cap.",
	},
)

var CounterZonesReconciled = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricZonesReconciled,
		Help:      "Zones created or reactivated by ingestion.",
	},
	[]string{"action"},
)

var CounterRoutesReconciled = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricRoutesReconciled,
		Help:      "Routes created or reactivated by ingestion.",
	},
	[]string{"action"},
)

var CounterReconcileErrors = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      MetricReconcileErrors,
		Help:      "Zones or routes skipped during ingestion.",
	},
)

func init() {
	prometheus.MustRegister(CounterIngestions)
	prometheus.MustRegister(CounterRowsRead)
	prometheus.MustRegister(CounterZonesReconciled)
	prometheus.MustRegister(CounterRoutesReconciled)
	prometheus.MustRegister(CounterReconcileErrors)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
