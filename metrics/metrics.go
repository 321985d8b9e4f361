// Package metrics provides the gateway's Prometheus collectors and the
// HTTP server exposing them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "identity_gateway"

var (
	// AuthFailuresTotal counts rejected credentials by flow and validation mode.
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected credentials",
		},
		[]string{"flow", "mode"},
	)

	// FlowsTotal counts completed gateway flows by outcome.
	FlowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flows_total",
			Help:      "Gateway flows",
		},
		[]string{"flow", "status"},
	)

	// ProvisionedConnectionsTotal counts connections created per driver.
	ProvisionedConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioned_connections_total",
			Help:      "Connections created by auto-registration",
		},
		[]string{"driver"},
	)

	// DriverErrorsTotal counts driver failures by driver and operation.
	DriverErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "driver_errors_total",
			Help:      "Storage driver failures",
		},
		[]string{"driver", "op"},
	)

	// DriverLatency records driver call latency in seconds.
	DriverLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "driver_latency_seconds",
			Help:      "Storage driver call latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"driver", "op"},
	)

	// TableAuthRejectedTotal counts table requests rejected by the shared secret gate.
	TableAuthRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_auth_rejected_total",
			Help:      "Table requests with a missing or wrong key",
		},
	)
)

func init() {
	prometheus.MustRegister(
		AuthFailuresTotal,
		FlowsTotal,
		ProvisionedConnectionsTotal,
		DriverErrorsTotal,
		DriverLatency,
		TableAuthRejectedTotal,
	)
}
