package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm25alert_upstream_calls_total",
			Help: "Total calls to upstream data sources",
		},
		[]string{"source", "status"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm25alert_runs_total",
			Help: "Total evaluation runs by outcome",
		},
		[]string{"outcome"},
	)

	StationsEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pm25alert_stations_evaluated_total",
			Help: "Total threshold-crossing stations evaluated",
		},
	)

	AlertsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pm25alert_alerts_delivered_total",
			Help: "Total new station alerts delivered",
		},
	)

	NotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pm25alert_notify_failures_total",
			Help: "Total failed LINE push attempts",
		},
	)
)
