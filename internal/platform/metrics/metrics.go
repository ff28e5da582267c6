// Package metrics exposes Prometheus metrics for the queue service.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	registry *prometheus.Registry

	Admissions         *prometheus.CounterVec
	QueueUpdates       *prometheus.CounterVec
	PatientsCalled     *prometheus.CounterVec
	EventsBroadcast    prometheus.Counter
	OptimizerRuns      prometheus.Counter
	OptimizerChanges   prometheus.Counter
	OptimizerDuration  prometheus.Histogram
	ConnectedClients   prometheus.GaugeFunc
}

// New creates and registers all metrics. clientCount reports the number of
// connected websocket clients (may be nil).
func New(clientCount func() int) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_admissions_total",
			Help: "Total queue entries admitted",
		}, []string{"department"}),
		QueueUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_updates_total",
			Help: "Total queue entry updates",
		}, []string{"department"}),
		PatientsCalled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_patients_called_total",
			Help: "Total patientCalled transitions",
		}, []string{"department"}),
		EventsBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "realtime_events_broadcast_total",
			Help: "Total events handed to the broadcaster",
		}),
		OptimizerRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optimizer_runs_total",
			Help: "Total optimizer passes",
		}),
		OptimizerChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optimizer_position_changes_total",
			Help: "Total appointment position writes made by the optimizer",
		}),
		OptimizerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "optimizer_pass_duration_seconds",
			Help:    "Optimizer pass duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}

	registry.MustRegister(
		m.Admissions,
		m.QueueUpdates,
		m.PatientsCalled,
		m.EventsBroadcast,
		m.OptimizerRuns,
		m.OptimizerChanges,
		m.OptimizerDuration,
	)

	if clientCount != nil {
		m.ConnectedClients = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "realtime_connected_clients",
			Help: "Currently connected websocket clients",
		}, func() float64 { return float64(clientCount()) })
		registry.MustRegister(m.ConnectedClients)
	}

	return m
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
