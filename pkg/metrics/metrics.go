package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Lifecycle metrics
	TransitionsApplied  *prometheus.CounterVec
	TransitionsRejected *prometheus.CounterVec

	// Live view metrics
	SnapshotsPushed    prometheus.Counter
	SubscribersActive  prometheus.Gauge
	AppointmentsBooked prometheus.Counter

	// Email metrics
	EmailsSent   *prometheus.CounterVec
	EmailsFailed *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on the given
// registerer. Tests pass a fresh registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TransitionsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Total number of accepted lifecycle transitions",
		}, []string{"action", "role"}),
		TransitionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_rejections_total",
			Help:      "Total number of rejected lifecycle requests",
		}, []string{"action", "role"}),

		SnapshotsPushed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_snapshots_pushed_total",
			Help:      "Total number of snapshots delivered to live subscribers",
		}),
		SubscribersActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers_active",
			Help:      "Current number of live view subscribers",
		}),
		AppointmentsBooked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_booked_total",
			Help:      "Total number of appointments created by citizens",
		}),

		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Total number of emails sent",
		}, []string{"kind"}),
		EmailsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_failed_total",
			Help:      "Total number of email sends that failed",
		}, []string{"kind"}),
	}
}
