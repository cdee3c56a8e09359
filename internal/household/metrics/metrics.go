package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for household registration.
type Metrics struct {
	RegistrationsTotal   *prometheus.CounterVec
	RegisterDuration     prometheus.Histogram
	HouseholdsRegistered prometheus.Gauge
}

// New creates a Metrics instance with all household metrics registered.
func New() *Metrics {
	return &Metrics{
		RegistrationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cdcvoucher_registrations_total",
			Help: "Household registration attempts by outcome",
		}, []string{"outcome"}), // new, existing, rejected
		RegisterDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cdcvoucher_register_duration_seconds",
			Help:    "Duration of household registration calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		HouseholdsRegistered: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cdcvoucher_households_registered",
			Help: "Households currently present in the identity table",
		}),
	}
}

// ObserveRegistration records one registration attempt.
func (m *Metrics) ObserveRegistration(outcome string, start time.Time) {
	m.RegistrationsTotal.WithLabelValues(outcome).Inc()
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}

// SetHouseholds records the current identity table size.
func (m *Metrics) SetHouseholds(n int) {
	m.HouseholdsRegistered.Set(float64(n))
}
