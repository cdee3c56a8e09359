package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for voucher redemption.
type Metrics struct {
	RedemptionsTotal *prometheus.CounterVec
	RedeemDuration   prometheus.Histogram
	AmountRedeemed   prometheus.Counter
	VouchersRedeemed prometheus.Counter
}

// New creates a Metrics instance with all redemption metrics registered.
func New() *Metrics {
	return &Metrics{
		RedemptionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cdcvoucher_redemptions_total",
			Help: "Redemption attempts by outcome",
		}, []string{"outcome"}), // completed, already_redeemed, rejected
		RedeemDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cdcvoucher_redeem_duration_seconds",
			Help:    "Duration of redemption calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		AmountRedeemed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cdcvoucher_amount_redeemed_total",
			Help: "Total voucher value redeemed, in whole currency units",
		}),
		VouchersRedeemed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cdcvoucher_vouchers_redeemed_total",
			Help: "Individual vouchers marked used",
		}),
	}
}

// ObserveRedemption records one redemption attempt.
func (m *Metrics) ObserveRedemption(outcome string, start time.Time) {
	m.RedemptionsTotal.WithLabelValues(outcome).Inc()
	m.RedeemDuration.Observe(time.Since(start).Seconds())
}

// AddRedeemed records a completed bundle.
func (m *Metrics) AddRedeemed(vouchers, amount int) {
	m.VouchersRedeemed.Add(float64(vouchers))
	m.AmountRedeemed.Add(float64(amount))
}
