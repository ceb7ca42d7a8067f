package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements ports.ClaimMetrics with counters on a registerer.
type Prometheus struct {
	signatureChecks      *prometheus.CounterVec
	depositConfirmations *prometheus.CounterVec
	redemptions          *prometheus.CounterVec
}

// MustNew registers the claim collectors on reg, reusing collectors that an
// earlier call already registered. Any other registration error panics.
func MustNew(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Prometheus{
		signatureChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claims",
			Name:      "webhook_signature_checks_total",
			Help:      "Payment webhook signature checks by outcome.",
		}, []string{"outcome"}),
		depositConfirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claims",
			Name:      "deposit_confirmations_total",
			Help:      "Deposit confirmation attempts by entry path and outcome.",
		}, []string{"path", "outcome"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claims",
			Name:      "redemptions_total",
			Help:      "Staff redemption attempts by outcome.",
		}, []string{"outcome"}),
	}
	m.signatureChecks = register(reg, m.signatureChecks)
	m.depositConfirmations = register(reg, m.depositConfirmations)
	m.redemptions = register(reg, m.redemptions)
	return m
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Prometheus) ObserveSignatureCheck(outcome string) {
	m.signatureChecks.WithLabelValues(outcome).Inc()
}

func (m *Prometheus) ObserveDepositConfirmation(path, outcome string) {
	m.depositConfirmations.WithLabelValues(path, outcome).Inc()
}

func (m *Prometheus) ObserveRedemption(outcome string) {
	m.redemptions.WithLabelValues(outcome).Inc()
}
