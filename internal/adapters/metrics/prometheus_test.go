package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCountsOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := MustNew(registry)

	m.ObserveSignatureCheck(ports.SignatureVerified)
	m.ObserveSignatureCheck(ports.SignatureFailed)
	m.ObserveSignatureCheck(ports.SignatureFailed)
	m.ObserveDepositConfirmation("webhook", "confirmed")
	m.ObserveRedemption("redeemed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.signatureChecks.WithLabelValues(ports.SignatureFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.depositConfirmations.WithLabelValues("webhook", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redemptions.WithLabelValues("redeemed")))
}

func TestMustNewReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := MustNew(registry)
	second := MustNew(registry)

	first.ObserveRedemption("redeemed")
	second.ObserveRedemption("redeemed")

	assert.Equal(t, 2.0, testutil.ToFloat64(first.redemptions.WithLabelValues("redeemed")))
	assert.Same(t, first.redemptions, second.redemptions)
}
