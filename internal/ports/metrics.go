package ports

const (
	SignatureVerified        = "verified"
	SignatureSkippedNoSecret = "skipped_no_secret"
	SignatureFailed          = "failed"
)

// ClaimMetrics records lifecycle outcomes for dashboards and alerting.
type ClaimMetrics interface {
	ObserveSignatureCheck(outcome string)
	ObserveDepositConfirmation(path, outcome string)
	ObserveRedemption(outcome string)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ObserveSignatureCheck(string) {}
func (NopMetrics) ObserveDepositConfirmation(string, string) {}
func (NopMetrics) ObserveRedemption(string) {}
