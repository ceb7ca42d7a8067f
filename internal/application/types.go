package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
)

type Config struct {
	// PublicBaseURL prefixes the customer-facing QR redemption link.
	PublicBaseURL        string
	ScanLockoutThreshold int
	ScanLockoutWindow    time.Duration
	// CredentialAttempts bounds regeneration when a minted QR code collides.
	CredentialAttempts int
	NotifyTimeout      time.Duration
}

// WebhookRequest is an unauthenticated processor callback. RawBody must be
// the exact bytes received; signatures are computed over them.
type WebhookRequest struct {
	RawBody   []byte
	VendorID  string
	Signature string
}

type SelfReportRequest struct {
	SessionToken string `json:"session_token"`
}

type DepositConfirmation struct {
	Success          bool      `json:"success"`
	ClaimID          uuid.UUID `json:"claim_id"`
	QRCode           string    `json:"qr_code"`
	QRCodeURL        string    `json:"qr_code_url"`
	RedemptionCode   string    `json:"redemption_code"`
	AlreadyConfirmed bool      `json:"already_confirmed"`
}

type ClaimView struct {
	ClaimID            uuid.UUID          `json:"claim_id"`
	DealID             uuid.UUID          `json:"deal_id"`
	VendorID           uuid.UUID          `json:"vendor_id"`
	CustomerID         uuid.UUID          `json:"customer_id"`
	PaymentTier        domain.PaymentTier `json:"payment_tier"`
	DepositConfirmed   bool               `json:"deposit_confirmed"`
	DepositConfirmedAt *time.Time         `json:"deposit_confirmed_at,omitempty"`
	Redeemed           bool               `json:"redeemed"`
	RedeemedAt         *time.Time         `json:"redeemed_at,omitempty"`
	ExpiresAt          time.Time          `json:"expires_at"`
}

type ClaimStatusResult struct {
	Status domain.ClaimStatus `json:"status"`
	Claim  ClaimView          `json:"claim"`
}

type RedeemRequest struct {
	Credential string `json:"credential"`
}

type RedemptionView struct {
	RedemptionID        uuid.UUID `json:"redemption_id"`
	ClaimID             uuid.UUID `json:"claim_id"`
	DealID              uuid.UUID `json:"deal_id"`
	VendorID            uuid.UUID `json:"vendor_id"`
	CustomerID          uuid.UUID `json:"customer_id"`
	ScannedBy           uuid.UUID `json:"scanned_by"`
	ScannedAt           time.Time `json:"scanned_at"`
	DepositAmount       *float64  `json:"deposit_amount,omitempty"`
	AmountCollected     *float64  `json:"amount_collected,omitempty"`
	CollectionCompleted bool      `json:"collection_completed"`
}

// RedeemResult describes a redemption. It is also returned together with
// domain.ErrAlreadyRedeemed so callers can report who scanned the claim first.
type RedeemResult struct {
	Redemption RedemptionView `json:"redemption"`
	RedeemedAt *time.Time     `json:"redeemed_at,omitempty"`
}

func toClaimView(c domain.Claim) ClaimView {
	return ClaimView{
		ClaimID:            c.ClaimID,
		DealID:             c.DealID,
		VendorID:           c.VendorID,
		CustomerID:         c.CustomerID,
		PaymentTier:        c.PaymentTier,
		DepositConfirmed:   c.DepositConfirmed,
		DepositConfirmedAt: c.DepositConfirmedAt,
		Redeemed:           c.Redeemed,
		RedeemedAt:         c.RedeemedAt,
		ExpiresAt:          c.ExpiresAt,
	}
}

func toRedemptionView(r domain.Redemption) RedemptionView {
	return RedemptionView{
		RedemptionID:        r.RedemptionID,
		ClaimID:             r.ClaimID,
		DealID:              r.DealID,
		VendorID:            r.VendorID,
		CustomerID:          r.CustomerID,
		ScannedBy:           r.ScannedBy,
		ScannedAt:           r.ScannedAt,
		DepositAmount:       r.DepositAmount,
		AmountCollected:     r.AmountCollected,
		CollectionCompleted: r.CollectionCompleted,
	}
}
