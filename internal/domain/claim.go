package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentTier describes how a deal's deposit is collected.
type PaymentTier string

const (
	// PaymentTierManual covers peer-to-peer rails (Venmo, Zelle, cash apps)
	// where no processor calls back and the customer self-reports payment.
	PaymentTierManual     PaymentTier = "manual"
	PaymentTierLink       PaymentTier = "link"
	PaymentTierIntegrated PaymentTier = "integrated"
)

// Valid reports whether the tier is one of the known values.
func (t PaymentTier) Valid() bool {
	switch t {
	case PaymentTierManual, PaymentTierLink, PaymentTierIntegrated:
		return true
	default:
		return false
	}
}

// Deal is the vendor offer a claim reserves. It is authored elsewhere; this
// service only reads it and bumps ClaimsCount.
type Deal struct {
	DealID        uuid.UUID
	VendorID      uuid.UUID
	Title         string
	DealPrice     float64
	DepositAmount *float64
	MaxClaims     *int
	ClaimsCount   int
	ExpiresAt     time.Time
}

// RequiresDeposit reports whether the deal collects money before redemption.
func (d Deal) RequiresDeposit() bool {
	return d.DepositAmount != nil && *d.DepositAmount > 0
}

// Claim is a customer's reservation of a deal.
//
// QRCode and RedemptionCode are written together, exactly once, by the
// deposit confirmation transition and never change afterwards.
type Claim struct {
	ClaimID            uuid.UUID
	CustomerID         uuid.UUID
	DealID             uuid.UUID
	VendorID           uuid.UUID
	SessionToken       string
	PaymentTier        PaymentTier
	DepositConfirmed   bool
	DepositConfirmedAt *time.Time
	QRCode             *string
	RedemptionCode     *string
	Redeemed           bool
	RedeemedAt         *time.Time
	ExpiresAt          time.Time
	CreatedAt          time.Time
}

// Expired reports whether an unredeemed claim is past its expiry.
func (c Claim) Expired(now time.Time) bool {
	return !c.Redeemed && c.ExpiresAt.Before(now)
}

// HasCredential reports whether the redemption credential has been issued.
func (c Claim) HasCredential() bool {
	return c.QRCode != nil && c.RedemptionCode != nil
}

// Redemption records the single point-of-sale consumption of a claim.
type Redemption struct {
	RedemptionID        uuid.UUID
	ClaimID             uuid.UUID
	DealID              uuid.UUID
	VendorID            uuid.UUID
	CustomerID          uuid.UUID
	ScannedBy           uuid.UUID
	ScannedAt           time.Time
	DepositAmount       *float64
	AmountCollected     *float64
	CollectionCompleted bool
}

// VendorWebhookConfig is the per-vendor shared secret used to authenticate
// processor callbacks. An empty secret means the vendor never configured one.
type VendorWebhookConfig struct {
	VendorID      uuid.UUID
	WebhookSecret string
}
