package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventDepositConfirmed = "claim.deposit_confirmed"
	EventClaimRedeemed    = "claim.redeemed"
)

// DepositConfirmedEvent tells the vendor a customer has paid.
type DepositConfirmedEvent struct {
	ClaimID       uuid.UUID  `json:"claim_id"`
	DealID        uuid.UUID  `json:"deal_id"`
	VendorID      uuid.UUID  `json:"vendor_id"`
	CustomerID    uuid.UUID  `json:"customer_id"`
	PaymentTier   string     `json:"payment_tier"`
	Source        string     `json:"source"`
	DepositAmount *float64   `json:"deposit_amount,omitempty"`
	ConfirmedAt   time.Time  `json:"confirmed_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	DealTitle     string     `json:"deal_title,omitempty"`
	MaxClaims     *int       `json:"max_claims,omitempty"`
	ReportedBy    *uuid.UUID `json:"reported_by,omitempty"`
}

type ClaimRedeemedEvent struct {
	RedemptionID        uuid.UUID `json:"redemption_id"`
	ClaimID             uuid.UUID `json:"claim_id"`
	DealID              uuid.UUID `json:"deal_id"`
	VendorID            uuid.UUID `json:"vendor_id"`
	CustomerID          uuid.UUID `json:"customer_id"`
	ScannedBy           uuid.UUID `json:"scanned_by"`
	ScannedAt           time.Time `json:"scanned_at"`
	DepositAmount       *float64  `json:"deposit_amount,omitempty"`
	CollectionCompleted bool      `json:"collection_completed"`
}

// VendorNotifier delivers one-way notifications to vendors. Callers never
// wait on it and never fail a request because of it.
type VendorNotifier interface {
	DepositConfirmed(ctx context.Context, event DepositConfirmedEvent) error
	ClaimRedeemed(ctx context.Context, event ClaimRedeemedEvent) error
}

// EventPublisher pushes an encoded event to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
