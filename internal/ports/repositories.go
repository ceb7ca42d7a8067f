package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
)

// ConfirmDepositParams carries the credential minted for a pending claim.
// DealID names the deal whose claims counter the transition bumps.
type ConfirmDepositParams struct {
	ClaimID        uuid.UUID
	DealID         uuid.UUID
	QRCode         string
	RedemptionCode string
	ConfirmedAt    time.Time
}

// RedeemParams carries the redemption row to insert when the scan wins.
type RedeemParams struct {
	ClaimID    uuid.UUID
	Redemption domain.Redemption
	Now        time.Time
}

// ClaimRepository owns the two guarded claim transitions.
//
// ConfirmDeposit applies only while deposit_confirmed is false and reports
// whether this call performed the update. The deal's claims counter is
// incremented in the same transaction, so a confirmed claim is always
// counted exactly once. Redeem applies only while the claim
// is confirmed, unredeemed and unexpired at params.Now; it inserts the
// redemption in the same transaction and reports whether this call won.
// A losing call returns (false, nil) and leaves the row untouched.
type ClaimRepository interface {
	GetBySessionToken(ctx context.Context, sessionToken string) (domain.Claim, error)
	GetByQRCode(ctx context.Context, qrCode string) (domain.Claim, error)
	ListByRedemptionCode(ctx context.Context, redemptionCode string, vendorID *uuid.UUID) ([]domain.Claim, error)
	ConfirmDeposit(ctx context.Context, params ConfirmDepositParams) (bool, error)
	Redeem(ctx context.Context, params RedeemParams) (domain.Redemption, bool, error)
}

type DealRepository interface {
	GetByID(ctx context.Context, dealID uuid.UUID) (domain.Deal, error)
}

type RedemptionRepository interface {
	GetByClaimID(ctx context.Context, claimID uuid.UUID) (domain.Redemption, error)
}

// VendorRepository exposes read-only vendor webhook configuration.
type VendorRepository interface {
	GetWebhookConfig(ctx context.Context, vendorID uuid.UUID) (domain.VendorWebhookConfig, error)
}

type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository stores integration events until the worker delivers them.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
