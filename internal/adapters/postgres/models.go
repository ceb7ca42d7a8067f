package postgres

import (
	"time"

	"github.com/google/uuid"
)

type vendorModel struct {
	VendorID      uuid.UUID `gorm:"column:vendor_id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessName  string    `gorm:"column:business_name"`
	WebhookSecret *string   `gorm:"column:webhook_secret"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (vendorModel) TableName() string { return "vendors" }

type dealModel struct {
	DealID        uuid.UUID `gorm:"column:deal_id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID      uuid.UUID `gorm:"column:vendor_id;type:uuid"`
	Title         string    `gorm:"column:title"`
	DealPrice     float64   `gorm:"column:deal_price"`
	DepositAmount *float64  `gorm:"column:deposit_amount"`
	MaxClaims     *int      `gorm:"column:max_claims"`
	ClaimsCount   int       `gorm:"column:claims_count"`
	ExpiresAt     time.Time `gorm:"column:expires_at"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (dealModel) TableName() string { return "deals" }

type claimModel struct {
	ClaimID            uuid.UUID  `gorm:"column:claim_id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID         uuid.UUID  `gorm:"column:customer_id;type:uuid"`
	DealID             uuid.UUID  `gorm:"column:deal_id;type:uuid"`
	SessionToken       string     `gorm:"column:session_token"`
	PaymentTier        string     `gorm:"column:payment_tier"`
	DepositConfirmed   bool       `gorm:"column:deposit_confirmed"`
	DepositConfirmedAt *time.Time `gorm:"column:deposit_confirmed_at"`
	QRCode             *string    `gorm:"column:qr_code"`
	RedemptionCode     *string    `gorm:"column:redemption_code"`
	Redeemed           bool       `gorm:"column:redeemed"`
	RedeemedAt         *time.Time `gorm:"column:redeemed_at"`
	ExpiresAt          time.Time  `gorm:"column:expires_at"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
}

func (claimModel) TableName() string { return "claims" }

// claimRow is a claim joined with its deal's vendor.
type claimRow struct {
	claimModel
	VendorID uuid.UUID `gorm:"column:vendor_id;type:uuid"`
}

type redemptionModel struct {
	RedemptionID        uuid.UUID `gorm:"column:redemption_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClaimID             uuid.UUID `gorm:"column:claim_id;type:uuid"`
	DealID              uuid.UUID `gorm:"column:deal_id;type:uuid"`
	VendorID            uuid.UUID `gorm:"column:vendor_id;type:uuid"`
	CustomerID          uuid.UUID `gorm:"column:customer_id;type:uuid"`
	ScannedBy           uuid.UUID `gorm:"column:scanned_by;type:uuid"`
	ScannedAt           time.Time `gorm:"column:scanned_at"`
	DepositAmount       *float64  `gorm:"column:deposit_amount"`
	AmountCollected     *float64  `gorm:"column:amount_collected"`
	CollectionCompleted bool      `gorm:"column:collection_completed"`
}

func (redemptionModel) TableName() string { return "redemptions" }

type claimOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (claimOutboxModel) TableName() string { return "claim_outbox" }
