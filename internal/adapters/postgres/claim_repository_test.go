package postgres

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// integrationDB connects to the database named by CLAIMS_TEST_DB_URL and
// applies migrations. Tests that need it are skipped when it is unset.
func integrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("CLAIMS_TEST_DB_URL")
	if url == "" {
		t.Skip("CLAIMS_TEST_DB_URL not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, url, 8)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, RunMigrations(ctx, db))
	return db
}

type seededClaim struct {
	vendorID uuid.UUID
	dealID   uuid.UUID
	claim    claimModel
}

func seedClaim(t *testing.T, db *gorm.DB, expiresIn time.Duration) seededClaim {
	t.Helper()
	now := time.Now().UTC()
	vendor := vendorModel{VendorID: uuid.New(), BusinessName: "Taqueria", CreatedAt: now}
	require.NoError(t, db.Create(&vendor).Error)

	deposit := 10.0
	deal := dealModel{
		DealID:        uuid.New(),
		VendorID:      vendor.VendorID,
		Title:         "Two tacos for one",
		DealPrice:     40,
		DepositAmount: &deposit,
		ExpiresAt:     now.Add(7 * 24 * time.Hour),
		CreatedAt:     now,
	}
	require.NoError(t, db.Create(&deal).Error)

	claim := claimModel{
		ClaimID:      uuid.New(),
		CustomerID:   uuid.New(),
		DealID:       deal.DealID,
		SessionToken: "sess-" + uuid.NewString(),
		PaymentTier:  string(domain.PaymentTierIntegrated),
		ExpiresAt:    now.Add(expiresIn),
		CreatedAt:    now,
	}
	require.NoError(t, db.Create(&claim).Error)
	return seededClaim{vendorID: vendor.VendorID, dealID: deal.DealID, claim: claim}
}

func claimsCount(t *testing.T, db *gorm.DB, dealID uuid.UUID) int {
	t.Helper()
	var deal dealModel
	require.NoError(t, db.Where("deal_id = ?", dealID).Take(&deal).Error)
	return deal.ClaimsCount
}

func TestPostgresConfirmDepositHasOneWinner(t *testing.T) {
	db := integrationDB(t)
	repos := NewRepositories(db)
	seeded := seedClaim(t, db, time.Hour)
	ctx := context.Background()
	now := time.Now().UTC()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := repos.Claims.ConfirmDeposit(ctx, ports.ConfirmDepositParams{
				ClaimID:        seeded.claim.ClaimID,
				DealID:         seeded.dealID,
				QRCode:         uuid.NewString(),
				RedemptionCode: "123456",
				ConfirmedAt:    now,
			})
			assert.NoError(t, err)
			if applied {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, claimsCount(t, db, seeded.dealID))

	got, err := repos.Claims.GetBySessionToken(ctx, seeded.claim.SessionToken)
	require.NoError(t, err)
	assert.True(t, got.DepositConfirmed)
	assert.Equal(t, seeded.vendorID, got.VendorID)
	require.NotNil(t, got.QRCode)

	byQR, err := repos.Claims.GetByQRCode(ctx, *got.QRCode)
	require.NoError(t, err)
	assert.Equal(t, got.ClaimID, byQR.ClaimID)
}

func TestPostgresConfirmDepositRollsBackWithCounter(t *testing.T) {
	db := integrationDB(t)
	repos := NewRepositories(db)
	seeded := seedClaim(t, db, time.Hour)
	ctx := context.Background()

	_, err := repos.Claims.ConfirmDeposit(ctx, ports.ConfirmDepositParams{
		ClaimID:        seeded.claim.ClaimID,
		DealID:         uuid.New(),
		QRCode:         uuid.NewString(),
		RedemptionCode: "123456",
		ConfirmedAt:    time.Now().UTC(),
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	got, err := repos.Claims.GetBySessionToken(ctx, seeded.claim.SessionToken)
	require.NoError(t, err)
	assert.False(t, got.DepositConfirmed)
	assert.Nil(t, got.QRCode)
	assert.Equal(t, 0, claimsCount(t, db, seeded.dealID))
}

func TestPostgresConfirmDepositRejectsDuplicateQRCode(t *testing.T) {
	db := integrationDB(t)
	repos := NewRepositories(db)
	first := seedClaim(t, db, time.Hour)
	second := seedClaim(t, db, time.Hour)
	ctx := context.Background()
	qr := uuid.NewString()

	applied, err := repos.Claims.ConfirmDeposit(ctx, ports.ConfirmDepositParams{
		ClaimID: first.claim.ClaimID, DealID: first.dealID, QRCode: qr, RedemptionCode: "111111", ConfirmedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, applied)

	_, err = repos.Claims.ConfirmDeposit(ctx, ports.ConfirmDepositParams{
		ClaimID: second.claim.ClaimID, DealID: second.dealID, QRCode: qr, RedemptionCode: "222222", ConfirmedAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 0, claimsCount(t, db, second.dealID))
}

func TestPostgresRedeemGuards(t *testing.T) {
	db := integrationDB(t)
	repos := NewRepositories(db)
	seeded := seedClaim(t, db, time.Hour)
	ctx := context.Background()
	now := time.Now().UTC()

	redemption := func() domain.Redemption {
		return domain.Redemption{
			RedemptionID: uuid.New(),
			ClaimID:      seeded.claim.ClaimID,
			DealID:       seeded.dealID,
			VendorID:     seeded.vendorID,
			CustomerID:   seeded.claim.CustomerID,
			ScannedBy:    uuid.New(),
			ScannedAt:    now,
		}
	}

	_, applied, err := repos.Claims.Redeem(ctx, ports.RedeemParams{ClaimID: seeded.claim.ClaimID, Now: now, Redemption: redemption()})
	require.NoError(t, err)
	assert.False(t, applied, "unconfirmed claims cannot be redeemed")

	_, err = repos.Claims.ConfirmDeposit(ctx, ports.ConfirmDepositParams{
		ClaimID: seeded.claim.ClaimID, DealID: seeded.dealID, QRCode: uuid.NewString(), RedemptionCode: "123456", ConfirmedAt: now,
	})
	require.NoError(t, err)

	_, applied, err = repos.Claims.Redeem(ctx, ports.RedeemParams{ClaimID: seeded.claim.ClaimID, Now: now.Add(2 * time.Hour), Redemption: redemption()})
	require.NoError(t, err)
	assert.False(t, applied, "expired claims cannot be redeemed")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, applied, err := repos.Claims.Redeem(ctx, ports.RedeemParams{ClaimID: seeded.claim.ClaimID, Now: now, Redemption: redemption()})
			assert.NoError(t, err)
			if applied {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	got, err := repos.Redemptions.GetByClaimID(ctx, seeded.claim.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, seeded.vendorID, got.VendorID)

	var count int64
	require.NoError(t, db.Model(&redemptionModel{}).Where("claim_id = ?", seeded.claim.ClaimID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
