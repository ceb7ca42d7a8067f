package postgres

import (
	"errors"
	"time"

	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"gorm.io/gorm"
)

func toDomainClaim(row claimRow) domain.Claim {
	return domain.Claim{
		ClaimID:            row.ClaimID,
		CustomerID:         row.CustomerID,
		DealID:             row.DealID,
		VendorID:           row.VendorID,
		SessionToken:       row.SessionToken,
		PaymentTier:        domain.PaymentTier(row.PaymentTier),
		DepositConfirmed:   row.DepositConfirmed,
		DepositConfirmedAt: utcPtr(row.DepositConfirmedAt),
		QRCode:             row.QRCode,
		RedemptionCode:     row.RedemptionCode,
		Redeemed:           row.Redeemed,
		RedeemedAt:         utcPtr(row.RedeemedAt),
		ExpiresAt:          row.ExpiresAt.UTC(),
		CreatedAt:          row.CreatedAt.UTC(),
	}
}

func toDomainDeal(m dealModel) domain.Deal {
	return domain.Deal{
		DealID:        m.DealID,
		VendorID:      m.VendorID,
		Title:         m.Title,
		DealPrice:     m.DealPrice,
		DepositAmount: m.DepositAmount,
		MaxClaims:     m.MaxClaims,
		ClaimsCount:   m.ClaimsCount,
		ExpiresAt:     m.ExpiresAt.UTC(),
	}
}

func toDomainRedemption(m redemptionModel) domain.Redemption {
	return domain.Redemption{
		RedemptionID:        m.RedemptionID,
		ClaimID:             m.ClaimID,
		DealID:              m.DealID,
		VendorID:            m.VendorID,
		CustomerID:          m.CustomerID,
		ScannedBy:           m.ScannedBy,
		ScannedAt:           m.ScannedAt.UTC(),
		DepositAmount:       m.DepositAmount,
		AmountCollected:     m.AmountCollected,
		CollectionCompleted: m.CollectionCompleted,
	}
}

func toRedemptionModel(r domain.Redemption) redemptionModel {
	return redemptionModel{
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

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
