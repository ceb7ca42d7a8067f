package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
	"gorm.io/gorm"
)

// maxRedemptionCodeMatches caps the human-code candidate list; anything near
// it is ambiguous anyway.
const maxRedemptionCodeMatches = 50

var (
	errConfirmGuardNotMet = errors.New("confirm guard not met")
	errRedeemGuardNotMet  = errors.New("redeem guard not met")
)

type claimRepository struct {
	db *gorm.DB
}

func (r *claimRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("claims AS c").
		Select("c.*, d.vendor_id").
		Joins("JOIN deals AS d ON d.deal_id = c.deal_id")
}

func (r *claimRepository) GetBySessionToken(ctx context.Context, sessionToken string) (domain.Claim, error) {
	var row claimRow
	if err := r.joined(ctx).Where("c.session_token = ?", sessionToken).Take(&row).Error; err != nil {
		return domain.Claim{}, notFound(err)
	}
	return toDomainClaim(row), nil
}

func (r *claimRepository) GetByQRCode(ctx context.Context, qrCode string) (domain.Claim, error) {
	var row claimRow
	if err := r.joined(ctx).Where("c.qr_code = ?", qrCode).Take(&row).Error; err != nil {
		return domain.Claim{}, notFound(err)
	}
	return toDomainClaim(row), nil
}

func (r *claimRepository) ListByRedemptionCode(ctx context.Context, redemptionCode string, vendorID *uuid.UUID) ([]domain.Claim, error) {
	q := r.joined(ctx).Where("c.redemption_code = ?", redemptionCode)
	if vendorID != nil {
		q = q.Where("d.vendor_id = ?", *vendorID)
	}
	var rows []claimRow
	if err := q.Order("c.deposit_confirmed_at DESC").Limit(maxRedemptionCodeMatches).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Claim, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainClaim(row))
	}
	return out, nil
}

func (r *claimRepository) ConfirmDeposit(ctx context.Context, params ports.ConfirmDepositParams) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&claimModel{}).
			Where("claim_id = ?", params.ClaimID).
			Where("deposit_confirmed = ?", false).
			Updates(map[string]any{
				"deposit_confirmed":    true,
				"deposit_confirmed_at": params.ConfirmedAt,
				"qr_code":              params.QRCode,
				"redemption_code":      params.RedemptionCode,
			})
		if res.Error != nil {
			if isUniqueViolation(res.Error) {
				return domain.ErrConflict
			}
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errConfirmGuardNotMet
		}

		res = tx.Model(&dealModel{}).
			Where("deal_id = ?", params.DealID).
			UpdateColumn("claims_count", gorm.Expr("claims_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, errConfirmGuardNotMet) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *claimRepository) Redeem(ctx context.Context, params ports.RedeemParams) (domain.Redemption, bool, error) {
	rec := toRedemptionModel(params.Redemption)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&claimModel{}).
			Where("claim_id = ?", params.ClaimID).
			Where("redeemed = ?", false).
			Where("deposit_confirmed = ?", true).
			Where("expires_at >= ?", params.Now).
			Updates(map[string]any{
				"redeemed":    true,
				"redeemed_at": params.Now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errRedeemGuardNotMet
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		return nil
	})
	if errors.Is(err, errRedeemGuardNotMet) {
		return domain.Redemption{}, false, nil
	}
	if err != nil {
		return domain.Redemption{}, false, err
	}
	return toDomainRedemption(rec), true, nil
}

type dealRepository struct {
	db *gorm.DB
}

func (r *dealRepository) GetByID(ctx context.Context, dealID uuid.UUID) (domain.Deal, error) {
	var rec dealModel
	if err := r.db.WithContext(ctx).Where("deal_id = ?", dealID).Take(&rec).Error; err != nil {
		return domain.Deal{}, notFound(err)
	}
	return toDomainDeal(rec), nil
}

type redemptionRepository struct {
	db *gorm.DB
}

func (r *redemptionRepository) GetByClaimID(ctx context.Context, claimID uuid.UUID) (domain.Redemption, error) {
	var rec redemptionModel
	if err := r.db.WithContext(ctx).Where("claim_id = ?", claimID).Take(&rec).Error; err != nil {
		return domain.Redemption{}, notFound(err)
	}
	return toDomainRedemption(rec), nil
}

type vendorRepository struct {
	db *gorm.DB
}

func (r *vendorRepository) GetWebhookConfig(ctx context.Context, vendorID uuid.UUID) (domain.VendorWebhookConfig, error) {
	var rec vendorModel
	if err := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID).Take(&rec).Error; err != nil {
		return domain.VendorWebhookConfig{}, notFound(err)
	}
	cfg := domain.VendorWebhookConfig{VendorID: rec.VendorID}
	if rec.WebhookSecret != nil {
		cfg.WebhookSecret = *rec.WebhookSecret
	}
	return cfg, nil
}
