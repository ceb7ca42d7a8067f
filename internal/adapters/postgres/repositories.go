package postgres

import (
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Claims      ports.ClaimRepository
	Deals       ports.DealRepository
	Redemptions ports.RedemptionRepository
	Vendors     ports.VendorRepository
	Outbox      ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Claims:      &claimRepository{db: db},
		Deals:       &dealRepository{db: db},
		Redemptions: &redemptionRepository{db: db},
		Vendors:     &vendorRepository{db: db},
		Outbox:      &outboxRepository{db: db},
	}
}
