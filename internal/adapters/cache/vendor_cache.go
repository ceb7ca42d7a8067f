package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

// CachedVendorRepository memoizes webhook configs so a burst of payment
// callbacks does not hit the vendors table once per request. Misses are not
// cached; a vendor that configures a secret is picked up on the next call.
type CachedVendorRepository struct {
	next  ports.VendorRepository
	cache *expirable.LRU[uuid.UUID, domain.VendorWebhookConfig]
}

func NewCachedVendorRepository(next ports.VendorRepository, size int, ttl time.Duration) *CachedVendorRepository {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedVendorRepository{
		next:  next,
		cache: expirable.NewLRU[uuid.UUID, domain.VendorWebhookConfig](size, nil, ttl),
	}
}

func (r *CachedVendorRepository) GetWebhookConfig(ctx context.Context, vendorID uuid.UUID) (domain.VendorWebhookConfig, error) {
	if cfg, ok := r.cache.Get(vendorID); ok {
		return cfg, nil
	}
	cfg, err := r.next.GetWebhookConfig(ctx, vendorID)
	if err != nil {
		return domain.VendorWebhookConfig{}, err
	}
	if cfg.WebhookSecret != "" {
		r.cache.Add(vendorID, cfg)
	}
	return cfg, nil
}

// Invalidate drops a vendor's cached config after a secret rotation.
func (r *CachedVendorRepository) Invalidate(vendorID uuid.UUID) {
	r.cache.Remove(vendorID)
}
