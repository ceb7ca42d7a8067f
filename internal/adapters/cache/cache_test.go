package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingVendors struct {
	calls   int
	configs map[uuid.UUID]domain.VendorWebhookConfig
}

func (c *countingVendors) GetWebhookConfig(_ context.Context, vendorID uuid.UUID) (domain.VendorWebhookConfig, error) {
	c.calls++
	cfg, ok := c.configs[vendorID]
	if !ok {
		return domain.VendorWebhookConfig{}, domain.ErrNotFound
	}
	return cfg, nil
}

func TestCachedVendorRepositoryMemoizesSecrets(t *testing.T) {
	vendorID := uuid.New()
	backing := &countingVendors{configs: map[uuid.UUID]domain.VendorWebhookConfig{
		vendorID: {VendorID: vendorID, WebhookSecret: "whsec"},
	}}
	repo := NewCachedVendorRepository(backing, 8, time.Minute)

	for i := 0; i < 3; i++ {
		cfg, err := repo.GetWebhookConfig(context.Background(), vendorID)
		require.NoError(t, err)
		assert.Equal(t, "whsec", cfg.WebhookSecret)
	}
	assert.Equal(t, 1, backing.calls)

	repo.Invalidate(vendorID)
	_, err := repo.GetWebhookConfig(context.Background(), vendorID)
	require.NoError(t, err)
	assert.Equal(t, 2, backing.calls)
}

func TestCachedVendorRepositorySkipsMissesAndBlankSecrets(t *testing.T) {
	blank := uuid.New()
	backing := &countingVendors{configs: map[uuid.UUID]domain.VendorWebhookConfig{
		blank: {VendorID: blank},
	}}
	repo := NewCachedVendorRepository(backing, 8, time.Minute)

	_, err := repo.GetWebhookConfig(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for i := 0; i < 2; i++ {
		cfg, err := repo.GetWebhookConfig(context.Background(), blank)
		require.NoError(t, err)
		assert.Empty(t, cfg.WebhookSecret)
	}
	assert.Equal(t, 3, backing.calls)
}

func TestDecodeLockout(t *testing.T) {
	assert.Equal(t, 0, decodeLockout(nil).FailedCount)

	state := decodeLockout(map[string]string{"failed_count": "4", "locked_until": "1778783400"})
	assert.Equal(t, 4, state.FailedCount)
	require.NotNil(t, state.LockedUntil)
	assert.Equal(t, time.Unix(1778783400, 0).UTC(), *state.LockedUntil)

	state = decodeLockout(map[string]string{"failed_count": "x", "locked_until": ""})
	assert.Equal(t, 0, state.FailedCount)
	assert.Nil(t, state.LockedUntil)
}
