// Package memory provides mutex-guarded implementations of the repository
// ports. They honor the same conditional-update contracts as the Postgres
// adapter and back the service in tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

type Store struct {
	mu          sync.Mutex
	claims      map[uuid.UUID]domain.Claim
	deals       map[uuid.UUID]domain.Deal
	redemptions map[uuid.UUID]domain.Redemption
	vendors     map[uuid.UUID]domain.VendorWebhookConfig
}

func NewStore() *Store {
	return &Store{
		claims:      make(map[uuid.UUID]domain.Claim),
		deals:       make(map[uuid.UUID]domain.Deal),
		redemptions: make(map[uuid.UUID]domain.Redemption),
		vendors:     make(map[uuid.UUID]domain.VendorWebhookConfig),
	}
}

// PutDeal inserts or replaces a deal.
func (s *Store) PutDeal(d domain.Deal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals[d.DealID] = d
}

// PutClaim inserts or replaces a claim. VendorID is filled from the deal
// when the caller leaves it empty.
func (s *Store) PutClaim(c domain.Claim) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.VendorID == uuid.Nil {
		c.VendorID = s.deals[c.DealID].VendorID
	}
	s.claims[c.ClaimID] = c
}

func (s *Store) PutVendor(v domain.VendorWebhookConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vendors[v.VendorID] = v
}

// Claim returns the stored claim by id.
func (s *Store) Claim(claimID uuid.UUID) (domain.Claim, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[claimID]
	return c, ok
}

// Deal returns the stored deal by id.
func (s *Store) Deal(dealID uuid.UUID) (domain.Deal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[dealID]
	return d, ok
}

func (s *Store) RedemptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redemptions)
}

func (s *Store) GetBySessionToken(_ context.Context, sessionToken string) (domain.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.claims {
		if c.SessionToken == sessionToken {
			return c, nil
		}
	}
	return domain.Claim{}, domain.ErrNotFound
}

func (s *Store) GetByQRCode(_ context.Context, qrCode string) (domain.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.claims {
		if c.QRCode != nil && *c.QRCode == qrCode {
			return c, nil
		}
	}
	return domain.Claim{}, domain.ErrNotFound
}

func (s *Store) ListByRedemptionCode(_ context.Context, redemptionCode string, vendorID *uuid.UUID) ([]domain.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Claim
	for _, c := range s.claims {
		if c.RedemptionCode == nil || *c.RedemptionCode != redemptionCode {
			continue
		}
		if vendorID != nil && c.VendorID != *vendorID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return confirmedAt(out[i]).After(confirmedAt(out[j]))
	})
	return out, nil
}

func (s *Store) ConfirmDeposit(_ context.Context, params ports.ConfirmDepositParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[params.ClaimID]
	if !ok || c.DepositConfirmed {
		return false, nil
	}
	deal, ok := s.deals[params.DealID]
	if !ok {
		return false, domain.ErrNotFound
	}
	for id, other := range s.claims {
		if id != c.ClaimID && other.QRCode != nil && *other.QRCode == params.QRCode {
			return false, domain.ErrConflict
		}
	}
	confirmedAt := params.ConfirmedAt
	qr := params.QRCode
	code := params.RedemptionCode
	c.DepositConfirmed = true
	c.DepositConfirmedAt = &confirmedAt
	c.QRCode = &qr
	c.RedemptionCode = &code
	s.claims[c.ClaimID] = c
	deal.ClaimsCount++
	s.deals[deal.DealID] = deal
	return true, nil
}

func (s *Store) Redeem(_ context.Context, params ports.RedeemParams) (domain.Redemption, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[params.ClaimID]
	if !ok || c.Redeemed || !c.DepositConfirmed || c.ExpiresAt.Before(params.Now) {
		return domain.Redemption{}, false, nil
	}
	if _, exists := s.redemptions[c.ClaimID]; exists {
		return domain.Redemption{}, false, domain.ErrConflict
	}
	redeemedAt := params.Now
	c.Redeemed = true
	c.RedeemedAt = &redeemedAt
	s.claims[c.ClaimID] = c
	s.redemptions[c.ClaimID] = params.Redemption
	return params.Redemption, true, nil
}

func (s *Store) GetByID(_ context.Context, dealID uuid.UUID) (domain.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[dealID]
	if !ok {
		return domain.Deal{}, domain.ErrNotFound
	}
	return d, nil
}

func (s *Store) GetByClaimID(_ context.Context, claimID uuid.UUID) (domain.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.redemptions[claimID]
	if !ok {
		return domain.Redemption{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) GetWebhookConfig(_ context.Context, vendorID uuid.UUID) (domain.VendorWebhookConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return domain.VendorWebhookConfig{}, domain.ErrNotFound
	}
	return v, nil
}

func confirmedAt(c domain.Claim) time.Time {
	if c.DepositConfirmedAt != nil {
		return *c.DepositConfirmedAt
	}
	return time.Time{}
}
