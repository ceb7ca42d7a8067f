package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

// GetClaimStatus returns the customer's view of their own claim.
func (s *Service) GetClaimStatus(ctx context.Context, actor ports.AuthClaims, sessionToken string) (ClaimStatusResult, error) {
	token := strings.TrimSpace(sessionToken)
	if token == "" {
		return ClaimStatusResult{}, fmt.Errorf("%w: session token is required", domain.ErrInvalidInput)
	}
	claim, err := s.claims.GetBySessionToken(ctx, token)
	if err != nil {
		return ClaimStatusResult{}, err
	}
	if claim.CustomerID != actor.UserID {
		return ClaimStatusResult{}, domain.ErrNotFound
	}
	return ClaimStatusResult{
		Status: domain.DeriveStatus(claim, s.nowFn()),
		Claim:  toClaimView(claim),
	}, nil
}

// LookupRedemptionStatus is the pre-scan check staff run before honoring a
// credential. It never changes the claim, but human-code misses still count
// toward the caller's lockout: a lookup answers the same guess a scan would.
func (s *Service) LookupRedemptionStatus(ctx context.Context, actor ports.AuthClaims, credential string) (ClaimStatusResult, error) {
	if !isStaff(actor) {
		return ClaimStatusResult{}, domain.ErrForbidden
	}
	claim, err := s.resolveCredential(ctx, actor, credential)
	if err != nil {
		return ClaimStatusResult{}, err
	}
	return ClaimStatusResult{
		Status: domain.DeriveStatus(claim, s.nowFn()),
		Claim:  toClaimView(claim),
	}, nil
}

// Redeem consumes a credential at the point of sale. Exactly one concurrent
// caller succeeds; the others receive domain.ErrAlreadyRedeemed together with
// the winning redemption.
func (s *Service) Redeem(ctx context.Context, actor ports.AuthClaims, req RedeemRequest) (res RedeemResult, err error) {
	defer func() { s.metrics.ObserveRedemption(redemptionOutcome(err)) }()

	if !isStaff(actor) {
		return RedeemResult{}, domain.ErrForbidden
	}
	claim, err := s.resolveCredential(ctx, actor, req.Credential)
	if err != nil {
		return RedeemResult{}, err
	}
	if claim.Redeemed {
		return s.alreadyRedeemed(ctx, claim)
	}
	if !claim.DepositConfirmed {
		return RedeemResult{}, domain.ErrNotFound
	}
	now := s.nowFn()
	if claim.Expired(now) {
		return RedeemResult{}, domain.ErrExpired
	}

	deal, err := s.deals.GetByID(ctx, claim.DealID)
	if err != nil {
		return RedeemResult{}, fmt.Errorf("load deal: %w", err)
	}
	deposit, completed := domain.SettlementFor(deal)

	saved, applied, err := s.claims.Redeem(ctx, ports.RedeemParams{
		ClaimID: claim.ClaimID,
		Now:     now,
		Redemption: domain.Redemption{
			RedemptionID:        uuid.New(),
			ClaimID:             claim.ClaimID,
			DealID:              claim.DealID,
			VendorID:            claim.VendorID,
			CustomerID:          claim.CustomerID,
			ScannedBy:           actor.UserID,
			ScannedAt:           now,
			DepositAmount:       deposit,
			CollectionCompleted: completed,
		},
	})
	if err != nil {
		return RedeemResult{}, fmt.Errorf("redeem claim: %w", err)
	}
	if !applied {
		return s.classifyLostRedemption(ctx, claim)
	}

	appLogger().InfoContext(ctx, "claim redeemed",
		"operation", "redeem_claim",
		"outcome", "success",
		"claim_id", claim.ClaimID,
		"vendor_id", claim.VendorID,
		"scanned_by", actor.UserID,
	)
	s.notifyRedeemed(ctx, saved)
	return RedeemResult{Redemption: toRedemptionView(saved), RedeemedAt: &now}, nil
}

// classifyLostRedemption explains a guard failure by re-reading the claim.
func (s *Service) classifyLostRedemption(ctx context.Context, claim domain.Claim) (RedeemResult, error) {
	current, err := s.claims.GetByQRCode(ctx, *claim.QRCode)
	if err != nil {
		return RedeemResult{}, err
	}
	switch {
	case current.Redeemed:
		return s.alreadyRedeemed(ctx, current)
	case current.Expired(s.nowFn()):
		return RedeemResult{}, domain.ErrExpired
	default:
		return RedeemResult{}, fmt.Errorf("%w: claim %s changed during redemption", domain.ErrConflict, claim.ClaimID)
	}
}

func (s *Service) alreadyRedeemed(ctx context.Context, claim domain.Claim) (RedeemResult, error) {
	res := RedeemResult{RedeemedAt: claim.RedeemedAt}
	existing, err := s.redemptions.GetByClaimID(ctx, claim.ClaimID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return RedeemResult{}, fmt.Errorf("load redemption: %w", err)
	}
	if err == nil {
		res.Redemption = toRedemptionView(existing)
	}
	return res, domain.ErrAlreadyRedeemed
}

// resolveCredential finds the claim behind an opaque QR code or a 6-digit
// human code, limited to the actor's vendor.
func (s *Service) resolveCredential(ctx context.Context, actor ports.AuthClaims, credential string) (domain.Claim, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return domain.Claim{}, fmt.Errorf("%w: credential is required", domain.ErrInvalidInput)
	}
	if domain.IsRedemptionCode(credential) {
		return s.resolveRedemptionCode(ctx, actor, credential)
	}
	claim, err := s.claims.GetByQRCode(ctx, credential)
	if err != nil {
		return domain.Claim{}, err
	}
	if !inVendorScope(actor, claim) {
		return domain.Claim{}, domain.ErrNotFound
	}
	return claim, nil
}

// resolveRedemptionCode maps a human code to a single claim. Human codes are
// short and not unique, so lookups are throttled per staff member and a code
// matching several redeemable claims is refused.
func (s *Service) resolveRedemptionCode(ctx context.Context, actor ports.AuthClaims, code string) (domain.Claim, error) {
	lockKey := "scan:" + actor.UserID.String()
	if s.lockouts != nil {
		state, err := s.lockouts.Get(ctx, lockKey)
		if err == nil && state.Locked(s.nowFn()) {
			appLogger().WarnContext(ctx, "redemption code lockout active",
				"operation", "resolve_redemption_code",
				"outcome", "blocked",
				"scanned_by", actor.UserID,
				"locked_until", state.LockedUntil,
			)
			return domain.Claim{}, domain.ErrRateLimited
		}
	}

	candidates, err := s.claims.ListByRedemptionCode(ctx, code, actor.VendorID)
	if err != nil {
		return domain.Claim{}, err
	}
	if len(candidates) == 0 {
		return domain.Claim{}, s.recordCodeMiss(ctx, lockKey, actor)
	}

	now := s.nowFn()
	var redeemable []domain.Claim
	for _, c := range candidates {
		if c.DepositConfirmed && !c.Redeemed && !c.Expired(now) {
			redeemable = append(redeemable, c)
		}
	}
	switch len(redeemable) {
	case 0:
		// Nothing left to redeem; the most recent match explains why.
		return candidates[0], nil
	case 1:
		s.clearCodeMisses(ctx, lockKey, actor)
		return redeemable[0], nil
	default:
		return domain.Claim{}, domain.ErrAmbiguousCredential
	}
}

func (s *Service) recordCodeMiss(ctx context.Context, lockKey string, actor ports.AuthClaims) error {
	if s.lockouts == nil {
		return domain.ErrNotFound
	}
	now := s.nowFn()
	state, err := s.lockouts.RecordFailure(ctx, lockKey, now, s.cfg.ScanLockoutThreshold, s.cfg.ScanLockoutWindow)
	if err != nil {
		appLogger().WarnContext(ctx, "lockout state unavailable",
			"operation", "resolve_redemption_code",
			"outcome", "warning",
			"scanned_by", actor.UserID,
			"error", err,
		)
		return domain.ErrNotFound
	}
	if state.Locked(now) {
		appLogger().WarnContext(ctx, "redemption code lockout triggered",
			"operation", "resolve_redemption_code",
			"outcome", "blocked",
			"scanned_by", actor.UserID,
			"failed_count", state.FailedCount,
			"locked_until", state.LockedUntil,
		)
		return domain.ErrRateLimited
	}
	return domain.ErrNotFound
}

func (s *Service) clearCodeMisses(ctx context.Context, lockKey string, actor ports.AuthClaims) {
	if s.lockouts == nil {
		return
	}
	if err := s.lockouts.Clear(ctx, lockKey); err != nil {
		appLogger().WarnContext(ctx, "lockout reset failed",
			"operation", "resolve_redemption_code",
			"outcome", "warning",
			"scanned_by", actor.UserID,
			"error", err,
		)
	}
}

func redemptionOutcome(err error) string {
	switch {
	case err == nil:
		return "redeemed"
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		return "already_redeemed"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAmbiguousCredential):
		return "ambiguous"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
