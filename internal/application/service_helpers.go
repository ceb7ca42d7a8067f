package application

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

func appLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "application",
		"layer", "application",
	)
}

// runDetached executes fn without waiting for it and without inheriting the
// request's cancellation. Failures are logged and never reach the caller.
func (s *Service) runDetached(ctx context.Context, operation string, fn func(ctx context.Context) error) {
	if s.notifier == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	s.goFn(func() {
		notifyCtx, cancel := context.WithTimeout(detached, s.cfg.NotifyTimeout)
		defer cancel()
		if err := fn(notifyCtx); err != nil {
			appLogger().WarnContext(notifyCtx, "vendor notification failed",
				"operation", operation,
				"outcome", "failure",
				"error", err,
			)
		}
	})
}

func (s *Service) notifyDepositConfirmed(ctx context.Context, claim domain.Claim, path string, reporter *uuid.UUID) {
	s.runDetached(ctx, "notify_deposit_confirmed", func(ctx context.Context) error {
		event := ports.DepositConfirmedEvent{
			ClaimID:     claim.ClaimID,
			DealID:      claim.DealID,
			VendorID:    claim.VendorID,
			CustomerID:  claim.CustomerID,
			PaymentTier: string(claim.PaymentTier),
			Source:      path,
			ExpiresAt:   claim.ExpiresAt,
			ReportedBy:  reporter,
		}
		if claim.DepositConfirmedAt != nil {
			event.ConfirmedAt = *claim.DepositConfirmedAt
		}
		// Deal details enrich the message but are not required to send it.
		if deal, err := s.deals.GetByID(ctx, claim.DealID); err == nil {
			event.DealTitle = deal.Title
			event.DepositAmount = deal.DepositAmount
			event.MaxClaims = deal.MaxClaims
		}
		return s.notifier.DepositConfirmed(ctx, event)
	})
}

func (s *Service) notifyRedeemed(ctx context.Context, r domain.Redemption) {
	s.runDetached(ctx, "notify_claim_redeemed", func(ctx context.Context) error {
		return s.notifier.ClaimRedeemed(ctx, ports.ClaimRedeemedEvent{
			RedemptionID:        r.RedemptionID,
			ClaimID:             r.ClaimID,
			DealID:              r.DealID,
			VendorID:            r.VendorID,
			CustomerID:          r.CustomerID,
			ScannedBy:           r.ScannedBy,
			ScannedAt:           r.ScannedAt,
			DepositAmount:       r.DepositAmount,
			CollectionCompleted: r.CollectionCompleted,
		})
	})
}

func isStaff(actor ports.AuthClaims) bool {
	switch actor.Role {
	case ports.RoleVendor, ports.RoleVendorStaff:
		return actor.VendorID != nil
	case ports.RoleAdmin:
		return true
	default:
		return false
	}
}

// inVendorScope reports whether the actor may see the claim. Admins carry no
// vendor and see everything.
func inVendorScope(actor ports.AuthClaims, claim domain.Claim) bool {
	return actor.VendorID == nil || *actor.VendorID == claim.VendorID
}
