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

const (
	pathWebhook    = "webhook"
	pathSelfReport = "self_report"
)

// ConfirmDepositWebhook handles a processor callback announcing that a
// deposit was paid. Only processor-backed tiers are accepted. Replays of an
// already processed callback succeed and return the credential issued the
// first time.
func (s *Service) ConfirmDepositWebhook(ctx context.Context, req WebhookRequest) (res DepositConfirmation, err error) {
	defer func() { s.metrics.ObserveDepositConfirmation(pathWebhook, confirmationOutcome(res, err)) }()

	token, source, err := extractSessionToken(req.RawBody)
	if err != nil {
		return DepositConfirmation{}, err
	}

	claim, err := s.claims.GetBySessionToken(ctx, token)
	if err != nil {
		return DepositConfirmation{}, err
	}
	if vendorHeader := strings.TrimSpace(req.VendorID); vendorHeader != "" {
		vendorID, parseErr := uuid.Parse(vendorHeader)
		if parseErr != nil || vendorID != claim.VendorID {
			appLogger().WarnContext(ctx, "webhook vendor does not own claim",
				"operation", "confirm_deposit_webhook",
				"outcome", "rejected",
				"claim_id", claim.ClaimID,
				"attempted_vendor_id", vendorHeader,
			)
			return DepositConfirmation{}, domain.ErrNotFound
		}
	}

	if err := s.authenticateWebhook(ctx, claim, req); err != nil {
		return DepositConfirmation{}, err
	}
	// Manual-rail claims have no processor behind them; a callback for one
	// would claim a verification that never happened.
	if claim.PaymentTier == domain.PaymentTierManual {
		appLogger().WarnContext(ctx, "webhook rejected for manual payment tier",
			"operation", "confirm_deposit_webhook",
			"outcome", "rejected",
			"claim_id", claim.ClaimID,
			"vendor_id", claim.VendorID,
		)
		return DepositConfirmation{}, domain.ErrWrongPaymentTier
	}

	appLogger().InfoContext(ctx, "webhook session token resolved",
		"operation", "confirm_deposit_webhook",
		"outcome", "resolved",
		"claim_id", claim.ClaimID,
		"token_source", source,
	)
	return s.confirmDeposit(ctx, claim, pathWebhook, nil)
}

// ConfirmDepositSelfReport lets a customer attest they paid on a manual rail.
// Only the claim owner may report, and only for manual-tier claims.
func (s *Service) ConfirmDepositSelfReport(ctx context.Context, actor ports.AuthClaims, req SelfReportRequest) (res DepositConfirmation, err error) {
	defer func() { s.metrics.ObserveDepositConfirmation(pathSelfReport, confirmationOutcome(res, err)) }()

	token := strings.TrimSpace(req.SessionToken)
	if token == "" {
		return DepositConfirmation{}, fmt.Errorf("%w: session_token is required", domain.ErrInvalidInput)
	}
	claim, err := s.claims.GetBySessionToken(ctx, token)
	if err != nil {
		return DepositConfirmation{}, err
	}
	if claim.CustomerID != actor.UserID {
		return DepositConfirmation{}, domain.ErrNotFound
	}
	if claim.PaymentTier != domain.PaymentTierManual {
		return DepositConfirmation{}, domain.ErrWrongPaymentTier
	}
	reporter := actor.UserID
	return s.confirmDeposit(ctx, claim, pathSelfReport, &reporter)
}

func (s *Service) authenticateWebhook(ctx context.Context, claim domain.Claim, req WebhookRequest) error {
	cfg, err := s.vendors.GetWebhookConfig(ctx, claim.VendorID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load vendor webhook config: %w", err)
	}
	if cfg.WebhookSecret == "" {
		s.metrics.ObserveSignatureCheck(ports.SignatureSkippedNoSecret)
		appLogger().WarnContext(ctx, "webhook accepted without signature verification",
			"operation", "verify_webhook_signature",
			"outcome", ports.SignatureSkippedNoSecret,
			"claim_id", claim.ClaimID,
			"vendor_id", claim.VendorID,
		)
		return nil
	}
	if !s.signatures.Verify(req.RawBody, req.Signature, cfg.WebhookSecret) {
		s.metrics.ObserveSignatureCheck(ports.SignatureFailed)
		appLogger().WarnContext(ctx, "webhook signature rejected",
			"operation", "verify_webhook_signature",
			"outcome", ports.SignatureFailed,
			"security_event", true,
			"claim_id", claim.ClaimID,
			"vendor_id", claim.VendorID,
			"attempted_vendor_id", req.VendorID,
			"signature_present", req.Signature != "",
		)
		return domain.ErrUnauthorized
	}
	s.metrics.ObserveSignatureCheck(ports.SignatureVerified)
	return nil
}

// confirmDeposit performs the guarded pending -> confirmed transition, which
// also bumps the deal's claims counter. Only the caller whose conditional
// update lands notifies the vendor; everyone else gets the winner's
// credential back.
func (s *Service) confirmDeposit(ctx context.Context, claim domain.Claim, path string, reporter *uuid.UUID) (DepositConfirmation, error) {
	if claim.DepositConfirmed {
		return s.confirmationFor(claim, true), nil
	}
	now := s.nowFn()
	if claim.Expired(now) {
		return DepositConfirmation{}, domain.ErrExpired
	}

	for attempt := 1; ; attempt++ {
		cred, err := s.credentials.Generate()
		if err != nil {
			return DepositConfirmation{}, fmt.Errorf("generate credential: %w", err)
		}
		applied, err := s.claims.ConfirmDeposit(ctx, ports.ConfirmDepositParams{
			ClaimID:        claim.ClaimID,
			DealID:         claim.DealID,
			QRCode:         cred.QRCode,
			RedemptionCode: cred.RedemptionCode,
			ConfirmedAt:    now,
		})
		if errors.Is(err, domain.ErrConflict) && attempt < s.cfg.CredentialAttempts {
			appLogger().WarnContext(ctx, "qr code collision; regenerating",
				"operation", "confirm_deposit",
				"outcome", "retry",
				"claim_id", claim.ClaimID,
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			return DepositConfirmation{}, fmt.Errorf("confirm deposit: %w", err)
		}
		if !applied {
			return s.lostConfirmationRace(ctx, claim)
		}

		claim.DepositConfirmed = true
		claim.DepositConfirmedAt = &now
		claim.QRCode = &cred.QRCode
		claim.RedemptionCode = &cred.RedemptionCode
		break
	}

	appLogger().InfoContext(ctx, "deposit confirmed",
		"operation", "confirm_deposit",
		"outcome", "success",
		"path", path,
		"claim_id", claim.ClaimID,
		"deal_id", claim.DealID,
		"vendor_id", claim.VendorID,
	)
	s.notifyDepositConfirmed(ctx, claim, path, reporter)
	return s.confirmationFor(claim, false), nil
}

func (s *Service) lostConfirmationRace(ctx context.Context, claim domain.Claim) (DepositConfirmation, error) {
	current, err := s.claims.GetBySessionToken(ctx, claim.SessionToken)
	if err != nil {
		return DepositConfirmation{}, err
	}
	if !current.DepositConfirmed || !current.HasCredential() {
		return DepositConfirmation{}, fmt.Errorf("%w: claim %s changed during confirmation", domain.ErrConflict, claim.ClaimID)
	}
	return s.confirmationFor(current, true), nil
}

func (s *Service) confirmationFor(claim domain.Claim, already bool) DepositConfirmation {
	res := DepositConfirmation{
		Success:          true,
		ClaimID:          claim.ClaimID,
		AlreadyConfirmed: already,
	}
	if claim.QRCode != nil {
		res.QRCode = *claim.QRCode
		res.QRCodeURL = s.qrCodeURL(*claim.QRCode)
	}
	if claim.RedemptionCode != nil {
		res.RedemptionCode = *claim.RedemptionCode
	}
	return res
}

func (s *Service) qrCodeURL(qrCode string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/redeem/" + qrCode
}

func confirmationOutcome(res DepositConfirmation, err error) string {
	switch {
	case err == nil && res.AlreadyConfirmed:
		return "replayed"
	case err == nil:
		return "confirmed"
	case errors.Is(err, domain.ErrInvalidPayload), errors.Is(err, domain.ErrInvalidInput):
		return "invalid_payload"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrWrongPaymentTier):
		return "wrong_payment_tier"
	default:
		return "error"
	}
}
