package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/application"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
)

type alreadyRedeemedDetails struct {
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
	ScannedBy  *uuid.UUID `json:"scanned_by,omitempty"`
	ScannedAt  *time.Time `json:"scanned_at,omitempty"`
}

func (h *Handler) claimStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := claimsFromContext(r.Context())
	res, err := h.service.GetClaimStatus(r.Context(), actor, chi.URLParam(r, "session_token"))
	if err != nil {
		writeMappedError(r.Context(), w, "claim_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) redemptionStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := claimsFromContext(r.Context())
	res, err := h.service.LookupRedemptionStatus(r.Context(), actor, chi.URLParam(r, "credential"))
	if err != nil {
		writeMappedError(r.Context(), w, "redemption_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	actor, _ := claimsFromContext(r.Context())

	var req application.RedeemRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "redeem_claim", err)
		return
	}

	res, err := h.service.Redeem(r.Context(), actor, req)
	switch {
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "redeem_claim", status, code, msg, err)
		writeErrorDetails(w, status, code, msg, alreadyRedeemedFrom(res))
		return
	case err != nil:
		writeMappedError(r.Context(), w, "redeem_claim", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func alreadyRedeemedFrom(res application.RedeemResult) alreadyRedeemedDetails {
	details := alreadyRedeemedDetails{RedeemedAt: res.RedeemedAt}
	if res.Redemption.RedemptionID != uuid.Nil {
		scannedBy := res.Redemption.ScannedBy
		scannedAt := res.Redemption.ScannedAt
		details.ScannedBy = &scannedBy
		details.ScannedAt = &scannedAt
	}
	return details
}
