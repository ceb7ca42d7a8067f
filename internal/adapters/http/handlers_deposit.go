package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/application"
)

// webhookAck is what the payment processor gets back. Human codes and links
// are for the customer only.
type webhookAck struct {
	Success          bool      `json:"success"`
	ClaimID          uuid.UUID `json:"claim_id"`
	QRCode           string    `json:"qr_code"`
	AlreadyConfirmed bool      `json:"already_confirmed"`
}

func (h *Handler) depositWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := readRawBody(r)
	if err != nil {
		writeMappedError(r.Context(), w, "deposit_webhook", err)
		return
	}

	res, err := h.service.ConfirmDepositWebhook(r.Context(), application.WebhookRequest{
		RawBody:   body,
		VendorID:  r.Header.Get("X-Vendor-Id"),
		Signature: r.Header.Get("X-Webhook-Signature"),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "deposit_webhook", err)
		return
	}
	writeSuccess(w, http.StatusOK, webhookAck{
		Success:          res.Success,
		ClaimID:          res.ClaimID,
		QRCode:           res.QRCode,
		AlreadyConfirmed: res.AlreadyConfirmed,
	})
}

func (h *Handler) selfReportDeposit(w http.ResponseWriter, r *http.Request) {
	actor, _ := claimsFromContext(r.Context())

	var req application.SelfReportRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "self_report_deposit", err)
		return
	}

	res, err := h.service.ConfirmDepositSelfReport(r.Context(), actor, req)
	if err != nil {
		writeMappedError(r.Context(), w, "self_report_deposit", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
