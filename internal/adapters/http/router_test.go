package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/adapters/memory"
	"github.com/sponticoupon/claim-redemption-service/internal/adapters/security"
	"github.com/sponticoupon/claim-redemption-service/internal/application"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

type routerFixture struct {
	router     http.Handler
	store      *memory.Store
	signer     *security.JWTSigner
	deal       domain.Deal
	customerID uuid.UUID
	ready      error
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	signer, err := security.NewEphemeralJWTSigner("test")
	require.NoError(t, err)

	store := memory.NewStore()
	deposit := 5.0
	deal := domain.Deal{
		DealID:        uuid.New(),
		VendorID:      uuid.New(),
		Title:         "Half-price espresso",
		DealPrice:     5,
		DepositAmount: &deposit,
		ExpiresAt:     time.Now().Add(48 * time.Hour),
	}
	store.PutDeal(deal)

	svc := application.NewService(application.Dependencies{
		Config:      application.Config{PublicBaseURL: "https://deals.example.com"},
		Claims:      store,
		Deals:       store,
		Redemptions: store,
		Vendors:     store,
		Lockouts:    memory.NewLockoutStore(),
		Credentials: security.NewCredentialGenerator(),
		Signatures:  security.NewHMACSignatureVerifier(),
	})

	f := &routerFixture{store: store, signer: signer, deal: deal, customerID: uuid.New()}
	handler := NewHandler(svc, signer, func(context.Context) error { return f.ready })
	f.router = NewRouter(handler, nil)
	return f
}

func (f *routerFixture) addClaim(tier domain.PaymentTier, token string) domain.Claim {
	c := domain.Claim{
		ClaimID:      uuid.New(),
		CustomerID:   f.customerID,
		DealID:       f.deal.DealID,
		SessionToken: token,
		PaymentTier:  tier,
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		CreatedAt:    time.Now(),
	}
	f.store.PutClaim(c)
	return c
}

func (f *routerFixture) token(t *testing.T, claims ports.AuthClaims) string {
	t.Helper()
	claims.IssuedAt = time.Now()
	claims.ExpiresAt = time.Now().Add(time.Hour)
	raw, err := f.signer.Sign(claims)
	require.NoError(t, err)
	return raw
}

func (f *routerFixture) customerToken(t *testing.T) string {
	return f.token(t, ports.AuthClaims{UserID: f.customerID, Role: ports.RoleCustomer})
}

func (f *routerFixture) staffToken(t *testing.T) string {
	vendorID := f.deal.VendorID
	return f.token(t, ports.AuthClaims{UserID: uuid.New(), Role: ports.RoleVendorStaff, VendorID: &vendorID})
}

func (f *routerFixture) do(t *testing.T, method, path, bearer string, body []byte, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestHealthAndReadiness(t *testing.T) {
	f := newRouterFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/healthz", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec, _ = f.do(t, http.MethodGet, "/readyz", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.ready = errors.New("postgres down")
	rec, env := f.do(t, http.MethodGet, "/readyz", "", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT_READY", env.Code)
}

func TestSelfReportRequiresCustomerToken(t *testing.T) {
	f := newRouterFixture(t)
	f.addClaim(domain.PaymentTierManual, "sess-manual")
	body := []byte(`{"session_token":"sess-manual"}`)

	rec, env := f.do(t, http.MethodPost, "/v1/claims/deposit/self-report", "", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Code)

	rec, env = f.do(t, http.MethodPost, "/v1/claims/deposit/self-report", "not-a-jwt", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Code)

	rec, env = f.do(t, http.MethodPost, "/v1/claims/deposit/self-report", f.staffToken(t), body, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Code)
}

func TestSelfReportAndRedeemFlow(t *testing.T) {
	f := newRouterFixture(t)
	claim := f.addClaim(domain.PaymentTierManual, "sess-flow")
	customer := f.customerToken(t)

	rec, env := f.do(t, http.MethodPost, "/v1/claims/deposit/self-report", customer, []byte(`{"session_token":"sess-flow"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	var confirmed application.DepositConfirmation
	require.NoError(t, json.Unmarshal(env.Data, &confirmed))
	assert.True(t, confirmed.Success)
	assert.False(t, confirmed.AlreadyConfirmed)
	assert.Equal(t, claim.ClaimID, confirmed.ClaimID)
	assert.Equal(t, "https://deals.example.com/redeem/"+confirmed.QRCode, confirmed.QRCodeURL)
	assert.Len(t, confirmed.RedemptionCode, domain.RedemptionCodeLength)

	rec, env = f.do(t, http.MethodGet, "/v1/claims/sess-flow/status", customer, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status application.ClaimStatusResult
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, domain.ClaimStatusValid, status.Status)

	staff := f.staffToken(t)
	rec, env = f.do(t, http.MethodGet, "/v1/redemptions/"+confirmed.QRCode, staff, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, domain.ClaimStatusValid, status.Status)

	redeemBody, _ := json.Marshal(application.RedeemRequest{Credential: confirmed.QRCode})
	rec, env = f.do(t, http.MethodPost, "/v1/redemptions", staff, redeemBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	var redeemed application.RedeemResult
	require.NoError(t, json.Unmarshal(env.Data, &redeemed))
	require.NotNil(t, redeemed.RedeemedAt)
	assert.True(t, redeemed.Redemption.CollectionCompleted)

	rec, env = f.do(t, http.MethodPost, "/v1/redemptions", f.staffToken(t), redeemBody, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_REDEEMED", env.Code)
	var details alreadyRedeemedDetails
	require.NoError(t, json.Unmarshal(env.Details, &details))
	require.NotNil(t, details.RedeemedAt)
	assert.True(t, redeemed.RedeemedAt.Equal(*details.RedeemedAt))
	require.NotNil(t, details.ScannedBy)
	assert.Equal(t, redeemed.Redemption.ScannedBy, *details.ScannedBy)
}

func TestWebhookWithoutSecretReturnsAck(t *testing.T) {
	f := newRouterFixture(t)
	claim := f.addClaim(domain.PaymentTierLink, "tok123")

	rec, env := f.do(t, http.MethodPost, "/v1/webhooks/deposit-confirmation", "",
		[]byte(`{"data":{"object":{"client_reference_id":"tok123"}}}`), nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	var ack map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	assert.Equal(t, claim.ClaimID.String(), ack["claim_id"])
	assert.NotEmpty(t, ack["qr_code"])
	assert.NotContains(t, ack, "redemption_code")
}

func TestWebhookSignatureIsCheckedOverRawBody(t *testing.T) {
	f := newRouterFixture(t)
	f.store.PutVendor(domain.VendorWebhookConfig{VendorID: f.deal.VendorID, WebhookSecret: "whsec_test"})
	claim := f.addClaim(domain.PaymentTierIntegrated, "tok-signed")

	signed := []byte(`{"sessionToken":"tok-signed"}`)
	tampered := []byte(`{"sessionToken":"tok-signed","amount":0}`)
	headers := map[string]string{
		"X-Webhook-Signature": security.ComputeSignature(signed, "whsec_test"),
		"X-Vendor-Id":         f.deal.VendorID.String(),
	}

	rec, env := f.do(t, http.MethodPost, "/v1/webhooks/deposit-confirmation", "", tampered, headers)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
	current, _ := f.store.Claim(claim.ClaimID)
	assert.False(t, current.DepositConfirmed)

	rec, env = f.do(t, http.MethodPost, "/v1/webhooks/deposit-confirmation", "", signed, headers)
	assert.Equal(t, http.StatusOK, rec.Code, env.Message)
}

func TestWebhookErrorMapping(t *testing.T) {
	f := newRouterFixture(t)

	rec, env := f.do(t, http.MethodPost, "/v1/webhooks/deposit-confirmation", "", []byte(`{"amount":5}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PAYLOAD", env.Code)

	rec, env = f.do(t, http.MethodPost, "/v1/webhooks/deposit-confirmation", "", []byte(`{"sessionToken":"missing"}`), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestRedeemValidationAndLookupErrors(t *testing.T) {
	f := newRouterFixture(t)
	staff := f.staffToken(t)

	rec, env := f.do(t, http.MethodPost, "/v1/redemptions", staff, []byte(`{"credential":"abc","extra":true}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)

	rec, env = f.do(t, http.MethodGet, "/v1/redemptions/unknown-qr-code", staff, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Code)

	rec, env = f.do(t, http.MethodGet, "/v1/redemptions/unknown-qr-code", f.customerToken(t), nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Code)
}

func TestSelfReportWrongTierMapsToBadRequest(t *testing.T) {
	f := newRouterFixture(t)
	f.addClaim(domain.PaymentTierLink, "sess-link")

	rec, env := f.do(t, http.MethodPost, "/v1/claims/deposit/self-report", f.customerToken(t), []byte(`{"session_token":"sess-link"}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "WRONG_PAYMENT_TIER", env.Code)
}

func TestWebhookForManualTierMapsToBadRequest(t *testing.T) {
	f := newRouterFixture(t)
	f.addClaim(domain.PaymentTierManual, "sess-manual-hook")

	rec, env := f.do(t, http.MethodPost, "/v1/webhooks/deposit-confirmation", "", []byte(`{"sessionToken":"sess-manual-hook"}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "WRONG_PAYMENT_TIER", env.Code)
}
