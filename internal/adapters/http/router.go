package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sponticoupon/claim-redemption-service/internal/application"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

// Handler adapts the claim lifecycle use-cases to HTTP.
type Handler struct {
	service *application.Service
	tokens  ports.TokenVerifier
	ready   func(context.Context) error
}

func NewHandler(service *application.Service, tokens ports.TokenVerifier, ready func(context.Context) error) *Handler {
	return &Handler{service: service, tokens: tokens, ready: ready}
}

// NewRouter registers the public routes. metrics may be nil.
func NewRouter(handler *Handler, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/webhooks/deposit-confirmation", handler.depositWebhook)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(ports.RoleCustomer))
				r.Post("/claims/deposit/self-report", handler.selfReportDeposit)
				r.Get("/claims/{session_token}/status", handler.claimStatus)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(ports.RoleVendor, ports.RoleVendorStaff, ports.RoleAdmin))
				r.Get("/redemptions/{credential}", handler.redemptionStatus)
				r.Post("/redemptions", handler.redeem)
			})
		})
	})

	return r
}
