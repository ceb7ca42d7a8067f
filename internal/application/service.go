package application

import (
	"time"

	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

const serviceName = "claim-redemption-service"

type Service struct {
	cfg         Config
	claims      ports.ClaimRepository
	deals       ports.DealRepository
	redemptions ports.RedemptionRepository
	vendors     ports.VendorRepository
	lockouts    ports.LockoutStore
	credentials ports.CredentialGenerator
	signatures  ports.SignatureVerifier
	notifier    ports.VendorNotifier
	metrics     ports.ClaimMetrics
	nowFn       func() time.Time
	// goFn runs best-effort side effects off the request path.
	goFn func(func())
}

type Dependencies struct {
	Config      Config
	Claims      ports.ClaimRepository
	Deals       ports.DealRepository
	Redemptions ports.RedemptionRepository
	Vendors     ports.VendorRepository
	Lockouts    ports.LockoutStore
	Credentials ports.CredentialGenerator
	Signatures  ports.SignatureVerifier
	Notifier    ports.VendorNotifier
	Metrics     ports.ClaimMetrics
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ScanLockoutThreshold <= 0 {
		cfg.ScanLockoutThreshold = 10
	}
	if cfg.ScanLockoutWindow <= 0 {
		cfg.ScanLockoutWindow = 15 * time.Minute
	}
	if cfg.CredentialAttempts <= 0 {
		cfg.CredentialAttempts = 3
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Service{
		cfg:         cfg,
		claims:      deps.Claims,
		deals:       deps.Deals,
		redemptions: deps.Redemptions,
		vendors:     deps.Vendors,
		lockouts:    deps.Lockouts,
		credentials: deps.Credentials,
		signatures:  deps.Signatures,
		notifier:    deps.Notifier,
		metrics:     metrics,
		nowFn:       func() time.Time { return time.Now().UTC() },
		goFn:        func(fn func()) { go fn() },
	}
}
