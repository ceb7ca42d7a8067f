package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/adapters/memory"
	"github.com/sponticoupon/claim-redemption-service/internal/adapters/security"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

type recordingNotifier struct {
	mu       sync.Mutex
	err      error
	deposits []ports.DepositConfirmedEvent
	redeemed []ports.ClaimRedeemedEvent
}

func (n *recordingNotifier) DepositConfirmed(_ context.Context, event ports.DepositConfirmedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deposits = append(n.deposits, event)
	return n.err
}

func (n *recordingNotifier) ClaimRedeemed(_ context.Context, event ports.ClaimRedeemedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redeemed = append(n.redeemed, event)
	return n.err
}

func (n *recordingNotifier) depositCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.deposits)
}

type recordingMetrics struct {
	mu         sync.Mutex
	signatures map[string]int
}

func (m *recordingMetrics) ObserveSignatureCheck(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signatures[outcome]++
}

func (m *recordingMetrics) ObserveDepositConfirmation(string, string) {}
func (m *recordingMetrics) ObserveRedemption(string) {}

func (m *recordingMetrics) signatureCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signatures[outcome]
}

// scriptedGenerator replays fixed credentials before falling back to a real
// generator.
type scriptedGenerator struct {
	mu       sync.Mutex
	script   []ports.Credential
	fallback ports.CredentialGenerator
}

func (g *scriptedGenerator) Generate() (ports.Credential, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.script) > 0 {
		next := g.script[0]
		g.script = g.script[1:]
		return next, nil
	}
	return g.fallback.Generate()
}

type fixture struct {
	svc        *Service
	store      *memory.Store
	notifier   *recordingNotifier
	metrics    *recordingMetrics
	now        time.Time
	vendorID   uuid.UUID
	customerID uuid.UUID
	deal       domain.Deal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2026, 5, 14, 18, 30, 0, 0, time.UTC)
	store := memory.NewStore()
	deposit := 10.0
	deal := domain.Deal{
		DealID:        uuid.New(),
		VendorID:      uuid.New(),
		Title:         "Two tacos for one",
		DealPrice:     40,
		DepositAmount: &deposit,
		ExpiresAt:     now.Add(7 * 24 * time.Hour),
	}
	store.PutDeal(deal)

	notifier := &recordingNotifier{}
	metrics := &recordingMetrics{signatures: make(map[string]int)}
	svc := NewService(Dependencies{
		Config: Config{
			PublicBaseURL:        "https://deals.example.com/",
			ScanLockoutThreshold: 3,
			ScanLockoutWindow:    time.Minute,
		},
		Claims:      store,
		Deals:       store,
		Redemptions: store,
		Vendors:     store,
		Lockouts:    memory.NewLockoutStore(),
		Credentials: security.NewCredentialGenerator(),
		Signatures:  security.NewHMACSignatureVerifier(),
		Notifier:    notifier,
		Metrics:     metrics,
	})
	svc.nowFn = func() time.Time { return now }
	svc.goFn = func(fn func()) { fn() }

	return &fixture{
		svc:        svc,
		store:      store,
		notifier:   notifier,
		metrics:    metrics,
		now:        now,
		vendorID:   deal.VendorID,
		customerID: uuid.New(),
		deal:       deal,
	}
}

func (f *fixture) addClaim(tier domain.PaymentTier, sessionToken string, expiresIn time.Duration) domain.Claim {
	c := domain.Claim{
		ClaimID:      uuid.New(),
		CustomerID:   f.customerID,
		DealID:       f.deal.DealID,
		VendorID:     f.vendorID,
		SessionToken: sessionToken,
		PaymentTier:  tier,
		ExpiresAt:    f.now.Add(expiresIn),
		CreatedAt:    f.now.Add(-time.Hour),
	}
	f.store.PutClaim(c)
	return c
}

func (f *fixture) claim(id uuid.UUID) domain.Claim {
	c, _ := f.store.Claim(id)
	return c
}

func (f *fixture) claimsCount() int {
	d, _ := f.store.Deal(f.deal.DealID)
	return d.ClaimsCount
}

func (f *fixture) customer() ports.AuthClaims {
	return ports.AuthClaims{UserID: f.customerID, Role: ports.RoleCustomer}
}

func (f *fixture) staff() ports.AuthClaims {
	vendorID := f.vendorID
	return ports.AuthClaims{UserID: uuid.New(), Role: ports.RoleVendorStaff, VendorID: &vendorID}
}

var errNotifierDown = errors.New("notifier down")
