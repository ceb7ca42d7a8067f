package domain

import "time"

// ClaimStatus is computed from stored flags at read time. It is never
// persisted, so an expired claim needs no background job to become expired.
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusValid    ClaimStatus = "valid"
	ClaimStatusRedeemed ClaimStatus = "redeemed"
	ClaimStatusExpired  ClaimStatus = "expired"
)

// DeriveStatus maps a claim to its lifecycle state at the given instant.
// Redemption wins over expiry: a claim redeemed before it lapsed stays redeemed.
func DeriveStatus(c Claim, now time.Time) ClaimStatus {
	switch {
	case c.Redeemed:
		return ClaimStatusRedeemed
	case c.Expired(now):
		return ClaimStatusExpired
	case c.DepositConfirmed:
		return ClaimStatusValid
	default:
		return ClaimStatusPending
	}
}

// SettlementFor snapshots the money side of a redemption from the deal.
// A deposit that covers the full price leaves nothing to collect at the counter.
func SettlementFor(d Deal) (deposit *float64, collectionCompleted bool) {
	if !d.RequiresDeposit() {
		return nil, d.DealPrice <= 0
	}
	amount := *d.DepositAmount
	return &amount, amount >= d.DealPrice
}
