package ports

import (
	"time"

	"github.com/google/uuid"
)

// Credential is the pair handed to a customer once their deposit clears.
// QRCode is the opaque, high-entropy value encoded in the QR image;
// RedemptionCode is the short fallback staff can type by hand.
type Credential struct {
	QRCode         string
	RedemptionCode string
}

type CredentialGenerator interface {
	Generate() (Credential, error)
}

// SignatureVerifier checks a processor signature over the exact raw body.
type SignatureVerifier interface {
	Verify(rawBody []byte, providedSignature, sharedSecret string) bool
}

const (
	RoleCustomer    = "customer"
	RoleVendor      = "vendor"
	RoleVendorStaff = "vendor_staff"
	RoleAdmin       = "admin"
)

// AuthClaims is the verified identity behind a bearer token. VendorID is set
// for vendor owners and staff and scopes what they can look up or scan.
type AuthClaims struct {
	UserID    uuid.UUID
	Role      string
	VendorID  *uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
	KeyID     string
}

type TokenVerifier interface {
	ParseAndValidate(raw string) (AuthClaims, error)
}

type TokenSigner interface {
	Sign(claims AuthClaims) (string, error)
}
