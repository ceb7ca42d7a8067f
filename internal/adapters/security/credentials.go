package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"

	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

const (
	// opaqueCodeBytes gives 128 bits of entropy; the QR payload is unguessable.
	opaqueCodeBytes = 16
)

var humanCodeSpace = big.NewInt(1_000_000)

// CredentialGenerator mints redemption credentials from a CSPRNG.
type CredentialGenerator struct {
	entropy io.Reader
}

// NewCredentialGenerator returns a generator backed by crypto/rand.
func NewCredentialGenerator() *CredentialGenerator {
	return &CredentialGenerator{entropy: rand.Reader}
}

func (g *CredentialGenerator) Generate() (ports.Credential, error) {
	raw := make([]byte, opaqueCodeBytes)
	if _, err := io.ReadFull(g.entropy, raw); err != nil {
		return ports.Credential{}, fmt.Errorf("read opaque code entropy: %w", err)
	}
	n, err := rand.Int(g.entropy, humanCodeSpace)
	if err != nil {
		return ports.Credential{}, fmt.Errorf("draw redemption code: %w", err)
	}
	return ports.Credential{
		QRCode:         base64.RawURLEncoding.EncodeToString(raw),
		RedemptionCode: fmt.Sprintf("%0*d", domain.RedemptionCodeLength, n.Int64()),
	}, nil
}
