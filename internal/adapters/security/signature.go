package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// HMACSignatureVerifier validates "sha256=<hex>" webhook signatures computed
// over the raw request body.
type HMACSignatureVerifier struct{}

func NewHMACSignatureVerifier() HMACSignatureVerifier {
	return HMACSignatureVerifier{}
}

func (HMACSignatureVerifier) Verify(rawBody []byte, providedSignature, sharedSecret string) bool {
	if sharedSecret == "" {
		return false
	}
	provided, ok := strings.CutPrefix(strings.TrimSpace(providedSignature), signaturePrefix)
	if !ok || provided == "" {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(provided))
	if err != nil {
		return false
	}
	return hmac.Equal(got, computeMAC(rawBody, sharedSecret))
}

// ComputeSignature returns the header value a processor would send for body.
func ComputeSignature(rawBody []byte, sharedSecret string) string {
	return signaturePrefix + hex.EncodeToString(computeMAC(rawBody, sharedSecret))
}

func computeMAC(rawBody []byte, sharedSecret string) []byte {
	mac := hmac.New(sha256.New, []byte(sharedSecret))
	mac.Write(rawBody)
	return mac.Sum(nil)
}
