package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sponticoupon/claim-redemption-service/internal/adapters/security"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSignMatchesVerifier(t *testing.T) {
	body := `{"sessionToken":"tok123"}`
	out, err := run(t, body, "sign", "--secret", "whsec_test")
	require.NoError(t, err)

	sig := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(sig, "sha256="))
	assert.True(t, security.NewHMACSignatureVerifier().Verify([]byte(body), sig, "whsec_test"))

	_, err = run(t, body, "sign")
	assert.Error(t, err)
}

func TestCredentialPrintsRequestedCount(t *testing.T) {
	out, err := run(t, "", "credential", "--count", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		parts := strings.Split(line, "\t")
		require.Len(t, parts, 2)
		assert.True(t, domain.IsRedemptionCode(parts[1]))
	}
}

func TestKeygenAndTokenRoundTrip(t *testing.T) {
	out, err := run(t, "", "keygen", "--kid", "dev")
	require.NoError(t, err)
	pubStart := strings.Index(out, "-----BEGIN PUBLIC KEY-----")
	require.Positive(t, pubStart)

	keyFile := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(keyFile, []byte(out[:pubStart]), 0o600))

	vendorID := uuid.New()
	tokenOut, err := run(t, "", "token", "--kid", "dev", "--key-file", keyFile, "--role", "vendor_staff", "--vendor", vendorID.String())
	require.NoError(t, err)

	verifier, err := security.NewJWTVerifier("dev", out[pubStart:])
	require.NoError(t, err)
	claims, err := verifier.ParseAndValidate(strings.TrimSpace(tokenOut))
	require.NoError(t, err)
	assert.Equal(t, ports.RoleVendorStaff, claims.Role)
	require.NotNil(t, claims.VendorID)
	assert.Equal(t, vendorID, *claims.VendorID)
}

func TestTokenClaimsValidation(t *testing.T) {
	now := time.Now().UTC()

	_, err := tokenClaims("superuser", "", "", time.Hour, now)
	assert.Error(t, err)
	_, err = tokenClaims(ports.RoleVendor, "", "", time.Hour, now)
	assert.ErrorContains(t, err, "--vendor")
	_, err = tokenClaims(ports.RoleCustomer, "not-a-uuid", "", time.Hour, now)
	assert.Error(t, err)
	_, err = tokenClaims(ports.RoleCustomer, "", "", 0, now)
	assert.Error(t, err)

	claims, err := tokenClaims(" Admin ", "", "", time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, ports.RoleAdmin, claims.Role)
	assert.Nil(t, claims.VendorID)
	assert.Equal(t, now.Add(time.Hour), claims.ExpiresAt)
}
