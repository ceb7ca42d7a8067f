package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sponticoupon/claim-redemption-service/internal/adapters/security"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "claimctl",
		Short:         "Operator tooling for deal claims and redemptions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newSignCmd(), newCredentialCmd(), newKeygenCmd(), newTokenCmd())
	return root
}

func newSignCmd() *cobra.Command {
	var secret, file string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Compute the X-Webhook-Signature header for a payload",
		Long:  "Reads the exact webhook body from --file or stdin and prints the signature a vendor's processor must send.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				return errors.New("--secret is required")
			}
			var src io.Reader = cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			}
			body, err := io.ReadAll(src)
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), security.ComputeSignature(body, secret))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "vendor webhook secret")
	cmd.Flags().StringVar(&file, "file", "", "payload file (default stdin)")
	return cmd
}

func newCredentialCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Generate sample redemption credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 {
				return errors.New("--count must be positive")
			}
			gen := security.NewCredentialGenerator()
			for i := 0; i < count; i++ {
				cred, err := gen.Generate()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", cred.QRCode, cred.RedemptionCode)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "number of credentials")
	return cmd
}

func newKeygenCmd() *cobra.Command {
	var kid string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an RS256 keypair for local bearer tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := security.NewEphemeralJWTSigner(kid)
			if err != nil {
				return err
			}
			priv, err := signer.PrivateKeyPEM()
			if err != nil {
				return err
			}
			pub, err := signer.PublicKeyPEM()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), priv, pub)
			return nil
		},
	}
	cmd.Flags().StringVar(&kid, "kid", "claims-key-1", "key id")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		kid, keyFile, role, user, vendor string
		ttl                              time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		Long:  "Signs a token with the PEM key in --key-file or JWT_PRIVATE_KEY_PEM.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyPEM := os.Getenv("JWT_PRIVATE_KEY_PEM")
			if keyFile != "" {
				raw, err := os.ReadFile(keyFile)
				if err != nil {
					return err
				}
				keyPEM = string(raw)
			}
			if keyPEM == "" {
				return errors.New("--key-file or JWT_PRIVATE_KEY_PEM is required")
			}
			claims, err := tokenClaims(role, user, vendor, ttl, time.Now().UTC())
			if err != nil {
				return err
			}
			signer, err := security.NewJWTSigner(kid, keyPEM)
			if err != nil {
				return err
			}
			token, err := signer.Sign(claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&kid, "kid", "claims-key-1", "key id")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "PEM private key")
	cmd.Flags().StringVar(&role, "role", ports.RoleCustomer, "customer, vendor, vendor_staff or admin")
	cmd.Flags().StringVar(&user, "user", "", "user id (default random)")
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor id for vendor roles")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func tokenClaims(role, user, vendor string, ttl time.Duration, now time.Time) (ports.AuthClaims, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case ports.RoleCustomer, ports.RoleVendor, ports.RoleVendorStaff, ports.RoleAdmin:
	default:
		return ports.AuthClaims{}, fmt.Errorf("unknown role %q", role)
	}
	if ttl <= 0 {
		return ports.AuthClaims{}, errors.New("--ttl must be positive")
	}

	claims := ports.AuthClaims{Role: role, IssuedAt: now, ExpiresAt: now.Add(ttl)}
	if user == "" {
		claims.UserID = uuid.New()
	} else {
		id, err := uuid.Parse(user)
		if err != nil {
			return ports.AuthClaims{}, fmt.Errorf("parse --user: %w", err)
		}
		claims.UserID = id
	}

	needsVendor := role == ports.RoleVendor || role == ports.RoleVendorStaff
	switch {
	case vendor == "" && needsVendor:
		return ports.AuthClaims{}, fmt.Errorf("--vendor is required for role %s", role)
	case vendor != "":
		id, err := uuid.Parse(vendor)
		if err != nil {
			return ports.AuthClaims{}, fmt.Errorf("parse --vendor: %w", err)
		}
		claims.VendorID = &id
	}
	return claims, nil
}
