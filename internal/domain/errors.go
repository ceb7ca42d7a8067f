package domain

import "errors"

var (
	// ErrNotFound covers unknown session tokens, unknown credentials and claims
	// outside the caller's scope. Callers cannot tell these cases apart.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidPayload is returned when a webhook body cannot be parsed or
	// carries no recognizable session token.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrUnauthorized is returned for missing/invalid bearer tokens and for
	// webhook signatures that do not match the vendor's shared secret.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	// ErrWrongPaymentTier rejects self-reported deposits on claims that are
	// settled through a processor.
	ErrWrongPaymentTier = errors.New("claim payment tier does not allow self-reported deposits")
	ErrExpired          = errors.New("claim expired")
	// ErrAlreadyRedeemed is a classification rather than a failure. Results
	// returned alongside it still describe the original redemption.
	ErrAlreadyRedeemed     = errors.New("claim already redeemed")
	ErrAmbiguousCredential = errors.New("redemption code matches more than one claim")
	ErrRateLimited         = errors.New("rate limited")
	ErrConflict            = errors.New("conflict")
)
