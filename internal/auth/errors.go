package auth

import "errors"

// Every operation in this package fails with one of these conditions. They
// are all recoverable by the caller; the HTTP layer translates each to a
// status code and machine-readable error code.
var (
	// ErrAccountExists: registration against an email that is already taken.
	ErrAccountExists = errors.New("account already exists")

	// ErrUnknownAccount: no account matches the given email or token subject.
	ErrUnknownAccount = errors.New("account not found")

	// ErrAccountUnconfirmed: login attempted before the email was confirmed.
	ErrAccountUnconfirmed = errors.New("account email not confirmed")

	// ErrBadCredential: the password does not match the stored hash.
	ErrBadCredential = errors.New("invalid credentials")

	// ErrTokenInvalid: signature mismatch, malformed structure, or a
	// single-use token that was already consumed.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired: the token is past its embedded expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenScopeMismatch: a token issued for one purpose was presented
	// where another is required. Hard reject, possible abuse.
	ErrTokenScopeMismatch = errors.New("token scope mismatch")

	// ErrRefreshReuseDetected: a rotated-away refresh token was presented
	// again. The stored token is revoked as a side effect; the caller must
	// log in again.
	ErrRefreshReuseDetected = errors.New("refresh token reuse detected")
)
