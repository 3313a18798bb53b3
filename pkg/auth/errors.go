package auth

import "errors"

// Provider failures are normalized to this small set before they reach a
// caller; the view layer maps them 1:1 to user-facing messages.
var (
	ErrNetwork               = errors.New("auth provider unreachable")
	ErrBadCredentials        = errors.New("invalid email or password")
	ErrEmailTaken            = errors.New("an account with this email already exists")
	ErrProviderNotConfigured = errors.New("auth provider not configured")
)
