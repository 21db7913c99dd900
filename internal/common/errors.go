// Package common defines shared constants and sentinel errors used across
// the authd server, its transport, and the admin CLI. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors. Everything except ErrorInternal is an expected
	// outcome that transports map to a client-facing status.
	ErrorInternal        = errors.New("internal error")
	ErrorUnauthorized    = errors.New("invalid email or password")
	ErrorInvalidRequest  = errors.New("invalid request")
	ErrorUnauthenticated = errors.New("token not provided")
	ErrorForbidden       = errors.New("invalid or expired token")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
