// Package common defines shared sentinel errors used across the service
// layers. Callers should use errors.Is to match these values; the HTTP
// layer maps them onto status codes.
package common

import "errors"

var (
	// Auth errors (missing, malformed, or expired token).
	ErrorUnauthorized = errors.New("unauthorized")

	// Valid principal, but the operation is not allowed for its role
	// or it addresses another tenant's resource.
	ErrorForbidden = errors.New("forbidden")

	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Request-level validation errors.
	ErrorInvalidArgument = errors.New("invalid argument")

	// Store unreachable or operation deadline exceeded.
	ErrorUnavailable = errors.New("unavailable")
)
