package auth

import (
	"context"
	"errors"
	"net/http"
)

// Authenticator verifies the credentials carried in request headers.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: credential problems wrap one of the package sentinels so
//     callers can tell 401 from 500 with errors.Is.
type Authenticator interface {
	// Name identifies the authenticator in logs.
	Name() string

	// Supports reports whether the headers carry a credential this
	// authenticator understands.
	Supports(h http.Header) bool

	// Authenticate verifies the credential and returns the caller.
	Authenticate(ctx context.Context, h http.Header) (*Identity, error)
}

var credentialErrors = []error{
	ErrMissingCredentials,
	ErrInvalidCredentials,
	ErrTokenExpired,
	ErrTokenMalformed,
}

// IsCredentialError reports whether err means the caller failed to
// authenticate, as opposed to an internal failure.
func IsCredentialError(err error) bool {
	for _, target := range credentialErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
