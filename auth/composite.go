package auth

import (
	"context"
	"net/http"
)

// CompositeAuthenticator tries authenticators in order and returns the
// first identity. Authenticators that do not support the request are
// skipped.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite authenticator. Nil entries
// are dropped.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	c := &CompositeAuthenticator{}
	for _, a := range auths {
		if a != nil {
			c.authenticators = append(c.authenticators, a)
		}
	}
	return c
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string {
	return "composite"
}

// Len returns the number of configured authenticators.
func (c *CompositeAuthenticator) Len() int {
	return len(c.authenticators)
}

// Supports reports whether any authenticator supports the headers.
func (c *CompositeAuthenticator) Supports(h http.Header) bool {
	for _, a := range c.authenticators {
		if a.Supports(h) {
			return true
		}
	}
	return false
}

// Authenticate returns the first successful identity. Internal errors stop
// the chain; otherwise the last credential error is returned.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, h http.Header) (*Identity, error) {
	lastErr := ErrMissingCredentials
	for _, a := range c.authenticators {
		if !a.Supports(h) {
			continue
		}
		id, err := a.Authenticate(ctx, h)
		if err == nil {
			return id, nil
		}
		if !IsCredentialError(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
