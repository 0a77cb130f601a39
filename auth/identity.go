package auth

import (
	"slices"
	"time"
)

// Roles understood by the admin API.
const (
	RoleRead  = "cache.read"
	RoleAdmin = "cache.admin"
)

// implied lists the roles each role grants in addition to itself.
var implied = map[string][]string{
	RoleAdmin: {RoleRead},
}

// Method identifies how an identity was authenticated.
type Method string

const (
	MethodJWT    Method = "jwt"
	MethodAPIKey Method = "api_key"
)

// Identity is an authenticated caller of the admin API.
type Identity struct {
	// Principal is the token subject or the API key owner.
	Principal string

	// Method is the authenticator that produced this identity.
	Method Method

	// Roles granted to the caller.
	Roles []string

	// KeyID is the API key identifier; empty for tokens.
	KeyID string

	// ExpiresAt is when the credential expires (zero = never).
	ExpiresAt time.Time
}

// HasRole reports whether the identity holds role directly or through an
// implying role.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == role || slices.Contains(implied[r], role) {
			return true
		}
	}
	return false
}

// IsExpired reports whether the credential has expired at now.
func (i *Identity) IsExpired(now time.Time) bool {
	return i != nil && !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}
