package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Secret is the shared HS256 signing key. Required.
	Secret []byte

	// Issuer is the expected iss claim; empty skips the check.
	Issuer string

	// Audience is the expected aud claim; empty skips the check.
	Audience string

	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration
}

// Claims is the token payload understood by the admin API.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

const bearerPrefix = "Bearer "

// JWTAuthenticator validates HS256 bearer tokens from the Authorization
// header.
type JWTAuthenticator struct {
	config JWTConfig
	parser *jwt.Parser
	now    func() time.Time
}

// NewJWTAuthenticator creates a JWT authenticator. An empty secret is
// rejected with ErrInvalidConfig.
func NewJWTAuthenticator(config JWTConfig) (*JWTAuthenticator, error) {
	if len(config.Secret) == 0 {
		return nil, fmt.Errorf("%w: jwt secret is required", ErrInvalidConfig)
	}

	a := &JWTAuthenticator{config: config, now: time.Now}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(config.Leeway),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return a.now() }),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	a.parser = jwt.NewParser(opts...)

	return a, nil
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// Supports reports whether the Authorization header carries a bearer token.
func (a *JWTAuthenticator) Supports(h http.Header) bool {
	return strings.HasPrefix(h.Get("Authorization"), bearerPrefix)
}

// Authenticate validates the bearer token and maps its claims to an
// Identity.
func (a *JWTAuthenticator) Authenticate(_ context.Context, h http.Header) (*Identity, error) {
	raw, ok := strings.CutPrefix(h.Get("Authorization"), bearerPrefix)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return nil, ErrMissingCredentials
	}

	var claims Claims
	_, err := a.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.config.Secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidCredentials)
	}

	id := &Identity{
		Principal: claims.Subject,
		Method:    MethodJWT,
		Roles:     claims.Roles,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// Issue signs a token for subject carrying roles. A zero ttl issues a token
// without expiry.
func (a *JWTAuthenticator) Issue(subject string, roles []string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			Issuer:   a.config.Issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if a.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{a.config.Audience}
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.config.Secret)
}

var _ Authenticator = (*JWTAuthenticator)(nil)
