package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIKeyHeader carries API keys when no header is configured.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKey describes one registered key. Only the SHA-256 hash of the key is
// kept.
type APIKey struct {
	ID        string
	Hash      string
	Principal string
	Roles     []string
	ExpiresAt time.Time
}

// KeyStore finds API keys by hash.
type KeyStore interface {
	Lookup(ctx context.Context, hash string) (APIKey, bool, error)
}

// StaticKeyStore is an immutable KeyStore built at startup.
type StaticKeyStore struct {
	keys map[string]APIKey
}

// NewStaticKeyStore indexes keys by hash. Duplicate hashes or keys without
// a hash are rejected.
func NewStaticKeyStore(keys ...APIKey) (*StaticKeyStore, error) {
	s := &StaticKeyStore{keys: make(map[string]APIKey, len(keys))}
	for _, k := range keys {
		if k.Hash == "" {
			return nil, fmt.Errorf("%w: api key %q has no hash", ErrInvalidConfig, k.ID)
		}
		if _, dup := s.keys[k.Hash]; dup {
			return nil, fmt.Errorf("%w: api key %q registered twice", ErrInvalidConfig, k.ID)
		}
		s.keys[k.Hash] = k
	}
	return s, nil
}

// Lookup returns the key registered under hash.
func (s *StaticKeyStore) Lookup(_ context.Context, hash string) (APIKey, bool, error) {
	k, ok := s.keys[hash]
	return k, ok, nil
}

// Len returns the number of registered keys.
func (s *StaticKeyStore) Len() int { return len(s.keys) }

// HashAPIKey returns the hex SHA-256 of key, the form stored in a KeyStore.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// APIKeyAuthenticator validates static API keys.
type APIKeyAuthenticator struct {
	header string
	store  KeyStore
	now    func() time.Time
}

// NewAPIKeyAuthenticator reads keys from header, or DefaultAPIKeyHeader
// when header is empty.
func NewAPIKeyAuthenticator(header string, store KeyStore) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return &APIKeyAuthenticator{header: header, store: store, now: time.Now}
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string {
	return "api_key"
}

// Supports reports whether the API key header is present.
func (a *APIKeyAuthenticator) Supports(h http.Header) bool {
	return h.Get(a.header) != ""
}

// Authenticate hashes the presented key and looks it up.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, h http.Header) (*Identity, error) {
	key := strings.TrimSpace(h.Get(a.header))
	if key == "" {
		return nil, ErrMissingCredentials
	}

	info, ok, err := a.store.Lookup(ctx, HashAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("api key lookup: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !info.ExpiresAt.IsZero() && a.now().After(info.ExpiresAt) {
		return nil, fmt.Errorf("%w: api key %q", ErrTokenExpired, info.ID)
	}

	return &Identity{
		Principal: info.Principal,
		Method:    MethodAPIKey,
		Roles:     info.Roles,
		KeyID:     info.ID,
		ExpiresAt: info.ExpiresAt,
	}, nil
}

var (
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ KeyStore      = (*StaticKeyStore)(nil)
)
