package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Authenticate is HTTP middleware that authenticates every request with
// authn and attaches the resulting Identity to the request context.
//
// Credential failures answer 401 with a WWW-Authenticate challenge; other
// failures answer 500.
//
// Usage:
//
//	api := router.PathPrefix("/v1").Subrouter()
//	api.Use(auth.Authenticate(authn))
func Authenticate(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authn.Authenticate(r.Context(), r.Header)
			if err == nil && id.IsExpired(time.Now()) {
				err = ErrTokenExpired
			}
			if err != nil {
				if IsCredentialError(err) {
					w.Header().Set("WWW-Authenticate", `Bearer realm="answercache"`)
					writeError(w, http.StatusUnauthorized, err)
					return
				}
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole is HTTP middleware that admits only identities holding role.
// It must run inside Authenticate; a request without an identity answers
// 401.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id == nil {
				writeError(w, http.StatusUnauthorized, ErrMissingCredentials)
				return
			}
			if !id.HasRole(role) {
				writeError(w, http.StatusForbidden, fmt.Errorf("%w: %s requires %s", ErrForbidden, id.Principal, role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, err error) {
	msg := err.Error()
	// Internal details stay out of responses.
	if code == http.StatusInternalServerError {
		msg = "authentication unavailable"
	} else if errors.Is(err, ErrInvalidCredentials) {
		msg = ErrInvalidCredentials.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}
