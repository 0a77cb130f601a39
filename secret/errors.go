package secret

import "errors"

var (
	// ErrMissingEnv is returned when a braced ${VAR} names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variable")

	// ErrUnknownProvider is returned for references to unregistered providers.
	ErrUnknownProvider = errors.New("secret: unknown provider")

	// ErrNotFound is returned when a provider has no value for a reference.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmpty is returned by strict resolvers when a secret resolves to "".
	ErrEmpty = errors.New("secret: empty value")
)
