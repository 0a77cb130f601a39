package config

import "errors"

var (
	// ErrLoad wraps failures reading or decoding configuration.
	ErrLoad = errors.New("config: load failed")

	// ErrInvalid wraps validation failures.
	ErrInvalid = errors.New("config: invalid")
)
