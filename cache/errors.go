package cache

import "errors"

// Sentinel errors returned by the cache. Callers should match them with
// errors.Is; most are wrapped with context.
var (
	// ErrInvalidInput indicates a question that normalizes to nothing.
	ErrInvalidInput = errors.New("cache: invalid input")

	// ErrInvalidValue indicates a missing question or answer on insert or
	// refresh. Nothing is applied.
	ErrInvalidValue = errors.New("cache: invalid value")

	// ErrInitialization indicates the cache directory or file could not be
	// prepared. The handle keeps working in memory only.
	ErrInitialization = errors.New("cache: initialization failed")

	// ErrSave indicates the cache file could not be written. The previous
	// file is left intact and the store stays dirty.
	ErrSave = errors.New("cache: save failed")

	// ErrNotFound indicates an unknown entry hash.
	ErrNotFound = errors.New("cache: entry not found")

	// ErrDisabled is returned by operations that cannot be no-ops when the
	// cache is disabled.
	ErrDisabled = errors.New("cache: disabled")

	// ErrWriteBusy indicates the context ended while waiting for another
	// mutation to finish. The caller may retry.
	ErrWriteBusy = errors.New("cache: write in progress")

	// ErrInvalidConfig indicates a Config that fails Validate.
	ErrInvalidConfig = errors.New("cache: invalid config")

	// ErrClosed indicates use of a cache after Shutdown, or of a Responder
	// after Close.
	ErrClosed = errors.New("cache: closed")

	// ErrNoGenerator indicates a Responder built without a GenerateFunc.
	ErrNoGenerator = errors.New("cache: generator is required")
)
