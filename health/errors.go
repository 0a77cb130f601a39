package health

import "errors"

var (
	// ErrCheckFailed indicates a check reported an unhealthy component.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a check did not return before its deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates an unknown checker name.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrNilChecker indicates Register was called with a nil checker.
	ErrNilChecker = errors.New("health: nil checker")
)
