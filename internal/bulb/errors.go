package bulb

import "errors"

// Domain-specific errors for the synchronisation core.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrBulbNotFound is returned when a bulb name matches no
	// configured bulb.
	ErrBulbNotFound = errors.New("bulb not found")

	// ErrNoTargets is returned when a target list resolves to no
	// configured bulbs.
	ErrNoTargets = errors.New("no valid targets")

	// ErrPollerRunning is returned when Start is called on a poller
	// that is already running.
	ErrPollerRunning = errors.New("poller already running")
)
