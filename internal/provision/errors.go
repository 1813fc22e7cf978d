package provision

import "errors"

// Sentinel errors for provisioning operations.
var (
	// ErrDisabled indicates the provisioner is disabled in configuration.
	ErrDisabled = errors.New("provision: disabled in configuration")

	// ErrNotConfigured indicates the home network credentials are missing.
	ErrNotConfigured = errors.New("provision: wifi credentials not configured")

	// ErrAssociateFailed indicates the wireless interface could not join
	// the bulb's access point.
	ErrAssociateFailed = errors.New("provision: failed to associate with bulb AP")

	// ErrDiscoveryFailed indicates the bulb did not answer the AT
	// discovery probe after association.
	ErrDiscoveryFailed = errors.New("provision: bulb discovery failed")

	// ErrCommandFailed indicates an AT configuration command was not
	// acknowledged by the bulb.
	ErrCommandFailed = errors.New("provision: AT command failed")

	// ErrWatcherRunning indicates Start was called while the watch loop
	// is already active.
	ErrWatcherRunning = errors.New("provision: watcher already running")
)
