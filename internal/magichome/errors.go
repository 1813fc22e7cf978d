package magichome

import "errors"

// Domain-specific errors for bulb transport operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectFailed is returned when the TCP connection cannot be established.
	ErrConnectFailed = errors.New("magichome: connect failed")

	// ErrWriteFailed is returned when a command frame cannot be written.
	ErrWriteFailed = errors.New("magichome: write failed")

	// ErrReadFailed is returned when a status response cannot be read.
	ErrReadFailed = errors.New("magichome: read failed")

	// ErrShortResponse is returned when a status response is too short to parse.
	ErrShortResponse = errors.New("magichome: short status response")
)
