package constants

import "errors"

var (
	// ErrNoBaseURL is returned when a client is built without a base URL.
	ErrNoBaseURL = errors.New("base url not set")
	// ErrNoAuthToken is returned when an operation requires a stored token.
	ErrNoAuthToken = errors.New("no auth token in store")
	// ErrClosed is returned when sending on a closed realtime connection.
	ErrClosed = errors.New("connection closed")
	// ErrTimeout is returned when the handshake does not complete in time.
	ErrTimeout = errors.New("timeout")
)
