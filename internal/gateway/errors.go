package gateway

import "errors"

// Sentinel errors for gateway lifecycle operations.
var (
	// ErrGatewayNotStopped indicates that the gateway is not in the
	// stopped state when a start is attempted.
	ErrGatewayNotStopped = errors.New("gateway is not in stopped state")

	// ErrGatewayNotRunning indicates that the gateway is not running
	// when a stop is attempted.
	ErrGatewayNotRunning = errors.New("gateway is not running")

	// ErrNilConfig indicates that a nil configuration was provided.
	ErrNilConfig = errors.New("configuration is required")

	// ErrInvalidConfig indicates that the provided configuration failed
	// validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)
