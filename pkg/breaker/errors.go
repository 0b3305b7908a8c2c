package breaker

import "errors"

// Configuration errors
var (
	ErrInvalidFailureThreshold = errors.New("failure threshold must be at least 1")
	ErrInvalidRecoveryTimeout  = errors.New("recovery timeout must be positive")
	ErrInvalidSuccessThreshold = errors.New("success threshold must be at least 1")
)

// Runtime errors
var (
	ErrCircuitOpen      = errors.New("circuit is open")
	ErrUnknownOperation = errors.New("operation not registered with breaker")
	ErrAlreadyRegistered = errors.New("operation already registered with breaker")
)
