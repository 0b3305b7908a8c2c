package execution

import "errors"

var (
	// ErrInvalidTimeout is returned when registering an operation with a
	// non-positive timeout
	ErrInvalidTimeout = errors.New("execution timeout must be positive")
	// ErrUnknownOperation is returned for operations never registered
	ErrUnknownOperation = errors.New("operation not registered with wrapper")
	// ErrAlreadyRegistered is returned when registering a duplicate operation
	ErrAlreadyRegistered = errors.New("operation already registered with wrapper")
	// ErrExecutionTimeout is returned when an operation exceeds its
	// timeout budget. Counted as a breaker failure.
	ErrExecutionTimeout = errors.New("execution exceeded timeout")
	// ErrMemoryCeiling is returned when the pre-admission memory check
	// rejects an execution. A steady-state condition, not a breaker failure.
	ErrMemoryCeiling = errors.New("memory usage exceeds operation ceiling")
)
