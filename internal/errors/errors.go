package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ConfigInvalid indicates missing/invalid tool paths or parallelism
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ResolutionFailed indicates the change set could not be listed
	ResolutionFailed ErrorCode = "RESOLUTION_FAILED"
	// SnapshotFailed indicates staged content could not be materialized
	SnapshotFailed ErrorCode = "SNAPSHOT_FAILED"
	// CheckerFailed indicates an external checker exited non-zero under the
	// fatal failure policy
	CheckerFailed ErrorCode = "CHECKER_FAILED"
	// AssemblyDegraded indicates a partial output could not be read
	AssemblyDegraded ErrorCode = "ASSEMBLY_DEGRADED"
	// RemediationFailed indicates the patch did not apply to the index
	RemediationFailed ErrorCode = "REMEDIATION_FAILED"
	// Timeout indicates a git invocation timed out
	Timeout ErrorCode = "TIMEOUT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// GateError represents a pipeline error with a stable code, a message, and
// optional hints telling the user what to do next.
type GateError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Hints   []string  `json:"hints,omitempty"`
	cause   error     // underlying error, not exported to JSON
}

// New creates a new GateError
func New(code ErrorCode, message string, cause error, hints ...string) *GateError {
	return &GateError{
		Code:    code,
		Message: message,
		Hints:   hints,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *GateError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *GateError) Unwrap() error {
	return e.cause
}

// CodeOf returns the ErrorCode of err if it is (or wraps) a GateError,
// and InternalError otherwise.
func CodeOf(err error) ErrorCode {
	var ge *GateError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return InternalError
}
