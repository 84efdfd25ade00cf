package engine

import (
	"errors"
	"fmt"
)

// EngineError is the failure shape delivered inside a command's correlated
// Result. Construction of events and commands never fails; everything that
// can go wrong is detected at dispatch or completion time and reported here.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Identifier is the offending identifier, when the error is about one.
	Identifier string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeUnknownIdentifier: a command referenced a document, stream,
	// endpoint, outbound request, or entity that was never created or has
	// been revoked.
	ErrCodeUnknownIdentifier ErrorCode = "UNKNOWN_IDENTIFIER"

	// ErrCodeDuplicateCorrelation: a completion arrived for an identifier
	// that was already resolved. This is a correctness bug in a collaborator,
	// not a recoverable runtime condition.
	ErrCodeDuplicateCorrelation ErrorCode = "DUPLICATE_CORRELATION"

	// ErrCodeUnauthorized: an access-control command was denied by policy.
	// A normal, expected outcome - not a fault.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeStopped: the engine shut down before the command could run.
	ErrCodeStopped ErrorCode = "STOPPED"

	// ErrCodeIo: a storage task failed.
	ErrCodeIo ErrorCode = "IO_FAILED"

	// ErrCodeInternal: a collaborator failed in a way it did not classify.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Identifier)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewUnknownIdentifier builds the rejection for a command referencing an
// identifier that was never created or has been revoked.
func NewUnknownIdentifier(kind, identifier string) *EngineError {
	return &EngineError{
		Code:       ErrCodeUnknownIdentifier,
		Message:    "unknown " + kind,
		Identifier: identifier,
	}
}

// NewUnauthorized builds a policy denial.
func NewUnauthorized(message string) *EngineError {
	return &EngineError{Code: ErrCodeUnauthorized, Message: message}
}

// NewIoError wraps a failed storage task.
func NewIoError(task string, errText string) *EngineError {
	return &EngineError{Code: ErrCodeIo, Message: errText, Identifier: task}
}

func newStopped() *EngineError {
	return &EngineError{Code: ErrCodeStopped, Message: "engine stopped before command ran"}
}

func newDuplicateCorrelation(identifier string) *EngineError {
	return &EngineError{
		Code:       ErrCodeDuplicateCorrelation,
		Message:    "result already delivered",
		Identifier: identifier,
	}
}

// IsUnknownIdentifier reports whether err is an UNKNOWN_IDENTIFIER engine
// error. Uses errors.As to handle wrapped errors.
func IsUnknownIdentifier(err error) bool { return hasCode(err, ErrCodeUnknownIdentifier) }

// IsUnauthorized reports whether err is an UNAUTHORIZED engine error.
func IsUnauthorized(err error) bool { return hasCode(err, ErrCodeUnauthorized) }

// IsDuplicateCorrelation reports whether err is a DUPLICATE_CORRELATION
// engine error.
func IsDuplicateCorrelation(err error) bool { return hasCode(err, ErrCodeDuplicateCorrelation) }

func hasCode(err error, code ErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// asEngineError coerces a collaborator error into an EngineError, wrapping
// foreign errors as plain faults so every Result carries a uniform shape.
func asEngineError(err error) *EngineError {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee
	}
	return &EngineError{Code: ErrCodeInternal, Message: err.Error()}
}
