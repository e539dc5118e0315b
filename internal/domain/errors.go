package domain

import (
	"errors"
	"fmt"
	"strings"
)

// AnalysisUnavailableMessage is the only text callers outside the process
// ever see for a failed analysis. The underlying cause is logged instead.
const AnalysisUnavailableMessage = "analysis could not be generated, try again"

// Sentinel errors for the feedback domain. The typed errors below match them
// through errors.Is so callers can branch without type assertions.
var (
	// ErrInvalidInput indicates a malformed or incomplete request payload.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData indicates that there was nothing to aggregate.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrAnalysisUnavailable indicates the completion service could not
	// produce an analysis.
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
)

// InvalidInputError collects every problem found with a request so the
// caller can fix them in one pass.
type InvalidInputError struct {
	// Entity names what failed validation, e.g. "judge_record" or "subject".
	Entity string

	// Errors holds one human readable message per problem.
	Errors []string
}

// NewInvalidInputError creates an empty InvalidInputError for entity.
func NewInvalidInputError(entity string, msgs ...string) *InvalidInputError {
	e := &InvalidInputError{Entity: entity, Errors: make([]string, 0, len(msgs))}
	e.Errors = append(e.Errors, msgs...)
	return e
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	switch len(e.Errors) {
	case 0:
		return fmt.Sprintf("invalid %s", e.Entity)
	case 1:
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Errors[0])
	default:
		return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(e.Errors, "; "))
	}
}

// Is reports whether target is ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// AddError appends a problem description.
func (e *InvalidInputError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// AddErrorf appends a formatted problem description.
func (e *InvalidInputError) AddErrorf(format string, args ...any) {
	e.AddError(fmt.Sprintf(format, args...))
}

// HasErrors returns true if at least one problem was recorded.
func (e *InvalidInputError) HasErrors() bool { return len(e.Errors) > 0 }

// ErrOrNil returns e when it holds problems and nil otherwise, which keeps
// validation functions free of the typed-nil interface trap.
func (e *InvalidInputError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// InsufficientDataError is returned when aggregation receives no judge
// records.
type InsufficientDataError struct {
	// Subject is the evaluated entity, if known.
	Subject string
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	if e.Subject == "" {
		return "insufficient data: no judge feedback supplied"
	}
	return fmt.Sprintf("insufficient data: no judge feedback supplied for %s", e.Subject)
}

// Is reports whether target is ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// AnalysisUnavailableError wraps the last failure of the completion service
// after retries were exhausted or a permanent error occurred.
type AnalysisUnavailableError struct {
	// Operation is the analysis variant that failed.
	Operation string

	// Attempts is the number of completion calls made.
	Attempts int

	// Cause is the last error returned by the completion service.
	Cause error
}

// Error includes the cause and is meant for logs, not for callers.
func (e *AnalysisUnavailableError) Error() string {
	return fmt.Sprintf("analysis unavailable: operation=%s, attempts=%d: %v", e.Operation, e.Attempts, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *AnalysisUnavailableError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrAnalysisUnavailable.
func (e *AnalysisUnavailableError) Is(target error) bool { return target == ErrAnalysisUnavailable }

// PublicMessage returns the caller-safe description of the failure.
func (e *AnalysisUnavailableError) PublicMessage() string { return AnalysisUnavailableMessage }
