package ports

import (
	"errors"
	"fmt"
	"time"
)

// Common errors reported by external services.
var (
	// ErrRateLimited indicates that the service rejected the request because
	// a rate or quota limit was exhausted. It is the only transient class.
	ErrRateLimited = errors.New("rate limited")

	// ErrTokenLimitExceeded indicates the prompt is too large for the model
	// or the configured budget.
	ErrTokenLimitExceeded = errors.New("token limit exceeded")

	// ErrServiceUnavailable indicates that the external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidResponse indicates that the service returned an unusable
	// response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrAuthenticationFailed indicates that authentication with the
	// service failed.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// TransientServiceError reports a failure that is expected to clear on its
// own, such as exhausted rate limits or quota.
type TransientServiceError struct {
	// Service names the backend that failed.
	Service string

	// Err is the underlying error.
	Err error

	// RetryAfter carries the server's retry hint, if it sent one.
	RetryAfter *time.Duration
}

// NewTransientServiceError wraps err as transient.
func NewTransientServiceError(service string, err error) *TransientServiceError {
	return &TransientServiceError{Service: service, Err: err}
}

// Error implements the error interface.
func (e *TransientServiceError) Error() string {
	msg := fmt.Sprintf("transient %s failure: %v", e.Service, e.Err)
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *TransientServiceError) Unwrap() error { return e.Err }

// Is makes every TransientServiceError match ErrRateLimited.
func (e *TransientServiceError) Is(target error) bool { return target == ErrRateLimited }

// IsTransient reports whether err is worth retrying. Classification relies
// on the error chain only, never on message text.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var transient *TransientServiceError
	return errors.As(err, &transient) || errors.Is(err, ErrRateLimited)
}

// RetryAfterHint returns the retry hint carried anywhere in err's chain.
func RetryAfterHint(err error) (time.Duration, bool) {
	var transient *TransientServiceError
	if errors.As(err, &transient) && transient.RetryAfter != nil {
		return *transient.RetryAfter, true
	}
	return 0, false
}

// LLMError attaches model and operation context to a completion failure.
type LLMError struct {
	// Model is the identifier of the model that produced the error.
	Model string

	// Operation is the name of the operation that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// NewLLMError creates a new LLMError.
func NewLLMError(model, operation string, err error) *LLMError {
	return &LLMError{Model: model, Operation: operation, Err: err}
}

// Error implements the error interface.
func (e *LLMError) Error() string {
	return fmt.Sprintf("LLM error: model=%s, operation=%s, err=%v", e.Model, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *LLMError) Unwrap() error { return e.Err }

// IsTransient reports whether the wrapped error is transient.
func (e *LLMError) IsTransient() bool { return IsTransient(e.Err) }
