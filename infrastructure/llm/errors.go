package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ahrav/go-panel/internal/ports"
)

// Errors returned by providers and middleware.
var (
	ErrEmptyAPIKey      = errors.New("API key cannot be empty")
	ErrEmptyResponse    = errors.New("empty response from API")
	ErrNoResponseChoice = errors.New("no response choices returned")
)

// ErrorType classifies provider failures.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeAuthentication
	// ErrorTypeRateLimit covers both request-rate limits and exhausted
	// quota. It is the only transient class.
	ErrorTypeRateLimit
	ErrorTypeBadRequest
	ErrorTypeNotFound
	ErrorTypeServerError
	ErrorTypeContentPolicy
	ErrorTypeNetwork
	ErrorTypeTimeout
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeAuthentication: "authentication",
	ErrorTypeRateLimit:      "rate_limit",
	ErrorTypeBadRequest:     "bad_request",
	ErrorTypeNotFound:       "not_found",
	ErrorTypeServerError:    "server_error",
	ErrorTypeContentPolicy:  "content_policy",
	ErrorTypeNetwork:        "network",
	ErrorTypeTimeout:        "timeout",
}

// String returns the snake_case name of t, or "unknown".
func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ProviderError is the normalized form of every provider SDK error.
type ProviderError struct {
	Type       ErrorType
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

// NewProviderError creates a ProviderError.
func NewProviderError(provider string, errType ErrorType, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		Type:       errType,
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	msg := e.Provider + " error"
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Type != ErrorTypeUnknown {
		msg += fmt.Sprintf(" [%s]", e.Type)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the SDK error.
func (e *ProviderError) Unwrap() error { return e.Err }

// Is maps provider classes onto the shared port sentinels so callers never
// need to import this package to classify an error.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ports.ErrRateLimited:
		return e.Type == ErrorTypeRateLimit
	case ports.ErrAuthenticationFailed:
		return e.Type == ErrorTypeAuthentication
	case ports.ErrServiceUnavailable:
		return e.Type == ErrorTypeServerError
	default:
		return false
	}
}

// IsTransient reports whether the failure may clear on retry.
func (e *ProviderError) IsTransient() bool { return e.Type == ErrorTypeRateLimit }

// ErrorClassifier turns transport level signals into ProviderErrors.
type ErrorClassifier struct {
	Provider string
}

// ClassifyHTTPError maps an HTTP status to an ErrorType.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ProviderError {
	var errType ErrorType
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		errType = ErrorTypeAuthentication
		message = ec.Provider + " authentication failed"
	case statusCode == http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
		if message == "" {
			message = ec.Provider + " rate limit exceeded"
		}
	case statusCode == http.StatusNotFound:
		errType = ErrorTypeNotFound
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		errType = ErrorTypeTimeout
	case statusCode >= 400 && statusCode < 500:
		errType = ErrorTypeBadRequest
	case statusCode >= 500:
		errType = ErrorTypeServerError
	default:
		errType = ErrorTypeUnknown
	}
	return NewProviderError(ec.Provider, errType, statusCode, message, err)
}

// ClassifyStatus maps a gRPC style status name, as reported by Google APIs,
// to an ErrorType. It returns false for names it does not know.
func (ec *ErrorClassifier) ClassifyStatus(status string) (ErrorType, bool) {
	switch status {
	case "RESOURCE_EXHAUSTED":
		return ErrorTypeRateLimit, true
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return ErrorTypeAuthentication, true
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION":
		return ErrorTypeBadRequest, true
	case "NOT_FOUND":
		return ErrorTypeNotFound, true
	case "DEADLINE_EXCEEDED":
		return ErrorTypeTimeout, true
	case "UNAVAILABLE", "INTERNAL":
		return ErrorTypeServerError, true
	default:
		return ErrorTypeUnknown, false
	}
}

// ClassifyContextError wraps cancellation and deadline errors.
func (ec *ErrorClassifier) ClassifyContextError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ec.Provider, ErrorTypeTimeout, 0, "context deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ec.Provider, ErrorTypeNetwork, 0, "request canceled", err)
	default:
		return NewProviderError(ec.Provider, ErrorTypeUnknown, 0, "", err)
	}
}

// markTransient wraps the SDK error of a rate-limited perr in a
// ports.TransientServiceError carrying the retry hint found in header.
// Other classes are returned unchanged. header may be nil.
func markTransient(perr *ProviderError, header http.Header) *ProviderError {
	if perr.Type != ErrorTypeRateLimit {
		return perr
	}
	transient := ports.NewTransientServiceError(perr.Provider, perr.Err)
	if delay, ok := parseRetryAfter(header, time.Now()); ok {
		transient.RetryAfter = &delay
	}
	perr.Err = transient
	return perr
}

// parseRetryAfter reads Retry-After-Ms, then Retry-After as delay-seconds or
// an HTTP date. A date in the past yields a zero delay.
func parseRetryAfter(header http.Header, now time.Time) (time.Duration, bool) {
	if header == nil {
		return 0, false
	}
	if ms := strings.TrimSpace(header.Get("Retry-After-Ms")); ms != "" {
		if v, err := strconv.ParseFloat(ms, 64); err == nil && v >= 0 {
			return time.Duration(v * float64(time.Millisecond)), true
		}
	}

	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(at.Sub(now), 0), true
	}
	return 0, false
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
