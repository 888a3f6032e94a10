// Package errors provides the categorized error taxonomy used across the
// client engine. Retry policy is decided at the call site, never inferred
// from the error category alone.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/pizoo-client/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryNetwork represents transport failures or an unreachable backend
	CategoryNetwork ErrorCategory = "network"
	// CategoryAuth represents an expired or rejected session (fatal)
	CategoryAuth ErrorCategory = "auth"
	// CategoryValidation represents malformed local input, rejected before any request
	CategoryValidation ErrorCategory = "validation"
	// CategoryConflict represents a backend rejection of an otherwise valid action
	CategoryConflict ErrorCategory = "conflict"
	// CategoryConsent represents an action blocked behind the safety-consent gate
	CategoryConsent ErrorCategory = "consent"
	// CategoryState represents an operation invoked in an illegal engine state
	CategoryState ErrorCategory = "state"
	// CategoryStorage represents durable flag store failures
	CategoryStorage ErrorCategory = "storage"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewNetworkError creates a network error for a failed backend operation
func NewNetworkError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNetwork,
		StatusCode: http.StatusBadGateway,
		Code:       "NETWORK_ERROR",
		Message:    fmt.Sprintf("backend unreachable during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewAuthError creates a session-expiry error. Auth errors are fatal to the
// session and are never retried.
func NewAuthError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuth,
		StatusCode: http.StatusUnauthorized,
		Code:       "SESSION_EXPIRED",
		Message:    message,
	}
}

// NewValidationError creates a local input validation error
func NewValidationError(field string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_INPUT",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		Details: map[string]interface{}{
			"field":  field,
			"reason": reason,
		},
	}
}

// NewConflictError creates a backend-rejection error
func NewConflictError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       "CONFLICT",
		Message:    message,
	}
}

// NewConsentRequiredError creates the error returned when a send is blocked
// behind the one-time safety-consent acknowledgment
func NewConsentRequiredError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConsent,
		StatusCode: http.StatusPreconditionRequired,
		Code:       "CONSENT_REQUIRED",
		Message:    "safety consent must be accepted before the first message",
	}
}

// NewStateError creates an illegal-state error
func NewStateError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryState,
		StatusCode: http.StatusConflict,
		Code:       "ILLEGAL_STATE",
		Message:    message,
	}
}

// NewStorageError creates a durable flag store error
func NewStorageError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryStorage,
		StatusCode: http.StatusInternalServerError,
		Code:       "STORAGE_ERROR",
		Message:    fmt.Sprintf("flag store error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// FromStatusCode classifies a non-2xx backend response into the taxonomy.
// A 401 is always an auth error; a 409 is a conflict; other 4xx are treated
// as validation rejections; 5xx and everything else count as the backend
// being unavailable.
func FromStatusCode(operation string, status int, body string) *CategorizedError {
	switch {
	case status == http.StatusUnauthorized:
		return NewAuthError("session rejected by backend")
	case status == http.StatusConflict:
		return NewConflictError(fmt.Sprintf("%s rejected by backend: %s", operation, body))
	case status >= 400 && status < 500:
		return &CategorizedError{
			Category:   CategoryValidation,
			StatusCode: status,
			Code:       "BACKEND_REJECTED",
			Message:    fmt.Sprintf("%s rejected by backend: %s", operation, body),
		}
	default:
		return &CategorizedError{
			Category:   CategoryNetwork,
			StatusCode: http.StatusBadGateway,
			Code:       "BACKEND_UNAVAILABLE",
			Message:    fmt.Sprintf("backend returned %d during %s", status, operation),
			Details: map[string]interface{}{
				"status": status,
			},
		}
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	return &CategorizedError{
		Category:   CategoryNetwork,
		StatusCode: http.StatusInternalServerError,
		Code:       "UNEXPECTED_ERROR",
		Message:    "unexpected error",
		Cause:      err,
	}
}

func is(err error, category ErrorCategory) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == category
}

// IsNetwork reports whether the error is a transport failure
func IsNetwork(err error) bool { return is(err, CategoryNetwork) }

// IsAuth reports whether the error terminates the session
func IsAuth(err error) bool { return is(err, CategoryAuth) }

// IsValidation reports whether the error is a local input rejection
func IsValidation(err error) bool { return is(err, CategoryValidation) }

// IsConflict reports whether the backend rejected the action
func IsConflict(err error) bool { return is(err, CategoryConflict) }

// IsConsentRequired reports whether the action is blocked on safety consent
func IsConsentRequired(err error) bool { return is(err, CategoryConsent) }

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}
