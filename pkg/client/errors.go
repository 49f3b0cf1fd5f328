package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrNotFound is returned when the API reports "object_not_found". Never retried.
	ErrNotFound = errors.New("object not found")

	// ErrForbidden is returned when the API reports "restricted_resource". Never retried.
	ErrForbidden = errors.New("restricted resource")

	// ErrRetriesExhausted is returned when all attempts failed on a transient class.
	ErrRetriesExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrInvalidRequest is returned when a request cannot be built.
	ErrInvalidRequest = errors.New("invalid request")
)

// APIError represents a classified failure of one exchange.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Code       string
	Message    string
	URL        string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("notion %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("notion %s error (status %d, code %s): %s",
			e.ErrorClass, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("notion %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is maps terminal classes onto their sentinels so callers can use errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.ErrorClass == ErrorClassNotFound
	case ErrForbidden:
		return e.ErrorClass == ErrorClassForbidden
	}
	return false
}

// shouldRetry determines if an outcome class should be retried.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassNotFound, ErrorClassForbidden:
		// Terminal domain errors propagate immediately
		return false
	case ErrorClassInvalidRequest:
		return false
	case ErrorClassRateLimit, ErrorClassMalformed, ErrorClassTimeout, ErrorClassNetwork, ErrorClassServer:
		return true
	default:
		return false
	}
}
