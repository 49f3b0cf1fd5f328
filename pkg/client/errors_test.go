package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{name: "not found is terminal", errorClass: ErrorClassNotFound, expected: false},
		{name: "forbidden is terminal", errorClass: ErrorClassForbidden, expected: false},
		{name: "invalid request is terminal", errorClass: ErrorClassInvalidRequest, expected: false},
		{name: "rate limit should retry", errorClass: ErrorClassRateLimit, expected: true},
		{name: "malformed should retry", errorClass: ErrorClassMalformed, expected: true},
		{name: "timeout should retry", errorClass: ErrorClassTimeout, expected: true},
		{name: "network error should retry", errorClass: ErrorClassNetwork, expected: true},
		{name: "server error should retry", errorClass: ErrorClassServer, expected: true},
		{name: "empty error class should not retry", errorClass: ErrorClassNone, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				StatusCode: 0,
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			expected: "notion network error (status 0): request failed: connection refused",
		},
		{
			name: "error with domain code",
			apiError: &APIError{
				StatusCode: 404,
				ErrorClass: ErrorClassNotFound,
				Code:       "object_not_found",
				Message:    "Could not find page",
			},
			expected: "notion not_found error (status 404, code object_not_found): Could not find page",
		},
		{
			name: "error without code",
			apiError: &APIError{
				StatusCode: 502,
				ErrorClass: ErrorClassServer,
				Message:    "502 Bad Gateway",
			},
			expected: "notion server error (status 502): 502 Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Is(t *testing.T) {
	notFound := &APIError{StatusCode: 404, ErrorClass: ErrorClassNotFound}
	forbidden := &APIError{StatusCode: 403, ErrorClass: ErrorClassForbidden}
	server := &APIError{StatusCode: 500, ErrorClass: ErrorClassServer}

	if !errors.Is(notFound, ErrNotFound) {
		t.Error("not found APIError should match ErrNotFound")
	}
	if errors.Is(notFound, ErrForbidden) {
		t.Error("not found APIError should not match ErrForbidden")
	}
	if !errors.Is(forbidden, ErrForbidden) {
		t.Error("forbidden APIError should match ErrForbidden")
	}
	if errors.Is(server, ErrNotFound) || errors.Is(server, ErrForbidden) {
		t.Error("server APIError should not match terminal sentinels")
	}

	wrapped := fmt.Errorf("fetch page abc: %w", notFound)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("wrapped not found should still match ErrNotFound")
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	apiErr := &APIError{ErrorClass: ErrorClassNetwork, Err: inner}

	if !errors.Is(apiErr, inner) {
		t.Error("APIError should unwrap to inner error")
	}
	var target *APIError
	if !errors.As(fmt.Errorf("outer: %w", apiErr), &target) {
		t.Fatal("errors.As should find APIError")
	}
	if target.ErrorClass != ErrorClassNetwork {
		t.Errorf("ErrorClass = %q, want %q", target.ErrorClass, ErrorClassNetwork)
	}
}
