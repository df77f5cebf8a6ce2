// Package engine drives the THINK/ACT/OBSERVE/DECIDE loop.
// This file contains error classification and handling.

package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RetryClass indicates whether a provider error should be retried within
// the current iteration before it is charged against the error ceiling.
type RetryClass string

const (
	RetryClassRetryable    RetryClass = "retryable"     // definitely retry
	RetryClassMaybe        RetryClass = "maybe"         // retry with caution (limited attempts)
	RetryClassNonRetryable RetryClass = "non_retryable" // never retry
)

// ProviderError wraps provider call failures with classification
// metadata.
type ProviderError struct {
	Err         error
	Class       RetryClass
	HTTPStatus  int    // HTTP status code if applicable
	RetryAfter  string // Retry-After header value if present
	IsRateLimit bool
	IsTimeout   bool
	IsAuth      bool
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("provider error: %s", e.Class)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ClassifyProviderError classifies an error from a provider call.
func ClassifyProviderError(err error) RetryClass {
	if err == nil {
		return RetryClassNonRetryable
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Class
	}

	errStr := strings.ToLower(err.Error())

	// Rate limit errors (429) - retryable, respect Retry-After.
	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") {
		return RetryClassRetryable
	}

	// Server errors (5xx) - retryable.
	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") {
		return RetryClassRetryable
	}

	// Network errors - retryable.
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "temporary failure") {
		return RetryClassRetryable
	}

	// Deadlines - maybe (limited retries).
	if strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "timeout") {
		return RetryClassMaybe
	}

	// Context overflow - maybe (the next iteration reassembles a
	// smaller prompt).
	if strings.Contains(errStr, "context length") ||
		strings.Contains(errStr, "token limit") ||
		strings.Contains(errStr, "maximum context length") {
		return RetryClassMaybe
	}

	// Authentication (401, 403) - non-retryable.
	if strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "invalid api key") ||
		strings.Contains(errStr, "authentication failed") {
		return RetryClassNonRetryable
	}

	// Bad request (400) - non-retryable.
	if strings.Contains(errStr, "400") ||
		strings.Contains(errStr, "bad request") ||
		strings.Contains(errStr, "invalid request") ||
		strings.Contains(errStr, "malformed") {
		return RetryClassNonRetryable
	}

	return RetryClassNonRetryable
}

// ExtractRetryAfter extracts the Retry-After value from an error.
// Returns 0 if not found or invalid.
func ExtractRetryAfter(err error) time.Duration {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.RetryAfter != "" {
		var seconds int
		if _, err := fmt.Sscanf(perr.RetryAfter, "%d", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if t, err := time.Parse(time.RFC1123, perr.RetryAfter); err == nil {
			now := time.Now()
			if t.After(now) {
				return t.Sub(now)
			}
		}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "retry after") {
		var seconds int
		if _, err := fmt.Sscanf(errStr, "retry after %d", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	return 0
}

// WrapProviderError wraps a provider error with classification metadata.
func WrapProviderError(err error, httpStatus int, retryAfter string) error {
	if err == nil {
		return nil
	}
	return &ProviderError{
		Err:         err,
		Class:       ClassifyProviderError(err),
		HTTPStatus:  httpStatus,
		RetryAfter:  retryAfter,
		IsRateLimit: httpStatus == http.StatusTooManyRequests,
		IsTimeout:   httpStatus == http.StatusGatewayTimeout || httpStatus == http.StatusRequestTimeout,
		IsAuth:      httpStatus == http.StatusUnauthorized || httpStatus == http.StatusForbidden,
	}
}

// RetryExhaustedError indicates that all retry attempts within one
// iteration have been exhausted. The loop counts it as one recoverable
// generation error.
type RetryExhaustedError struct {
	Err         error
	Attempts    int
	MaxAttempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// IsRetryExhausted checks if an error is a RetryExhaustedError.
func IsRetryExhausted(err error) bool {
	var exhausted *RetryExhaustedError
	return errors.As(err, &exhausted)
}
