package providers

import (
	"net/http"
	"strings"
)

// errorMetadata pulls an HTTP status and Retry-After hint out of an SDK
// error message. SDKs flatten transport detail into strings, so this is
// pattern matching, not parsing.
func errorMetadata(err error) (int, string) {
	if err == nil {
		return 0, ""
	}

	errStr := err.Error()
	var httpStatus int
	var retryAfter string

	switch {
	case strings.Contains(errStr, "429"):
		httpStatus = http.StatusTooManyRequests
	case strings.Contains(errStr, "500"):
		httpStatus = http.StatusInternalServerError
	case strings.Contains(errStr, "502"):
		httpStatus = http.StatusBadGateway
	case strings.Contains(errStr, "503"):
		httpStatus = http.StatusServiceUnavailable
	case strings.Contains(errStr, "504"):
		httpStatus = http.StatusGatewayTimeout
	case strings.Contains(errStr, "401"):
		httpStatus = http.StatusUnauthorized
	case strings.Contains(errStr, "403"):
		httpStatus = http.StatusForbidden
	case strings.Contains(errStr, "400"):
		httpStatus = http.StatusBadRequest
	}

	if idx := strings.Index(strings.ToLower(errStr), "retry-after"); idx != -1 {
		remaining := errStr[idx+len("retry-after"):]
		remaining = strings.TrimLeft(remaining, ": ")
		if parts := strings.Fields(remaining); len(parts) > 0 {
			retryAfter = parts[0]
		}
	}

	return httpStatus, retryAfter
}
