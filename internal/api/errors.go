// Package api provides the authenticated HTTP client for the Cloudbox
// server, including single-flight token refresh with FIFO replay of
// requests that failed with 401 while the refresh was pending.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status classification.
// Use errors.Is(err, api.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("api: bad request")
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrNotFound     = errors.New("api: not found")
	ErrConflict     = errors.New("api: conflict")
	ErrServerError  = errors.New("api: server error")

	// ErrValidation marks a caller-side contract violation detected before
	// any network call (e.g. an unsupported share expiry).
	ErrValidation = errors.New("api: validation error")

	// ErrSessionExpired is terminal: the token refresh failed, or a request
	// replayed with a fresh token was rejected again. The session has been
	// torn down; a new login is required.
	ErrSessionExpired = errors.New("api: session expired")
)

// StatusError wraps a sentinel error with the HTTP status code, the
// correlation request ID, and the response body for debugging.
type StatusError struct {
	StatusCode int
	RequestID  string
	Body       string
	Err        error // sentinel, for errors.Is()
}

func (e *StatusError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Body)
	}

	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// TransportError wraps a network-level failure (unreachable host, timeout,
// aborted connection). The server never saw or never answered the request,
// so transport errors never trigger a token refresh.
type TransportError struct {
	Op  string // "POST /files/upload"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("api: %s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return fmt.Errorf("api: unexpected HTTP status %d", code)
	}
}
