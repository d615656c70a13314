package signedreq

import (
	"errors"
	"net/http"
)

// Verification errors.
var (
	// ErrInvalidSignature is returned when the recomputed signature does not
	// match the provided one, or when the algorithm or signature header is
	// missing.
	ErrInvalidSignature = errors.New("signedreq: the provided signature was not valid")

	// ErrExpiredRequest is returned when the request timestamp is outside the
	// tolerance window, cannot be parsed, or the request id was already seen.
	ErrExpiredRequest = errors.New("signedreq: the provided request has expired")
)

// Configuration errors.
var (
	// ErrInvalidConfiguration is returned when a profile cannot be found or
	// is incomplete.
	ErrInvalidConfiguration = errors.New("signedreq: failed to find signed requests configuration key")

	// ErrNoReplayCache is returned when replay protection is enabled but no
	// ReplayCache is configured.
	ErrNoReplayCache = errors.New("signedreq: replay cache must not be nil when replays are not allowed")
)

// Replay cache errors.
var (
	// ErrReplayCache wraps failures reported by the replay cache backend.
	ErrReplayCache = errors.New("signedreq: replay cache unavailable")
)

// StatusCode maps an error returned by this package to the HTTP status code
// a server should answer with. Unknown errors map to 500.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrExpiredRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidConfiguration), errors.Is(err, ErrNoReplayCache):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrReplayCache):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
