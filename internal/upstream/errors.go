// SPDX-License-Identifier: MIT

package upstream

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrInvalidURL          = errors.New("upstream: invalid source url")
	ErrUpstreamUnavailable = errors.New("upstream: host unreachable or transport failure")
	ErrUpstreamStatus      = errors.New("upstream: unexpected http status")
	ErrTimeout             = errors.New("upstream: request timed out")
	ErrBadResponse         = errors.New("upstream: invalid response format or malformed data")
	ErrBodyTooLarge        = errors.New("upstream: response body exceeds limit")
	ErrCircuitOpen         = errors.New("upstream: circuit open for host")
	ErrRateLimited         = errors.New("upstream: fetch rate limit exceeded")
)

// FetchError wraps a sentinel with the request context it occurred in.
type FetchError struct {
	Sentinel error
	Host     string
	Status   int
	Body     string
	Err      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %v", e.Host, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Sentinel
}

// outcomeLabel maps an error to the fetch metric outcome label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUpstreamStatus):
		return "status"
	case errors.Is(err, ErrBadResponse):
		return "bad_response"
	case errors.Is(err, ErrBodyTooLarge):
		return "too_large"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "unavailable"
	}
}

// tripsBreaker reports whether err says the host itself is unhealthy.
func tripsBreaker(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return true
	}
	switch {
	case errors.Is(fe.Sentinel, ErrUpstreamUnavailable), errors.Is(fe.Sentinel, ErrTimeout):
		return true
	case errors.Is(fe.Sentinel, ErrUpstreamStatus):
		return fe.Status >= 500
	default:
		return false
	}
}
