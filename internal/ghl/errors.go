package ghl

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure classes of a provider call
var (
	// ErrRateLimited is a 429 response
	ErrRateLimited = errors.New("rate limited by provider")
	// ErrTransient covers 5xx responses and transport failures
	ErrTransient = errors.New("transient provider failure")
	// ErrPermanent covers every other non-2xx response
	ErrPermanent = errors.New("permanent provider failure")
)

// APIError is a non-2xx provider response
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.StatusCode)
}

// Unwrap exposes the failure class for errors.Is
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrTransient
	default:
		return ErrPermanent
	}
}

// IsRateLimited reports whether err is a 429
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRetryable reports whether err is a 429, a 5xx or a transport failure
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}
