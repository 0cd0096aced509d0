package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// APIError is a request the server answered but refused. Message is the
// server's own text when it sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return "request failed"
}

// Unwrap lets errors.Is match the sentinel that corresponds to the status.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrSessionNotFound
	case e.Status == http.StatusGone:
		return ErrSessionExpired
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusTooManyRequests, e.Status >= http.StatusInternalServerError:
		return ErrUnavailable
	case strings.Contains(strings.ToLower(e.Message), "expired"):
		return ErrSessionExpired
	default:
		return nil
	}
}

// IsTransient reports whether err is worth retrying later: the server was
// unreachable or overloaded, as opposed to having answered definitively.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
