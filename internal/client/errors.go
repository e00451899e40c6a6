package client

import (
	"errors"
	"fmt"
)

// Every failed call maps onto exactly one of these kinds. Connectivity
// failures drive poller cooldowns; everything else is a server verdict.
var (
	ErrConnectivity = errors.New("connectivity failure")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation rejected")
	ErrConflict     = errors.New("conflicting state")
	ErrRemote       = errors.New("remote failure")
)

// APIError carries the problem+json body the server attaches to failures.
type APIError struct {
	kind   error
	Status int
	Type   string
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (status %d): %s", e.Type, e.Status, e.Detail)
}

func (e *APIError) Unwrap() error { return e.kind }

func kindForStatus(status int) error {
	switch {
	case status == 404:
		return ErrNotFound
	case status == 409:
		return ErrConflict
	case status == 400 || status == 422:
		return ErrValidation
	default:
		return ErrRemote
	}
}

func IsConnectivity(err error) bool { return errors.Is(err, ErrConnectivity) }
