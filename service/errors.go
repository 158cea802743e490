package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a history position or stored key does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrStore marks failures of the persisted state. They abort the current
	// operation and surface to the user as "processing failed, try again".
	ErrStore = errors.New("store failure")

	// ErrKeyNotFound is returned by KVStore.Get for keys that were never written.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnauthorized is returned for requests without the current session token.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError describes an upload batch rejected before processing.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
