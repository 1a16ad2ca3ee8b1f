package timeline

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFeedSelector is returned for unknown feed codes
	ErrInvalidFeedSelector = errors.New("invalid feed selector")
	// ErrChannelNotFound is returned when a user-defined channel is absent or
	// owned by someone else
	ErrChannelNotFound = errors.New("channel not found")
	// ErrForbidden is returned when the viewer may not see the requested page
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCursor is returned for cursor values that do not parse for
	// the active order
	ErrInvalidCursor = errors.New("invalid cursor")
)

// StorageError wraps a data source or cache failure
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
