// ABOUTME: Error values returned by source stores.
// ABOUTME: StorageError wraps persistence failures so callers can tell them apart from bad input.
package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for a non-positive k or a nil record.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned by Get when no record has the requested ID.
	ErrNotFound = errors.New("source not found")

	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("storage error")
)

// StorageError is a failure of the underlying persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorage) match any StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func invalidK(k int) error {
	return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
}
