package storage

import "errors"

// ErrNotFound matches any NotFoundError with errors.Is.
var ErrNotFound = errors.New("document not found")

// NotFoundError is returned when a document doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return ErrNotFound.Error()
	}

	return ErrNotFound.Error() + ": " + e.ID
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
