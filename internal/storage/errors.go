package storage

import (
	"errors"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("storage: not found")

// wrapErr turns a raw database/sql or sqlite driver error into a
// model.StorageError, classifying retryability from isRetriable.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &model.StorageError{Op: op, Err: err, Retryable: isRetriable(err)}
}
