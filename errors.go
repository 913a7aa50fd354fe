package songstore

import (
	"errors"
	"fmt"
)

// ErrSongNotFound is returned when no song exists for a given id.
// Absence is an ordinary outcome, not a fault; callers branch on it
// with errors.Is.
var ErrSongNotFound = errors.New("song not found")

// ErrTableNotFound is returned when the configured table does not exist.
// Unlike a connectivity fault this is a configuration problem: the
// process cannot become ready until the table is provisioned.
var ErrTableNotFound = errors.New("songs table not found")

// StorageError wraps a DynamoDB fault with the operation that produced
// it. The original cause is preserved for logging and errors.Is/As; the
// transport layer translates it to a generic message so backend detail
// never reaches callers.
type StorageError struct {
	Op  string // table operation, e.g. "scan", "update"
	Err error  // underlying SDK error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
