package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/maruel/mdcms/internal/naming"
)

var (
	// ErrInvalidName is returned when a document or history name fails validation.
	ErrInvalidName = naming.ErrInvalidName
	// ErrNotFound is returned when a document or history entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating or duplicating onto an existing name.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnsupported is returned for operations that do not apply to a content type.
	ErrUnsupported = errors.New("unsupported for this content type")
	// ErrVersionOverflow is returned when a document has exhausted its version numbers.
	ErrVersionOverflow = errors.New("version numbers exhausted")
	// ErrIO wraps faults from the backing filesystem.
	ErrIO = errors.New("storage I/O failure")
)

// Error carries the operation and identifiers of a failed call. Its chain
// contains exactly one of the sentinel errors above.
type Error struct {
	Op      string
	Name    string
	Version int // -1 when not relevant.
	Err     error
}

func (e *Error) Error() string {
	if e.Version >= 0 {
		return fmt.Sprintf("%s %q (version %03d): %v", e.Op, e.Name, e.Version, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func opErr(op, name string, err error) error {
	return &Error{Op: op, Name: name, Version: -1, Err: err}
}

func versionErr(op, name string, version int, err error) error {
	return &Error{Op: op, Name: name, Version: version, Err: err}
}

// ioErr wraps an underlying fault so it matches both ErrIO and the original error.
func ioErr(op, name string, err error) error {
	return opErr(op, name, fmt.Errorf("%w: %w", ErrIO, err))
}

// fault classifies an error from the backing filesystem. Errors already
// classified and context errors pass through; anything else is an I/O fault.
func fault(op, name string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, name, err)
	}
	return ioErr(op, name, err)
}
