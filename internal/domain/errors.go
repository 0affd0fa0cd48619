package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrRecordNotFound = errors.New("identifier not found")
)

// InvalidArgumentError is returned when caller input is malformed or missing.
// Nothing is written to the store when it occurs.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DuplicateIdentifierError is returned when a generated value is already
// present in the store and could not be resolved by regenerating.
type DuplicateIdentifierError struct {
	Value    string
	Attempts int
}

func (e *DuplicateIdentifierError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("identifier %q already exists (gave up after %d attempts)", e.Value, e.Attempts)
	}
	return fmt.Sprintf("identifier %q already exists", e.Value)
}

// StorageError is returned when the record store is unreachable, corrupt,
// or rejects an operation for a reason other than an expected duplicate.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
