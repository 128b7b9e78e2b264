package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"contactbook/internal/models"
)

// ErrDialogBusy is returned when a delete is requested while another awaits confirmation.
var ErrDialogBusy = errors.New("a delete confirmation is already pending")

// ValidationError reports rejected contact input, one message per field.
// No storage change happens when it is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for the named field, or "" if it passed.
func (e *ValidationError) Field(name string) string {
	return e.Fields[name]
}

// NotFoundError is returned when the target contact no longer exists.
type NotFoundError struct {
	ID uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("contact with ID %d not found", e.ID)
}

// StorageError wraps a failure of the underlying store. Input keeps the
// values the caller submitted so they can be resubmitted.
type StorageError struct {
	Op    string
	Input models.ContactInput
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is (or wraps) a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsStorageError reports whether err is (or wraps) a *StorageError.
func IsStorageError(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}
