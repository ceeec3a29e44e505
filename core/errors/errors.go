// Package errors classifies the failures that cross package boundaries.
//
// Three failure classes flow through the codebase:
//   - rejections of an operation's input (ValidationError, ParseError), which
//     callers may treat as a silent no-op;
//   - persistence failures (PersistenceError), which must reach the caller
//     with a message;
//   - resolution misses, which are not errors at all and never use this
//     package.
//
// Every typed error unwraps to one of the sentinels below, so callers match
// on the class with Is and on details with As.
package errors

import (
	"errors"
	"fmt"
)

// Failure classes.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUnsupported   = errors.New("unsupported")
	ErrPersistence   = errors.New("persistence failure")
)

// causeOr returns err, or class when err is nil.
func causeOr(err, class error) error {
	if err != nil {
		return err
	}
	return class
}

// NotFoundError names a missing or foreign resource. Resources owned by
// another user are reported the same way as absent ones.
type NotFoundError struct {
	Resource string // "document", "alias", "session", ...
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return e.Resource + " not found: " + e.ID
}

func (e *NotFoundError) Unwrap() error { return causeOr(e.Err, ErrNotFound) }

// ValidationError rejects the input of an operation.
type ValidationError struct {
	Field   string
	Value   string // offending value, kept out of Error
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return "validation failed for " + e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return causeOr(e.Err, ErrInvalidInput) }

// ParseError reports unreadable input: uploaded files, bundles, stored JSON
// and citation tokens.
type ParseError struct {
	Format  string
	Path    string // file name or token, when there is one
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	at := ""
	if e.Path != "" {
		at = " at " + e.Path
	}
	return fmt.Sprintf("failed to parse %s%s: %s", e.Format, at, e.Message)
}

func (e *ParseError) Unwrap() error { return causeOr(e.Err, ErrInvalidInput) }

// PersistenceError wraps a failure of the backing store.
type PersistenceError struct {
	Operation string // "insert", "commit", "query", ...
	Entity    string // "document", "alias", "anchor", ...
	Err       error
}

func (e *PersistenceError) Error() string {
	what := e.Operation
	if e.Entity != "" {
		what += " " + e.Entity
	}
	return fmt.Sprintf("failed to %s: %v", what, e.Err)
}

// Unwrap exposes both the driver error and ErrPersistence.
func (e *PersistenceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPersistence}
	}
	return []error{e.Err, ErrPersistence}
}

// UnsupportedError refuses a source type or format the pipeline cannot read.
type UnsupportedError struct {
	Feature string
	Reason  string
	Err     error
}

func (e *UnsupportedError) Error() string {
	if e.Reason == "" {
		return "unsupported " + e.Feature
	}
	return "unsupported " + e.Feature + ": " + e.Reason
}

func (e *UnsupportedError) Unwrap() error { return causeOr(e.Err, ErrUnsupported) }

// NewNotFound returns a NotFoundError for resource id.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewValidation returns a ValidationError for field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewParse returns a ParseError.
func NewParse(format, path, message string) *ParseError {
	return &ParseError{Format: format, Path: path, Message: message}
}

// NewUnsupported returns an UnsupportedError.
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

// NewPersistence wraps a store failure. It returns nil when err is nil so
// callers can wrap the result of a driver call directly.
func NewPersistence(operation, entity string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Operation: operation, Entity: entity, Err: err}
}

// IsValidation reports whether err rejects an input.
func IsValidation(err error) bool { return errors.Is(err, ErrInvalidInput) }

// Wrap prefixes err with message. It returns nil when err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Is is errors.Is.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is errors.As.
func As(err error, target any) bool { return errors.As(err, target) }
