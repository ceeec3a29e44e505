package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClasses(t *testing.T) {
	driverErr := fmt.Errorf("database is locked")
	noRows := fmt.Errorf("no rows")

	tests := []struct {
		name       string
		err        error
		wantMsg    string
		wantClass  error
		validation bool
	}{
		{"not found with id", NewNotFound("document", "doc-1"), "document not found: doc-1", ErrNotFound, false},
		{"not found without id", &NotFoundError{Resource: "session"}, "session not found", ErrNotFound, false},
		{"not found with cause", &NotFoundError{Resource: "alias", ID: "a1", Err: noRows}, "alias not found: a1", noRows, false},
		{"validation with field", NewValidation("prefix", "already in use"), "validation failed for prefix: already in use", ErrInvalidInput, true},
		{"validation without field", &ValidationError{Message: "bad split position"}, "validation failed: bad split position", ErrInvalidInput, true},
		{"validation with cause", &ValidationError{Field: "anchor", Message: "gone", Err: ErrNotFound}, "validation failed for anchor: gone", ErrNotFound, false},
		{"parse", NewParse("citation-token", "", "unexpected token"), "failed to parse citation-token: unexpected token", ErrInvalidInput, true},
		{"parse with path", &ParseError{Format: "XML", Path: "a.xml", Message: "bad"}, "failed to parse XML at a.xml: bad", ErrInvalidInput, true},
		{"persistence", NewPersistence("insert", "anchor", driverErr), "failed to insert anchor: database is locked", ErrPersistence, false},
		{"persistence without entity", &PersistenceError{Operation: "commit", Err: driverErr}, "failed to commit: database is locked", driverErr, false},
		{"unsupported", NewUnsupported("source format", ".pdf"), "unsupported source format: .pdf", ErrUnsupported, false},
		{"unsupported bare", &UnsupportedError{Feature: "bundle version"}, "unsupported bundle version", ErrUnsupported, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, tt.wantClass) {
				t.Errorf("errors.Is(%v) = false", tt.wantClass)
			}
			if got := IsValidation(tt.err); got != tt.validation {
				t.Errorf("IsValidation() = %v, want %v", got, tt.validation)
			}
		})
	}
}

func TestNewPersistence_Nil(t *testing.T) {
	if NewPersistence("insert", "anchor", nil) != nil {
		t.Error("NewPersistence(nil) should return nil")
	}
	err := NewPersistence("insert", "anchor", errors.New("x"))
	if !errors.Is(err, ErrPersistence) {
		t.Error("persistence error lost its class")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil || Wrapf(nil, "x %d", 1) != nil {
		t.Error("wrapping nil should return nil")
	}
	base := NewNotFound("document", "x")
	wrapped := Wrap(base, "load")
	if wrapped.Error() != "load: document not found: x" {
		t.Errorf("Wrap() = %q", wrapped.Error())
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("wrapped error lost ErrNotFound")
	}

	var nf *NotFoundError
	if !As(Wrapf(base, "load %d", 2), &nf) || nf.ID != "x" {
		t.Error("As() did not recover NotFoundError through Wrapf")
	}
}
