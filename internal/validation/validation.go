// Package validation checks user-supplied names and paths before they reach
// the filesystem or a response header, and tells text sources from binary
// uploads.
package validation

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

const (
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
	// sniffSize is how much of a source IsLikelyText inspects.
	sniffSize = 512
)

// Validation errors. All of them match errors.ErrInvalidInput.
var (
	ErrInvalidFilename  = fmt.Errorf("invalid filename: %w", errors.ErrInvalidInput)
	ErrPathTooLong      = fmt.Errorf("path too long: %w", errors.ErrInvalidInput)
	ErrFilenameTooLong  = fmt.Errorf("filename too long: %w", errors.ErrInvalidInput)
	ErrInvalidCharacter = fmt.Errorf("invalid character in path: %w", errors.ErrInvalidInput)
	ErrEmptyPath        = fmt.Errorf("path cannot be empty: %w", errors.ErrInvalidInput)
)

// ValidateFilename checks that filename is a single safe path element.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	// Could be taken for a flag.
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// ValidatePath checks length limits and rejects control characters,
// including NUL.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// SanitizeFilename turns a document title into a safe filename. Separators
// become underscores; control characters and leading hyphens or dots are
// dropped. An empty result falls back to fallback.
func SanitizeFilename(name, fallback string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimLeft(b.String(), "-.")
	if len(out) > MaxFilenameLength {
		out = out[:MaxFilenameLength]
		for !utf8.ValidString(out) {
			out = out[:len(out)-1]
		}
	}
	if ValidateFilename(out) != nil {
		return fallback
	}
	return out
}

// IsLikelyText reports whether the start of data looks like text: no NUL
// bytes and more than 95% printable among the ASCII bytes. Bytes of
// multi-byte UTF-8 sequences are neutral.
func IsLikelyText(data []byte) bool {
	if len(data) > sniffSize {
		data = data[:sniffSize]
	}
	if len(data) == 0 {
		return true
	}
	if bytes.IndexByte(data, 0) != -1 {
		return false
	}
	printable, control := 0, 0
	for _, b := range data {
		switch {
		case b >= 0x20 && b <= 0x7e, b == '\t', b == '\n', b == '\r':
			printable++
		case b < 0x20:
			control++
		}
	}
	if printable+control == 0 {
		return true
	}
	return float64(printable)/float64(printable+control) > 0.95
}
