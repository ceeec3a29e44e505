// Package citation maps citation text in notes ("CCC 17", "John 3:16") to the
// document nodes it refers to.
//
// An Alias binds a prefix and a regular expression to one document. The
// Registry validates and stores aliases; the Resolver scans text with every
// alias in priority order and resolves each hit to a citable node through an
// explicit Cache that the Registry invalidates on every change.
package citation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

// DefaultNumberExtractor pulls the first run of digits out of a match.
const DefaultNumberExtractor = `(\d+)`

// NumberPlaceholder is replaced with the paragraph number in DisplayFormat.
const NumberPlaceholder = "{number}"

// ErrPrefixInUse is returned when another alias already owns a prefix.
var ErrPrefixInUse = fmt.Errorf("citation prefix already in use: %w", errors.ErrInvalidInput)

// Alias is a citation pattern scoped to one document.
type Alias struct {
	ID              string    `json:"id"`
	DocumentID      string    `json:"document_id"`
	Prefix          string    `json:"prefix"`
	Pattern         string    `json:"pattern"`
	NumberExtractor string    `json:"number_extractor"`
	DisplayFormat   string    `json:"display_format"`
	Priority        int       `json:"priority"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AliasInput carries the user-editable fields of an alias.
type AliasInput struct {
	DocumentID      string `json:"document_id"`
	Prefix          string `json:"prefix"`
	Pattern         string `json:"pattern,omitempty"`
	NumberExtractor string `json:"number_extractor,omitempty"`
	DisplayFormat   string `json:"display_format,omitempty"`
	Priority        int    `json:"priority"`
}

// normalize fills defaults derived from the prefix and validates the result.
func (in AliasInput) normalize() (AliasInput, error) {
	in.DocumentID = strings.TrimSpace(in.DocumentID)
	in.Prefix = strings.TrimSpace(in.Prefix)
	if in.DocumentID == "" {
		return in, errors.NewValidation("document_id", "an alias must target a document")
	}
	if in.Prefix == "" {
		return in, errors.NewValidation("prefix", "prefix is required")
	}
	if in.Pattern == "" {
		in.Pattern = PatternForPrefix(in.Prefix)
	}
	if in.NumberExtractor == "" {
		in.NumberExtractor = DefaultNumberExtractor
	}
	if in.DisplayFormat == "" {
		in.DisplayFormat = in.Prefix + " " + NumberPlaceholder
	}
	if _, err := regexp.Compile(in.Pattern); err != nil {
		return in, &errors.ValidationError{Field: "pattern", Value: in.Pattern, Message: err.Error()}
	}
	if _, err := regexp.Compile(in.NumberExtractor); err != nil {
		return in, &errors.ValidationError{Field: "number_extractor", Value: in.NumberExtractor, Message: err.Error()}
	}
	return in, nil
}

// PatternForPrefix returns the pattern used when an alias is created without
// one: the prefix as a whole word followed by a paragraph number.
func PatternForPrefix(prefix string) string {
	return `\b` + regexp.QuoteMeta(prefix) + `\s+\d+\b`
}

// compiledAlias is an alias with its expressions ready for matching.
type compiledAlias struct {
	Alias
	pattern   *regexp.Regexp
	extractor *regexp.Regexp
}

func compile(a Alias) (*compiledAlias, error) {
	p, err := regexp.Compile(a.Pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "alias %s pattern", a.ID)
	}
	ex := a.NumberExtractor
	if ex == "" {
		ex = DefaultNumberExtractor
	}
	x, err := regexp.Compile(ex)
	if err != nil {
		return nil, errors.Wrapf(err, "alias %s number extractor", a.ID)
	}
	return &compiledAlias{Alias: a, pattern: p, extractor: x}, nil
}

// number applies the extractor to matched text. The first capture group is
// used when present, otherwise the whole extractor match.
func (c *compiledAlias) number(text string) (int, bool) {
	m := c.extractor.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	s := m[0]
	if len(m) > 1 {
		s = m[1]
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Display renders the alias' display format for a paragraph number.
func (a Alias) Display(number int) string {
	format := a.DisplayFormat
	if format == "" {
		format = a.Prefix + " " + NumberPlaceholder
	}
	return strings.ReplaceAll(format, NumberPlaceholder, strconv.Itoa(number))
}

// SortAliases orders aliases the way the resolver consumes them: priority
// descending, then creation time. The sort is stable so callers can pre-sort
// by insertion sequence.
func SortAliases(aliases []Alias) {
	sort.SliceStable(aliases, func(i, j int) bool {
		if aliases[i].Priority != aliases[j].Priority {
			return aliases[i].Priority > aliases[j].Priority
		}
		return aliases[i].CreatedAt.Before(aliases[j].CreatedAt)
	})
}
