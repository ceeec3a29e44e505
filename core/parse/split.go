package parse

import (
	"regexp"
	"strings"
)

// Separator marks where a compound line must be cut. The cut happens at the
// start of submatch Group. When ExtendToParagraph is set the separated token
// runs on until the next "<number>. " paragraph marker, so a heading title
// stays attached to its marker.
type Separator struct {
	Name              string
	Pattern           *regexp.Regexp
	Group             int
	ExtendToParagraph bool
}

var paragraphMarker = regexp.MustCompile(`\s\d{1,4}\.\s+\S`)

// DefaultSeparators returns the inline separators in application order.
func DefaultSeparators() []Separator {
	return []Separator{
		{
			Name:              "roman",
			Pattern:           regexp.MustCompile(`(?:^|[.!?:;"”’]\s+)(X{0,3}(?:IX|IV|V?I{0,3}))\.\s+[A-Z]`),
			Group:             1,
			ExtendToParagraph: true,
		},
		{
			Name:              "article",
			Pattern:           regexp.MustCompile(`(?:^|\s)(ARTICLE\s+\d+)\b`),
			Group:             1,
			ExtendToParagraph: true,
		},
		{
			Name:    "brief",
			Pattern: regexp.MustCompile(`(?:^|\s)(IN BRIEF)(?:\s|$)`),
			Group:   1,
		},
		{
			Name:              "paragraph",
			Pattern:           regexp.MustCompile(`(?:^|\s)((?:PARAGRAPH|Paragraph)\s+\d+\.)\s`),
			Group:             1,
			ExtendToParagraph: true,
		},
	}
}

// Splitter cuts compound lines into logical parts.
type Splitter struct {
	separators []Separator
}

// NewSplitter builds a splitter. With no separators it uses DefaultSeparators.
func NewSplitter(seps ...Separator) *Splitter {
	if len(seps) == 0 {
		seps = DefaultSeparators()
	}
	return &Splitter{separators: seps}
}

// Split applies each separator in turn to every part produced so far and
// returns the trimmed, non-empty parts in input order.
func (s *Splitter) Split(line string) []string {
	parts := []string{strings.TrimSpace(line)}
	for _, sep := range s.separators {
		var next []string
		for _, p := range parts {
			next = append(next, sep.split(p)...)
		}
		parts = next
	}

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// split slices text into before / token / remainder. Matches are taken in
// order over the unconsumed remainder, so a remainder is fed back through
// the same separator.
func (sep Separator) split(text string) []string {
	var out []string
	cursor := 0
	for _, loc := range sep.Pattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2*sep.Group], loc[2*sep.Group+1]
		if start < cursor || start == end {
			continue
		}

		tokenEnd := end
		if sep.ExtendToParagraph {
			tokenEnd = len(text)
			if m := paragraphMarker.FindStringIndex(text[end:]); m != nil {
				tokenEnd = end + m[0]
			}
		}

		if before := text[cursor:start]; strings.TrimSpace(before) != "" {
			out = append(out, before)
		}
		out = append(out, text[start:tokenEnd])
		cursor = tokenEnd
	}
	if rest := text[cursor:]; strings.TrimSpace(rest) != "" {
		out = append(out, rest)
	}
	return out
}
