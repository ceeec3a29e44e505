// Package parse segments plain text into structural headings and citable
// paragraphs.
//
// Three pieces cooperate: a Classifier that recognises heading lines, a
// number extractor that recognises the leading paragraph number of a given
// source type, and the Parser state machine that drives both over a text and
// reassembles paragraphs that span several lines.
package parse

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/JuniperStudy/core/document"
)

// Heading is a classified structural line.
type Heading struct {
	Level   document.Level
	Content string
}

// Rule maps lines matching Pattern to a heading level. Accept, when set, can
// veto a syntactic match.
type Rule struct {
	Level   document.Level
	Pattern *regexp.Regexp
	Accept  func(match []string) bool
}

// Classifier applies an ordered rule list; the first matching rule wins, so
// the order encodes precedence.
type Classifier struct {
	rules []Rule
}

// ordinal covers the spelled, roman and arabic forms used after BOOK, PART,
// SECTION and CHAPTER.
const ordinal = `(?:ONE|TWO|THREE|FOUR|FIVE|SIX|SEVEN|EIGHT|NINE|TEN|[IVXLC]+|\d+)`

// title is an optional heading title after the ordinal.
const title = `(?:\s*[:.\-–—]\s*\S.*|\s+\S.*)?`

var (
	briefRule      = regexp.MustCompile(`^IN BRIEF$`)
	prefaceRule    = regexp.MustCompile(`^(?:PROLOGUE|PREFACE|FOREWORD|INTRODUCTION)` + title + `$`)
	bookRule       = regexp.MustCompile(`^BOOK\s+` + ordinal + title + `$`)
	partRule       = regexp.MustCompile(`^PART\s+` + ordinal + title + `$`)
	sectionRule    = regexp.MustCompile(`^SECTION\s+` + ordinal + title + `$`)
	chapterRule    = regexp.MustCompile(`^CHAPTER\s+` + ordinal + title + `$`)
	articleRule    = regexp.MustCompile(`^ARTICLE\s+\d+\b`)
	subsectionRule = regexp.MustCompile(`^(?:PARAGRAPH|Paragraph)\s+\d+\.(?:\s|$)`)
	romanRule      = regexp.MustCompile(`^(X{0,3}(?:IX|IV|V?I{0,3}))\.\s+\S`)
	headingRule    = regexp.MustCompile(`^[A-Z][A-Z\s'’"“”,;:!?()\-–—]*$`)
)

// DefaultRules returns the standard heading table in precedence order:
// "IN BRIEF" before the generic all-caps heading, and PART/SECTION/CHAPTER
// before the bare roman-numeral rule.
func DefaultRules() []Rule {
	return []Rule{
		{Level: document.LevelBrief, Pattern: briefRule},
		{Level: document.LevelPreface, Pattern: prefaceRule},
		{Level: document.LevelBook, Pattern: bookRule},
		{Level: document.LevelPart, Pattern: partRule},
		{Level: document.LevelSection, Pattern: sectionRule},
		{Level: document.LevelChapter, Pattern: chapterRule},
		{Level: document.LevelArticle, Pattern: articleRule},
		{Level: document.LevelSubsection, Pattern: subsectionRule},
		{Level: document.LevelRoman, Pattern: romanRule, Accept: nonEmptyGroup(1)},
		{Level: document.LevelHeading, Pattern: headingRule, Accept: minLetters(4)},
	}
}

// NewClassifier builds a classifier from rules. With no rules it uses
// DefaultRules.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the heading for line, or false when no rule matches.
// Empty lines never match.
func (c *Classifier) Classify(line string) (Heading, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Heading{}, false
	}
	for _, r := range c.rules {
		m := r.Pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if r.Accept != nil && !r.Accept(m) {
			continue
		}
		return Heading{Level: r.Level, Content: line}, true
	}
	return Heading{}, false
}

func nonEmptyGroup(i int) func([]string) bool {
	return func(m []string) bool {
		return len(m) > i && m[i] != ""
	}
}

func minLetters(n int) func([]string) bool {
	return func(m []string) bool {
		count := 0
		for _, r := range m[0] {
			if unicode.IsLetter(r) {
				count++
			}
		}
		return count >= n
	}
}
