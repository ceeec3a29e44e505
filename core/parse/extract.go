package parse

import (
	"regexp"
	"strconv"

	"github.com/FocuswithJustin/JuniperStudy/core/document"
)

// Catechism paragraph numbers form a closed set.
const (
	CatechismMin = 1
	CatechismMax = 2865
)

var (
	catechismNumber = regexp.MustCompile(`^(\d{1,4})(?:\.|\s)\s*(.*)$`)
	shortNumber     = regexp.MustCompile(`^(\d{1,3})(?:\.|\s)\s*(.*)$`)
)

// Extracted is a leading paragraph number split from its text.
type Extracted struct {
	Number    int
	Token     string
	Remainder string
}

// ExtractNumber recognises the leading citation number of text for the given
// source type. Scripture is never numbered here.
func ExtractNumber(text string, sourceType document.SourceType) (Extracted, bool) {
	var re *regexp.Regexp
	switch sourceType {
	case document.SourceCatechism:
		re = catechismNumber
	case document.SourcePatristic, document.SourceTreatise, document.SourceGeneric:
		re = shortNumber
	default:
		return Extracted{}, false
	}

	m := re.FindStringSubmatch(text)
	if m == nil {
		return Extracted{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Extracted{}, false
	}
	if sourceType == document.SourceCatechism && (n < CatechismMin || n > CatechismMax) {
		return Extracted{}, false
	}
	return Extracted{Number: n, Token: m[1], Remainder: m[2]}, true
}
