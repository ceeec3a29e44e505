package autolink

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/JuniperStudy/core/citation"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

// Token schemes.
const (
	SchemeDocument = "doc"
	SchemeBible    = "bible"
)

// RefKind tells which half of a Reference is set.
type RefKind string

// Reference kinds.
const (
	RefDocument  RefKind = "document"
	RefScripture RefKind = "scripture"
)

// Reference is the decoded form of a link token.
type Reference struct {
	Kind       RefKind                `json:"kind"`
	DocumentID string                 `json:"document_id,omitempty"`
	NodeID     string                 `json:"node_id,omitempty"`
	Number     int                    `json:"number,omitempty"`
	Scripture  *citation.ScriptureRef `json:"scripture,omitempty"`
}

// Token encodes the reference.
func (r Reference) Token() string {
	if r.Kind == RefScripture && r.Scripture != nil {
		return EncodeScripture(*r.Scripture)
	}
	return EncodeDocument(r.DocumentID, r.NodeID, r.Number)
}

// escape makes a segment safe to embed between token delimiters.
func escape(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), ":", "%3A")
}

// EncodeDocument returns doc:<documentID>#<nodeID> for a resolved node.
// Without a node it returns doc:<documentID>?n=<number>, or doc:<documentID>
// when number is zero.
func EncodeDocument(documentID, nodeID string, number int) string {
	tok := SchemeDocument + ":" + escape(documentID)
	switch {
	case nodeID != "":
		tok += "#" + escape(nodeID)
	case number > 0:
		tok += "?n=" + strconv.Itoa(number)
	}
	return tok
}

// EncodeScripture returns bible:<translation>/<book>/<chapter>/<verse>,
// with -<end> appended to the verse for a range.
func EncodeScripture(ref citation.ScriptureRef) string {
	tok := SchemeBible + ":" + escape(ref.Translation) + "/" + escape(ref.Book) + "/" +
		strconv.Itoa(ref.Chapter) + "/" + strconv.Itoa(ref.Verse)
	if ref.VerseEnd > ref.Verse {
		tok += "-" + strconv.Itoa(ref.VerseEnd)
	}
	return tok
}

//nolint:govet // participle grammar tags are not standard struct tags
type tokenGrammar struct {
	Doc   *docToken   `  "doc:" @@`
	Bible *bibleToken `| "bible:" @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type docToken struct {
	Document string     `@Segment`
	Target   *docTarget `@@?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type docTarget struct {
	Node   string `  "#" @Segment`
	Number int    `| "?n=" @Segment`
}

//nolint:govet // participle grammar tags are not standard struct tags
type bibleToken struct {
	Translation string `@Segment "/"`
	Book        string `@Segment "/"`
	Chapter     int    `@Segment "/"`
	Verses      string `@Segment`
}

var tokenLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Scheme", Pattern: `(?:doc|bible):`},
	{Name: "Punct", Pattern: `[#/]|\?n=`},
	{Name: "Segment", Pattern: `[^#/:?\s]+`},
})

var tokenParser = participle.MustBuild[tokenGrammar](
	participle.Lexer(tokenLexer),
)

// ParseToken decodes a link token. It is the exact inverse of
// EncodeDocument and EncodeScripture.
func ParseToken(token string) (Reference, error) {
	parsed, err := tokenParser.ParseString("", token)
	if err != nil {
		return Reference{}, errors.NewParse("citation-token", token, err.Error())
	}
	switch {
	case parsed.Doc != nil:
		doc, err := url.PathUnescape(parsed.Doc.Document)
		if err != nil {
			return Reference{}, errors.NewParse("citation-token", token, err.Error())
		}
		ref := Reference{Kind: RefDocument, DocumentID: doc}
		if t := parsed.Doc.Target; t != nil {
			if ref.NodeID, err = url.PathUnescape(t.Node); err != nil {
				return Reference{}, errors.NewParse("citation-token", token, err.Error())
			}
			if t.Node == "" && t.Number <= 0 {
				return Reference{}, errors.NewParse("citation-token", token, "paragraph number must be positive")
			}
			ref.Number = t.Number
		}
		return ref, nil
	case parsed.Bible != nil:
		tr, err := url.PathUnescape(parsed.Bible.Translation)
		if err != nil {
			return Reference{}, errors.NewParse("citation-token", token, err.Error())
		}
		book, err := url.PathUnescape(parsed.Bible.Book)
		if err != nil {
			return Reference{}, errors.NewParse("citation-token", token, err.Error())
		}
		verse, end, err := parseVerses(parsed.Bible.Verses)
		if err != nil {
			return Reference{}, errors.NewParse("citation-token", token, err.Error())
		}
		return Reference{Kind: RefScripture, Scripture: &citation.ScriptureRef{
			Translation: tr,
			Book:        book,
			Chapter:     parsed.Bible.Chapter,
			Verse:       verse,
			VerseEnd:    end,
		}}, nil
	}
	return Reference{}, errors.NewParse("citation-token", token, "empty token")
}

// parseVerses reads "<verse>" or "<verse>-<end>" with end after verse.
func parseVerses(s string) (verse, end int, err error) {
	first, last, isRange := strings.Cut(s, "-")
	if verse, err = strconv.Atoi(first); err != nil {
		return 0, 0, err
	}
	if !isRange {
		return verse, 0, nil
	}
	if end, err = strconv.Atoi(last); err != nil {
		return 0, 0, err
	}
	if end <= verse {
		return 0, 0, fmt.Errorf("verse range %s ends before it starts", s)
	}
	return verse, end, nil
}
