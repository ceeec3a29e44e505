// Package document defines the canonical citable document model.
//
// A document is an ordered sequence of nodes. Each node is either a
// Structural heading or a Citable paragraph; the two variants share no
// fields beyond ID and Content, so a heading can never carry a paragraph
// number and a paragraph can never carry a heading level.
package document

import (
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

// SourceType selects the numbering rules applied to an imported text.
type SourceType string

// Source type constants.
const (
	SourceScripture SourceType = "scripture"
	SourceCatechism SourceType = "catechism"
	SourcePatristic SourceType = "patristic"
	SourceTreatise  SourceType = "treatise"
	SourceGeneric   SourceType = "generic"
)

// SourceTypes lists every supported source type.
func SourceTypes() []SourceType {
	return []SourceType{SourceScripture, SourceCatechism, SourcePatristic, SourceTreatise, SourceGeneric}
}

// ParseSourceType validates a user-supplied source type name.
func ParseSourceType(s string) (SourceType, error) {
	st := SourceType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SourceTypes() {
		if st == known {
			return st, nil
		}
	}
	return "", errors.NewValidation("source_type", "unknown source type "+s)
}

// ImplicitNumbering reports whether unnumbered prose starts a new paragraph
// numbered by position.
func (s SourceType) ImplicitNumbering() bool {
	return s == SourcePatristic || s == SourceGeneric
}

// Level is the rank of a structural heading.
type Level string

// Heading levels.
const (
	LevelBook       Level = "book"
	LevelPart       Level = "part"
	LevelSection    Level = "section"
	LevelArticle    Level = "article"
	LevelChapter    Level = "chapter"
	LevelRoman      Level = "roman"
	LevelSubsection Level = "subsection"
	LevelBrief      Level = "brief"
	LevelPreface    Level = "preface"
	LevelHeading    Level = "heading"
)

// Levels lists every heading level.
func Levels() []Level {
	return []Level{
		LevelBook, LevelPart, LevelSection, LevelArticle, LevelChapter,
		LevelRoman, LevelSubsection, LevelBrief, LevelPreface, LevelHeading,
	}
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	for _, known := range Levels() {
		if l == known {
			return true
		}
	}
	return false
}

// Alignment is the display alignment of a heading.
type Alignment string

// Alignments.
const (
	AlignCenter Alignment = "center"
	AlignLeft   Alignment = "left"
)

// AlignmentFor returns the alignment implied by a heading level.
func AlignmentFor(l Level) Alignment {
	switch l {
	case LevelBook, LevelPart, LevelSection, LevelArticle, LevelChapter:
		return AlignCenter
	default:
		return AlignLeft
	}
}

// Kind discriminates the Node variants.
type Kind string

// Node kinds.
const (
	KindStructural Kind = "structural"
	KindCitable    Kind = "citable"
)

// Node is one element of a document. The only implementations are
// *Structural and *Citable.
type Node interface {
	NodeID() string
	Kind() Kind
	Text() string
	node()
}

// Structural is a heading. It is never numbered and never a citation target.
type Structural struct {
	ID      string `json:"id"`
	Level   Level  `json:"level"`
	Content string `json:"content"`
}

// NodeID returns the node identifier.
func (s *Structural) NodeID() string { return s.ID }

// Kind returns KindStructural.
func (s *Structural) Kind() Kind { return KindStructural }

// Text returns the heading content.
func (s *Structural) Text() string { return s.Content }

// Alignment is derived from the level.
func (s *Structural) Alignment() Alignment { return AlignmentFor(s.Level) }

func (*Structural) node() {}

// Citable is a numbered paragraph that notes can cite.
type Citable struct {
	ID            string   `json:"id"`
	Number        int      `json:"number"`
	DisplayNumber string   `json:"display_number"`
	Content       string   `json:"content"`
	Footnotes     []string `json:"footnotes,omitempty"`
}

// NodeID returns the node identifier.
func (c *Citable) NodeID() string { return c.ID }

// Kind returns KindCitable.
func (c *Citable) Kind() Kind { return KindCitable }

// Text returns the paragraph content.
func (c *Citable) Text() string { return c.Content }

func (*Citable) node() {}

// Document is a committed, citable text.
type Document struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Title      string     `json:"title"`
	SourceType SourceType `json:"source_type"`
	SourceHash string     `json:"source_hash,omitempty"`
	FolderID   *string    `json:"folder_id,omitempty"`
	Order      float64    `json:"order"`
	Nodes      Nodes      `json:"nodes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CitableNodes returns the citable nodes in document order.
func (d *Document) CitableNodes() []*Citable {
	return d.Nodes.Citable()
}

// TotalCitableNodes returns the number of citable nodes.
func (d *Document) TotalCitableNodes() int {
	return len(d.Nodes.Citable())
}

// FindByNumber returns the first citable node carrying number n.
func (d *Document) FindByNumber(n int) (*Citable, bool) {
	for _, c := range d.Nodes.Citable() {
		if c.Number == n {
			return c, true
		}
	}
	return nil, false
}

// Nodes is an ordered node sequence.
type Nodes []Node

// Citable returns the citable nodes in order.
func (ns Nodes) Citable() []*Citable {
	var out []*Citable
	for _, n := range ns {
		if c, ok := n.(*Citable); ok {
			out = append(out, c)
		}
	}
	return out
}

// Counts returns the number of structural and citable nodes.
func (ns Nodes) Counts() (structural, citable int) {
	for _, n := range ns {
		switch n.(type) {
		case *Structural:
			structural++
		case *Citable:
			citable++
		}
	}
	return structural, citable
}

// Renumber assigns positional numbers 1..n to the citable nodes in place.
// Running it twice over the same sequence yields the same numbers.
func (ns Nodes) Renumber() {
	i := 0
	for _, n := range ns {
		if c, ok := n.(*Citable); ok {
			i++
			c.Number = i
			c.DisplayNumber = strconv.Itoa(i)
		}
	}
}
