package parse

import (
	"strconv"
	"strings"

	"github.com/FocuswithJustin/JuniperStudy/core/document"
)

// Stats summarises one parse run.
type Stats struct {
	Lines      int `json:"lines"`
	Parts      int `json:"parts"`
	Structural int `json:"structural"`
	Citable    int `json:"citable"`
	Dropped    int `json:"dropped"`
	// Duplicates counts citable paragraphs whose number was already used
	// earlier in the run. Only the first of them is reachable by number.
	Duplicates int `json:"duplicates"`
}

// Result is the output of Parse. Nodes carry no IDs; identifiers are assigned
// when a review session is canonicalised.
type Result struct {
	SourceType        document.SourceType `json:"source_type"`
	Nodes             document.Nodes      `json:"nodes"`
	TotalCitableNodes int                 `json:"total_citable_nodes"`
	Stats             Stats               `json:"stats"`
}

// Parser turns plain text into an ordered node sequence.
type Parser struct {
	SourceType document.SourceType
	Classifier *Classifier
	Splitter   *Splitter
	// BlankLineBreaks closes an implicitly numbered paragraph at a blank
	// line. When false, blank lines are skipped and an implicit paragraph
	// runs on until the next number or heading.
	BlankLineBreaks bool
}

// NewParser returns a parser with the default heading rules and separators.
func NewParser(sourceType document.SourceType) *Parser {
	return &Parser{
		SourceType:      sourceType,
		Classifier:      NewClassifier(),
		Splitter:        NewSplitter(),
		BlankLineBreaks: true,
	}
}

// Parse is a convenience wrapper around NewParser(sourceType).Parse(text).
func Parse(text string, sourceType document.SourceType) Result {
	return NewParser(sourceType).Parse(text)
}

// paragraph is the buffer of the citable paragraph being accumulated.
type paragraph struct {
	number   int
	display  string
	text     strings.Builder
	implicit bool
}

// run holds the state of one Parse call.
type run struct {
	p       *Parser
	nodes   document.Nodes
	current *paragraph
	citable int
	seen    map[int]bool
	stats   Stats
}

// Parse segments text. The state machine is either idle or accumulating a
// citable paragraph. For every logical part of every line:
//
//  1. a heading flushes the paragraph and is emitted;
//  2. a leading paragraph number flushes and starts a new paragraph;
//  3. otherwise the part is appended to the open paragraph;
//  4. with no open paragraph, patristic and generic sources start an
//     implicitly numbered paragraph and other sources drop the part.
//
// Blank lines are not parts. With BlankLineBreaks set, a blank line also
// closes an implicitly numbered paragraph; explicitly numbered paragraphs
// always run across blank lines until the next number or heading.
//
// Implicit numbers count citable paragraphs emitted so far, so they can
// collide with explicit numbers later in the text (an unnumbered opening
// paragraph and a later "1."). Collisions are kept and counted in
// Stats.Duplicates.
func (p *Parser) Parse(text string) Result {
	r := &run{p: p, seen: make(map[int]bool)}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	for _, line := range strings.Split(text, "\n") {
		r.stats.Lines++
		if strings.TrimSpace(line) == "" {
			if p.BlankLineBreaks && r.current != nil && r.current.implicit {
				r.flush()
			}
			continue
		}
		for _, part := range p.Splitter.Split(line) {
			r.stats.Parts++
			r.step(part)
		}
	}
	r.flush()

	r.stats.Structural, r.stats.Citable = r.nodes.Counts()
	return Result{
		SourceType:        p.SourceType,
		Nodes:             r.nodes,
		TotalCitableNodes: r.citable,
		Stats:             r.stats,
	}
}

func (r *run) step(part string) {
	if h, ok := r.p.Classifier.Classify(part); ok {
		r.flush()
		r.nodes = append(r.nodes, &document.Structural{Level: h.Level, Content: h.Content})
		return
	}

	if ex, ok := ExtractNumber(part, r.p.SourceType); ok {
		r.flush()
		r.current = &paragraph{number: ex.Number, display: ex.Token}
		r.current.text.WriteString(ex.Remainder)
		return
	}

	if r.current != nil {
		if r.current.text.Len() > 0 {
			r.current.text.WriteByte(' ')
		}
		r.current.text.WriteString(part)
		return
	}

	if r.p.SourceType.ImplicitNumbering() {
		n := r.citable + 1
		r.current = &paragraph{number: n, display: strconv.Itoa(n), implicit: true}
		r.current.text.WriteString(part)
		return
	}

	r.stats.Dropped++
}

func (r *run) flush() {
	if r.current == nil {
		return
	}
	r.nodes = append(r.nodes, &document.Citable{
		Number:        r.current.number,
		DisplayNumber: r.current.display,
		Content:       strings.TrimSpace(r.current.text.String()),
	})
	if r.seen[r.current.number] {
		r.stats.Duplicates++
	}
	r.seen[r.current.number] = true
	r.citable++
	r.current = nil
}
