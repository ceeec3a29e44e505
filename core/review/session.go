// Package review implements the editable state between a raw parse and a
// committed document.
//
// A Session owns a flat slice of ReviewNodes. Every operation is a
// synchronous transition over that slice; operations addressed to an unknown
// temp id, or whose preconditions fail, leave the state untouched and report
// false. Any operation that changes node types or node boundaries ends with a
// renumber pass, which is the single source of truth for citable display
// numbers.
package review

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/FocuswithJustin/JuniperStudy/core/document"
)

// NodeType classifies a review node.
type NodeType string

// Review node types.
const (
	TypeStructural NodeType = "structural"
	TypeCitable    NodeType = "citable"
	TypeIgnored    NodeType = "ignored"
)

// MergeSeparator joins the contents of merged paragraphs.
const MergeSeparator = "\n\n"

// ReviewNode is the mutable, pre-canonical form of a document node.
type ReviewNode struct {
	TempID        string             `json:"temp_id"`
	Type          NodeType           `json:"node_type"`
	Content       string             `json:"content"`
	Level         document.Level     `json:"level,omitempty"`
	Alignment     document.Alignment `json:"alignment,omitempty"`
	DisplayNumber string             `json:"display_number,omitempty"`
	OriginalIndex int                `json:"original_index"`
	Modified      bool               `json:"modified"`
}

// State is a snapshot of a session.
type State struct {
	Nodes          []ReviewNode `json:"nodes"`
	SelectedNodeID string       `json:"selected_node_id,omitempty"`
	IsDirty        bool         `json:"is_dirty"`
}

// Classification is the target of a Reclassify call.
type Classification struct {
	Type          NodeType
	Level         document.Level
	DisplayNumber string
}

// tempSeq backs process-local temp ids.
var tempSeq atomic.Uint64

func nextTempID() string {
	return "tmp-" + strconv.FormatUint(tempSeq.Add(1), 10)
}

// Session is one review of one parse. It is not safe for concurrent use; the
// owner serialises access.
type Session struct {
	original document.Nodes
	nodes    []*ReviewNode
	selected string
	dirty    bool
}

// NewSession builds review nodes from parse output. Display numbers are taken
// from the parse as-is; no renumbering happens until the first edit.
func NewSession(parsed document.Nodes) *Session {
	s := &Session{original: parsed}
	s.nodes = build(parsed)
	return s
}

func build(parsed document.Nodes) []*ReviewNode {
	nodes := make([]*ReviewNode, 0, len(parsed))
	for i, n := range parsed {
		rn := &ReviewNode{TempID: nextTempID(), OriginalIndex: i}
		switch v := n.(type) {
		case *document.Structural:
			rn.Type = TypeStructural
			rn.Level = v.Level
			rn.Alignment = v.Alignment()
			rn.Content = v.Content
		case *document.Citable:
			rn.Type = TypeCitable
			rn.DisplayNumber = v.DisplayNumber
			rn.Content = v.Content
		}
		nodes = append(nodes, rn)
	}
	return nodes
}

// Nodes returns a copy of the current nodes in order.
func (s *Session) Nodes() []ReviewNode {
	out := make([]ReviewNode, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = *n
	}
	return out
}

// Snapshot returns a copy of the full state.
func (s *Session) Snapshot() State {
	return State{Nodes: s.Nodes(), SelectedNodeID: s.selected, IsDirty: s.dirty}
}

// IsDirty reports whether any edit has been applied since creation or Reset.
func (s *Session) IsDirty() bool { return s.dirty }

// Selected returns the selected temp id.
func (s *Session) Selected() string { return s.selected }

// Select changes the selection. It never touches node data or the dirty flag.
func (s *Session) Select(tempID string) {
	s.selected = tempID
}

// Node returns a copy of the node with tempID.
func (s *Session) Node(tempID string) (ReviewNode, bool) {
	if i := s.index(tempID); i >= 0 {
		return *s.nodes[i], true
	}
	return ReviewNode{}, false
}

// CitableCount returns the number of citable nodes.
func (s *Session) CitableCount() int {
	n := 0
	for _, rn := range s.nodes {
		if rn.Type == TypeCitable {
			n++
		}
	}
	return n
}

func (s *Session) index(tempID string) int {
	for i, n := range s.nodes {
		if n.TempID == tempID {
			return i
		}
	}
	return -1
}

// renumber assigns "1".."n" to citable nodes in positional order.
func (s *Session) renumber() {
	n := 0
	for _, rn := range s.nodes {
		if rn.Type == TypeCitable {
			n++
			rn.DisplayNumber = strconv.Itoa(n)
		}
	}
}

func (s *Session) touch(rn *ReviewNode) {
	rn.Modified = true
	s.dirty = true
}

// Reclassify rewrites the node's type-specific fields for the target
// classification and renumbers.
func (s *Session) Reclassify(tempID string, c Classification) bool {
	i := s.index(tempID)
	if i < 0 {
		return false
	}
	rn := s.nodes[i]
	switch c.Type {
	case TypeStructural:
		level := c.Level
		if !level.Valid() {
			level = document.LevelHeading
		}
		rn.Type = TypeStructural
		rn.Level = level
		rn.Alignment = document.AlignmentFor(level)
		rn.DisplayNumber = ""
	case TypeCitable:
		rn.Type = TypeCitable
		rn.DisplayNumber = c.DisplayNumber
		rn.Level = ""
		rn.Alignment = ""
	case TypeIgnored:
		rn.Type = TypeIgnored
		rn.Level = ""
		rn.Alignment = ""
		rn.DisplayNumber = ""
	default:
		return false
	}
	s.touch(rn)
	s.renumber()
	return true
}

// MakeCitable turns the node into a citable paragraph that enters the
// sequence at its position.
func (s *Session) MakeCitable(tempID string) bool {
	i := s.index(tempID)
	if i < 0 {
		return false
	}
	before := 0
	for _, rn := range s.nodes[:i] {
		if rn.Type == TypeCitable {
			before++
		}
	}
	return s.Reclassify(tempID, Classification{
		Type:          TypeCitable,
		DisplayNumber: strconv.Itoa(before + 1),
	})
}

// Ignore excludes the node from numbering while keeping it for Restore.
func (s *Session) Ignore(tempID string) bool {
	return s.Reclassify(tempID, Classification{Type: TypeIgnored})
}

// Restore brings an ignored (or any) node back into the citable sequence.
func (s *Session) Restore(tempID string) bool {
	return s.MakeCitable(tempID)
}

// MergeWithPrevious folds the node into its previous sibling. The previous
// node keeps its temp id.
func (s *Session) MergeWithPrevious(tempID string) bool {
	i := s.index(tempID)
	if i < 1 {
		return false
	}
	return s.merge(i-1, i)
}

// MergeWithNext folds the next sibling into the node. The node keeps its
// temp id.
func (s *Session) MergeWithNext(tempID string) bool {
	i := s.index(tempID)
	if i < 0 || i+1 >= len(s.nodes) {
		return false
	}
	return s.merge(i, i+1)
}

// merge joins nodes[keep] and nodes[drop] (drop == keep+1).
func (s *Session) merge(keep, drop int) bool {
	k, d := s.nodes[keep], s.nodes[drop]
	if k.Type != TypeCitable || d.Type != TypeCitable {
		return false
	}
	k.Content = k.Content + MergeSeparator + d.Content
	s.nodes = append(s.nodes[:drop], s.nodes[drop+1:]...)
	if s.selected == d.TempID {
		s.selected = k.TempID
	}
	s.touch(k)
	s.renumber()
	return true
}

// Split cuts a citable node at a rune position strictly inside its content.
// Both halves are trimmed; if either ends up empty nothing changes. The second
// half becomes a new node right after the first.
func (s *Session) Split(tempID string, position int) bool {
	i := s.index(tempID)
	if i < 0 {
		return false
	}
	rn := s.nodes[i]
	if rn.Type != TypeCitable {
		return false
	}
	runes := []rune(rn.Content)
	if position <= 0 || position >= len(runes) {
		return false
	}
	first := strings.TrimSpace(string(runes[:position]))
	second := strings.TrimSpace(string(runes[position:]))
	if first == "" || second == "" {
		return false
	}

	rn.Content = first
	s.touch(rn)
	tail := &ReviewNode{
		TempID:        nextTempID(),
		Type:          TypeCitable,
		Content:       second,
		OriginalIndex: rn.OriginalIndex,
		Modified:      true,
	}
	s.nodes = append(s.nodes[:i+1], append([]*ReviewNode{tail}, s.nodes[i+1:]...)...)
	s.renumber()
	return true
}

// EditContent overwrites the node's text.
func (s *Session) EditContent(tempID, content string) bool {
	i := s.index(tempID)
	if i < 0 {
		return false
	}
	s.nodes[i].Content = content
	s.touch(s.nodes[i])
	return true
}

// EditDisplayNumber overwrites a citable node's display number. The value
// holds until the next renumbering operation.
func (s *Session) EditDisplayNumber(tempID, number string) bool {
	i := s.index(tempID)
	if i < 0 || s.nodes[i].Type != TypeCitable {
		return false
	}
	s.nodes[i].DisplayNumber = number
	s.touch(s.nodes[i])
	return true
}

// ResequenceNumbers re-applies positional numbering.
func (s *Session) ResequenceNumbers() {
	s.renumber()
	s.dirty = true
}

// Reset discards every edit and rebuilds the nodes from the original parse.
func (s *Session) Reset() {
	s.nodes = build(s.original)
	s.selected = ""
	s.dirty = false
}
