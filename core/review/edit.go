package review

import (
	"fmt"

	"github.com/FocuswithJustin/JuniperStudy/core/document"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

// Op names a session operation carried by an Edit.
type Op string

// Edit operations.
const (
	OpSelect        Op = "select"
	OpReclassify    Op = "reclassify"
	OpMakeCitable   Op = "make_citable"
	OpIgnore        Op = "ignore"
	OpRestore       Op = "restore"
	OpMergePrevious Op = "merge_previous"
	OpMergeNext     Op = "merge_next"
	OpSplit         Op = "split"
	OpEditContent   Op = "edit_content"
	OpEditNumber    Op = "edit_number"
	OpResequence    Op = "resequence"
	OpReset         Op = "reset"
)

// Edit is one session operation in serialisable form, as sent by the API
// and built by the CLI.
type Edit struct {
	Op            Op             `json:"op"`
	NodeID        string         `json:"node_id,omitempty"`
	Type          NodeType       `json:"node_type,omitempty"`
	Level         document.Level `json:"level,omitempty"`
	DisplayNumber string         `json:"display_number,omitempty"`
	Content       string         `json:"content,omitempty"`
	Position      int            `json:"position,omitempty"`
}

// Apply runs the edit against s. The bool is the session's own result; an
// error means the edit itself is malformed.
func (e Edit) Apply(s *Session) (bool, error) {
	switch e.Op {
	case OpSelect:
		s.Select(e.NodeID)
		return true, nil
	case OpReclassify:
		return s.Reclassify(e.NodeID, Classification{Type: e.Type, Level: e.Level, DisplayNumber: e.DisplayNumber}), nil
	case OpMakeCitable:
		return s.MakeCitable(e.NodeID), nil
	case OpIgnore:
		return s.Ignore(e.NodeID), nil
	case OpRestore:
		return s.Restore(e.NodeID), nil
	case OpMergePrevious:
		return s.MergeWithPrevious(e.NodeID), nil
	case OpMergeNext:
		return s.MergeWithNext(e.NodeID), nil
	case OpSplit:
		return s.Split(e.NodeID, e.Position), nil
	case OpEditContent:
		return s.EditContent(e.NodeID, e.Content), nil
	case OpEditNumber:
		return s.EditDisplayNumber(e.NodeID, e.DisplayNumber), nil
	case OpResequence:
		s.ResequenceNumbers()
		return true, nil
	case OpReset:
		s.Reset()
		return true, nil
	default:
		return false, &errors.ValidationError{Field: "op", Value: string(e.Op), Message: fmt.Sprintf("unknown edit %q", e.Op)}
	}
}

// NodeAt returns the temp id of the node at a 1-based position in the
// current order.
func (s *Session) NodeAt(position int) (string, bool) {
	if position < 1 || position > len(s.nodes) {
		return "", false
	}
	return s.nodes[position-1].TempID, true
}
