package document

import (
	"encoding/json"
	"fmt"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

// wireNode is the JSON shape of a node: the variant's fields plus a kind tag.
type wireNode struct {
	Kind          Kind      `json:"kind"`
	ID            string    `json:"id"`
	Level         Level     `json:"level,omitempty"`
	Alignment     Alignment `json:"alignment,omitempty"`
	Number        int       `json:"number,omitempty"`
	DisplayNumber string    `json:"display_number,omitempty"`
	Content       string    `json:"content"`
	Footnotes     []string  `json:"footnotes,omitempty"`
}

// MarshalJSON encodes the sequence with a kind discriminator per node.
func (ns Nodes) MarshalJSON() ([]byte, error) {
	out := make([]wireNode, 0, len(ns))
	for _, n := range ns {
		switch v := n.(type) {
		case *Structural:
			out = append(out, wireNode{
				Kind:      KindStructural,
				ID:        v.ID,
				Level:     v.Level,
				Alignment: v.Alignment(),
				Content:   v.Content,
			})
		case *Citable:
			out = append(out, wireNode{
				Kind:          KindCitable,
				ID:            v.ID,
				Number:        v.Number,
				DisplayNumber: v.DisplayNumber,
				Content:       v.Content,
				Footnotes:     v.Footnotes,
			})
		default:
			return nil, fmt.Errorf("unknown node type %T", n)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a kind-tagged node array. The alignment field is
// ignored on input because it is always derived from the level.
func (ns *Nodes) UnmarshalJSON(data []byte) error {
	var in []wireNode
	if err := json.Unmarshal(data, &in); err != nil {
		return &errors.ParseError{Format: "JSON", Message: "node list", Err: err}
	}
	out := make(Nodes, 0, len(in))
	for i, w := range in {
		switch w.Kind {
		case KindStructural:
			if !w.Level.Valid() {
				return errors.NewParse("JSON", "", fmt.Sprintf("node %d: unknown level %q", i, w.Level))
			}
			out = append(out, &Structural{ID: w.ID, Level: w.Level, Content: w.Content})
		case KindCitable:
			out = append(out, &Citable{
				ID:            w.ID,
				Number:        w.Number,
				DisplayNumber: w.DisplayNumber,
				Content:       w.Content,
				Footnotes:     w.Footnotes,
			})
		default:
			return errors.NewParse("JSON", "", fmt.Sprintf("node %d: unknown kind %q", i, w.Kind))
		}
	}
	*ns = out
	return nil
}
