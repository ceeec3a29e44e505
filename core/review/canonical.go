package review

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/JuniperStudy/core/document"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

// IDFunc generates node identifiers during canonicalisation.
type IDFunc func() string

// Canonicalize converts the session into immutable document nodes. Ignored
// nodes are left out. A citable node's Number is its display number when that
// is an integer, otherwise its position in the citable sequence. With a nil
// IDFunc, random UUIDs are used.
//
// The session itself is not modified; the caller discards it after the nodes
// have been stored.
func (s *Session) Canonicalize(newID IDFunc) (document.Nodes, error) {
	if newID == nil {
		newID = uuid.NewString
	}

	out := make(document.Nodes, 0, len(s.nodes))
	position := 0
	for _, rn := range s.nodes {
		switch rn.Type {
		case TypeIgnored:
			continue
		case TypeStructural:
			level := rn.Level
			if !level.Valid() {
				level = document.LevelHeading
			}
			out = append(out, &document.Structural{
				ID:      newID(),
				Level:   level,
				Content: strings.TrimSpace(rn.Content),
			})
		case TypeCitable:
			position++
			content := strings.TrimSpace(rn.Content)
			if content == "" {
				return nil, &errors.ValidationError{
					Field:   "content",
					Value:   rn.TempID,
					Message: fmt.Sprintf("paragraph %s has no text", displayOr(rn.DisplayNumber, position)),
				}
			}
			number, err := strconv.Atoi(strings.TrimSpace(rn.DisplayNumber))
			if err != nil {
				number = position
			}
			display := strings.TrimSpace(rn.DisplayNumber)
			if display == "" {
				display = strconv.Itoa(number)
			}
			out = append(out, &document.Citable{
				ID:            newID(),
				Number:        number,
				DisplayNumber: display,
				Content:       content,
			})
		}
	}
	return out, nil
}

func displayOr(display string, position int) string {
	if display != "" {
		return display
	}
	return "#" + strconv.Itoa(position)
}
