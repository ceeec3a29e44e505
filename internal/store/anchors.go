package store

import (
	"context"
	"database/sql"

	"github.com/FocuswithJustin/JuniperStudy/core/anchor"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

var _ anchor.Store = (*Store)(nil)

const anchorColumns = `id, document_id, node_id, note_id, display_label, created_at`

func scanAnchor(row interface{ Scan(...any) error }) (anchor.Anchor, error) {
	var (
		a       anchor.Anchor
		created string
	)
	err := row.Scan(&a.ID, &a.DocumentID, &a.NodeID, &a.NoteID, &a.DisplayLabel, &created)
	a.CreatedAt = parseTime(created)
	return a, err
}

// FindAnchor looks up the anchor for a (document, node, note) triple.
func (s *Store) FindAnchor(ctx context.Context, documentID, nodeID, noteID string) (anchor.Anchor, bool, error) {
	a, err := scanAnchor(s.db.QueryRowContext(ctx, `SELECT `+anchorColumns+` FROM citation_anchors
		WHERE document_id = ? AND node_id = ? AND note_id = ?`, documentID, nodeID, noteID))
	if err == sql.ErrNoRows {
		return anchor.Anchor{}, false, nil
	}
	if err != nil {
		return anchor.Anchor{}, false, errors.NewPersistence("find", "anchor", err)
	}
	return a, true, nil
}

// InsertAnchor stores an anchor. A duplicate triple yields ErrAlreadyExists.
func (s *Store) InsertAnchor(ctx context.Context, a anchor.Anchor) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO citation_anchors (`+anchorColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.DocumentID, a.NodeID, a.NoteID, a.DisplayLabel, formatTime(a.CreatedAt))
	switch {
	case isUniqueViolation(err):
		return errors.Wrapf(errors.ErrAlreadyExists, "anchor %s/%s/%s", a.DocumentID, a.NodeID, a.NoteID)
	case isForeignKeyViolation(err):
		return &errors.ValidationError{Field: "anchor", Message: "document or note does not exist", Err: errors.ErrNotFound}
	case err != nil:
		return errors.NewPersistence("insert", "anchor", err)
	}
	return nil
}

// GetAnchor loads one anchor.
func (s *Store) GetAnchor(ctx context.Context, id string) (anchor.Anchor, error) {
	a, err := scanAnchor(s.db.QueryRowContext(ctx, `SELECT `+anchorColumns+` FROM citation_anchors WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return anchor.Anchor{}, errors.NewNotFound("anchor", id)
	}
	if err != nil {
		return anchor.Anchor{}, errors.NewPersistence("load", "anchor", err)
	}
	return a, nil
}

// DeleteAnchor removes an anchor by id.
func (s *Store) DeleteAnchor(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM citation_anchors WHERE id = ?`, id)
	if err != nil {
		return errors.NewPersistence("delete", "anchor", err)
	}
	return expectRow(res, "delete", "anchor", id)
}

// AnchorsForDocument lists the anchors targeting documentID.
func (s *Store) AnchorsForDocument(ctx context.Context, documentID string) ([]anchor.Anchor, error) {
	return s.anchors(ctx, `document_id = ?`, documentID)
}

// AnchorsForNote lists the anchors made from noteID.
func (s *Store) AnchorsForNote(ctx context.Context, noteID string) ([]anchor.Anchor, error) {
	return s.anchors(ctx, `note_id = ?`, noteID)
}

func (s *Store) anchors(ctx context.Context, where string, arg string) ([]anchor.Anchor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+anchorColumns+` FROM citation_anchors
		WHERE `+where+` ORDER BY created_at, rowid`, arg)
	if err != nil {
		return nil, errors.NewPersistence("list", "anchor", err)
	}
	defer rows.Close()

	out := []anchor.Anchor{}
	for rows.Next() {
		a, err := scanAnchor(rows)
		if err != nil {
			return nil, errors.NewPersistence("list", "anchor", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence("list", "anchor", err)
	}
	return out, nil
}
