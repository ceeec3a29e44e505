package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/FocuswithJustin/JuniperStudy/core/citation"
	"github.com/FocuswithJustin/JuniperStudy/core/document"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

var _ citation.NodeLookup = (*Store)(nil)

const documentColumns = `id, owner_id, title, source_type, source_hash, folder_id, ord, created_at, updated_at`

// CommitDocument writes doc and all of its nodes in one transaction. Either
// everything is stored or nothing is. CreatedAt and UpdatedAt are set by the
// store.
func (s *Store) CommitDocument(ctx context.Context, doc *document.Document) error {
	switch {
	case strings.TrimSpace(doc.ID) == "":
		return errors.NewValidation("id", "document id is required")
	case strings.TrimSpace(doc.OwnerID) == "":
		return errors.NewValidation("owner_id", "document owner is required")
	case strings.TrimSpace(doc.Title) == "":
		return errors.NewValidation("title", "document title is required")
	}

	now := s.now().UTC()
	err := s.inTx(ctx, "commit", "document", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ID, doc.OwnerID, doc.Title, string(doc.SourceType), doc.SourceHash,
			nullable(doc.FolderID), doc.Order, formatTime(now), formatTime(now))
		if isUniqueViolation(err) {
			return errors.NewPersistence("commit", "document", errors.Wrapf(errors.ErrAlreadyExists, "document %s", doc.ID))
		}
		if err != nil {
			return errors.NewPersistence("commit", "document", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO document_nodes
			(id, document_id, position, kind, level, number, display_number, content, footnotes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return errors.NewPersistence("commit", "document node", err)
		}
		defer stmt.Close()

		for i, n := range doc.Nodes {
			var (
				level, display string
				number         int
				footnotes      = []string{}
			)
			switch v := n.(type) {
			case *document.Structural:
				level = string(v.Level)
			case *document.Citable:
				number, display = v.Number, v.DisplayNumber
				if v.Footnotes != nil {
					footnotes = v.Footnotes
				}
			}
			fn, err := json.Marshal(footnotes)
			if err != nil {
				return errors.NewPersistence("commit", "document node", err)
			}
			if _, err := stmt.ExecContext(ctx, n.NodeID(), doc.ID, i, string(n.Kind()),
				level, number, display, n.Text(), string(fn)); err != nil {
				return errors.NewPersistence("commit", "document node", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	doc.CreatedAt, doc.UpdatedAt = now, now
	return nil
}

func scanDocument(row interface{ Scan(...any) error }) (document.Document, error) {
	var (
		d                document.Document
		sourceType       string
		folder           sql.NullString
		created, updated string
	)
	if err := row.Scan(&d.ID, &d.OwnerID, &d.Title, &sourceType, &d.SourceHash,
		&folder, &d.Order, &created, &updated); err != nil {
		return d, err
	}
	d.SourceType = document.SourceType(sourceType)
	d.FolderID = fromNullable(folder)
	d.CreatedAt, d.UpdatedAt = parseTime(created), parseTime(updated)
	return d, nil
}

// GetDocument loads a document with its nodes.
func (s *Store) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("document", id)
	}
	if err != nil {
		return nil, errors.NewPersistence("load", "document", err)
	}
	nodes, err := s.documentNodes(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Nodes = nodes
	return &d, nil
}

func (s *Store) documentNodes(ctx context.Context, documentID string) (document.Nodes, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, level, number, display_number, content, footnotes
		FROM document_nodes WHERE document_id = ? ORDER BY position`, documentID)
	if err != nil {
		return nil, errors.NewPersistence("load", "document node", err)
	}
	defer rows.Close()

	nodes := document.Nodes{}
	for rows.Next() {
		var (
			id, kind, level, display, content, footnotes string
			number                                       int
		)
		if err := rows.Scan(&id, &kind, &level, &number, &display, &content, &footnotes); err != nil {
			return nil, errors.NewPersistence("load", "document node", err)
		}
		switch document.Kind(kind) {
		case document.KindStructural:
			nodes = append(nodes, &document.Structural{ID: id, Level: document.Level(level), Content: content})
		default:
			c := &document.Citable{ID: id, Number: number, DisplayNumber: display, Content: content}
			if err := json.Unmarshal([]byte(footnotes), &c.Footnotes); err != nil {
				return nil, errors.NewPersistence("load", "document node", err)
			}
			if len(c.Footnotes) == 0 {
				c.Footnotes = nil
			}
			nodes = append(nodes, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence("load", "document node", err)
	}
	return nodes, nil
}

// ListDocuments returns the owner's documents without their nodes, in
// sibling order. An empty owner id yields an empty list.
func (s *Store) ListDocuments(ctx context.Context, ownerID string) ([]document.Document, error) {
	out := []document.Document{}
	if ownerID == "" {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE owner_id = ? ORDER BY ord, created_at, rowid`, ownerID)
	if err != nil {
		return nil, errors.NewPersistence("list", "document", err)
	}
	defer rows.Close()
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errors.NewPersistence("list", "document", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence("list", "document", err)
	}
	return out, nil
}

// FindDocumentByHash returns the owner's document imported from a source
// with the given hash.
func (s *Store) FindDocumentByHash(ctx context.Context, ownerID, hash string) (*document.Document, bool, error) {
	if ownerID == "" || hash == "" {
		return nil, false, nil
	}
	d, err := scanDocument(s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE owner_id = ? AND source_hash = ? ORDER BY created_at, rowid LIMIT 1`, ownerID, hash))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewPersistence("find", "document", err)
	}
	return &d, true, nil
}

// PlaceDocument moves a document into folderID (nil for the root) at order.
func (s *Store) PlaceDocument(ctx context.Context, id string, folderID *string, order float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET folder_id = ?, ord = ?, updated_at = ? WHERE id = ?`,
		nullable(folderID), order, s.timestamp(), id)
	if isForeignKeyViolation(err) {
		return errors.NewNotFound("folder", *folderID)
	}
	if err != nil {
		return errors.NewPersistence("move", "document", err)
	}
	return expectRow(res, "move", "document", id)
}

// RenameDocument changes a document's title.
func (s *Store) RenameDocument(ctx context.Context, id, title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.NewValidation("title", "document title is required")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET title = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(title), s.timestamp(), id)
	if err != nil {
		return errors.NewPersistence("rename", "document", err)
	}
	return expectRow(res, "rename", "document", id)
}

// DeleteDocument removes a document with its nodes, aliases and anchors.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return errors.NewPersistence("delete", "document", err)
	}
	return expectRow(res, "delete", "document", id)
}

// CitableNodeID returns the id of the first citable node of documentID
// numbered number.
func (s *Store) CitableNodeID(ctx context.Context, documentID string, number int) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM document_nodes
		WHERE document_id = ? AND kind = 'citable' AND number = ?
		ORDER BY position LIMIT 1`, documentID, number).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewPersistence("lookup", "document node", err)
	}
	return id, true, nil
}
