package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

// FolderKind separates the document tree from the note tree.
type FolderKind string

// Folder kinds.
const (
	FolderDocuments FolderKind = "documents"
	FolderNotes     FolderKind = "notes"
)

// Folder groups documents or notes. ParentID is nil at the root.
type Folder struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Kind      FolderKind `json:"kind"`
	Name      string     `json:"name"`
	ParentID  *string    `json:"parent_id,omitempty"`
	Order     float64    `json:"order"`
	CreatedAt time.Time  `json:"created_at"`
}

// Note is a user's rich-text note. Content is an HTML fragment.
type Note struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	FolderID  *string   `json:"folder_id,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Order     float64   `json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const folderColumns = `id, owner_id, kind, name, parent_id, ord, created_at`

func scanFolder(row interface{ Scan(...any) error }) (Folder, error) {
	var (
		f       Folder
		kind    string
		parent  sql.NullString
		created string
	)
	err := row.Scan(&f.ID, &f.OwnerID, &kind, &f.Name, &parent, &f.Order, &created)
	f.Kind, f.ParentID, f.CreatedAt = FolderKind(kind), fromNullable(parent), parseTime(created)
	return f, err
}

// CreateFolder stores f and sets its CreatedAt.
func (s *Store) CreateFolder(ctx context.Context, f *Folder) error {
	if f.Kind != FolderDocuments && f.Kind != FolderNotes {
		return errors.NewValidation("kind", "folder kind must be documents or notes")
	}
	if strings.TrimSpace(f.Name) == "" {
		return errors.NewValidation("name", "folder name is required")
	}
	f.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO folders (`+folderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.OwnerID, string(f.Kind), strings.TrimSpace(f.Name), nullable(f.ParentID), f.Order, formatTime(f.CreatedAt))
	if isForeignKeyViolation(err) {
		return errors.NewNotFound("folder", *f.ParentID)
	}
	return errors.NewPersistence("insert", "folder", err)
}

// GetFolder loads one folder.
func (s *Store) GetFolder(ctx context.Context, id string) (Folder, error) {
	f, err := scanFolder(s.db.QueryRowContext(ctx, `SELECT `+folderColumns+` FROM folders WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Folder{}, errors.NewNotFound("folder", id)
	}
	if err != nil {
		return Folder{}, errors.NewPersistence("load", "folder", err)
	}
	return f, nil
}

// ListFolders returns the owner's folders of one kind in sibling order.
func (s *Store) ListFolders(ctx context.Context, ownerID string, kind FolderKind) ([]Folder, error) {
	out := []Folder{}
	if ownerID == "" {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+folderColumns+` FROM folders
		WHERE owner_id = ? AND kind = ? ORDER BY ord, created_at, rowid`, ownerID, string(kind))
	if err != nil {
		return nil, errors.NewPersistence("list", "folder", err)
	}
	defer rows.Close()
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, errors.NewPersistence("list", "folder", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence("list", "folder", err)
	}
	return out, nil
}

// RenameFolder changes a folder's name.
func (s *Store) RenameFolder(ctx context.Context, id, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewValidation("name", "folder name is required")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE folders SET name = ? WHERE id = ?`, strings.TrimSpace(name), id)
	if err != nil {
		return errors.NewPersistence("rename", "folder", err)
	}
	return expectRow(res, "rename", "folder", id)
}

// PlaceFolder moves a folder under parentID (nil for the root) at order.
// Cycle checks are the caller's job.
func (s *Store) PlaceFolder(ctx context.Context, id string, parentID *string, order float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE folders SET parent_id = ?, ord = ? WHERE id = ?`,
		nullable(parentID), order, id)
	if isForeignKeyViolation(err) {
		return errors.NewNotFound("folder", *parentID)
	}
	if err != nil {
		return errors.NewPersistence("move", "folder", err)
	}
	return expectRow(res, "move", "folder", id)
}

// DeleteFolder removes a folder. Its children, documents and notes move to
// the root.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return errors.NewPersistence("delete", "folder", err)
	}
	return expectRow(res, "delete", "folder", id)
}

const noteColumns = `id, owner_id, folder_id, title, content, ord, created_at, updated_at`

func scanNote(row interface{ Scan(...any) error }) (Note, error) {
	var (
		n                Note
		folder           sql.NullString
		created, updated string
	)
	err := row.Scan(&n.ID, &n.OwnerID, &folder, &n.Title, &n.Content, &n.Order, &created, &updated)
	n.FolderID, n.CreatedAt, n.UpdatedAt = fromNullable(folder), parseTime(created), parseTime(updated)
	return n, err
}

// CreateNote stores n and sets its timestamps.
func (s *Store) CreateNote(ctx context.Context, n *Note) error {
	if strings.TrimSpace(n.OwnerID) == "" {
		return errors.NewValidation("owner_id", "note owner is required")
	}
	now := s.now().UTC()
	n.CreatedAt, n.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, `INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.OwnerID, nullable(n.FolderID), n.Title, n.Content, n.Order, formatTime(now), formatTime(now))
	if isForeignKeyViolation(err) {
		return errors.NewNotFound("folder", *n.FolderID)
	}
	return errors.NewPersistence("insert", "note", err)
}

// GetNote loads one note.
func (s *Store) GetNote(ctx context.Context, id string) (Note, error) {
	n, err := scanNote(s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Note{}, errors.NewNotFound("note", id)
	}
	if err != nil {
		return Note{}, errors.NewPersistence("load", "note", err)
	}
	return n, nil
}

// ListNotes returns the owner's notes in sibling order.
func (s *Store) ListNotes(ctx context.Context, ownerID string) ([]Note, error) {
	out := []Note{}
	if ownerID == "" {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes
		WHERE owner_id = ? ORDER BY ord, created_at, rowid`, ownerID)
	if err != nil {
		return nil, errors.NewPersistence("list", "note", err)
	}
	defer rows.Close()
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, errors.NewPersistence("list", "note", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence("list", "note", err)
	}
	return out, nil
}

// UpdateNote replaces a note's title and content.
func (s *Store) UpdateNote(ctx context.Context, id, title, content string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		title, content, s.timestamp(), id)
	if err != nil {
		return errors.NewPersistence("update", "note", err)
	}
	return expectRow(res, "update", "note", id)
}

// PlaceNote moves a note into folderID (nil for the root) at order.
func (s *Store) PlaceNote(ctx context.Context, id string, folderID *string, order float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notes SET folder_id = ?, ord = ?, updated_at = ? WHERE id = ?`,
		nullable(folderID), order, s.timestamp(), id)
	if isForeignKeyViolation(err) {
		return errors.NewNotFound("folder", *folderID)
	}
	if err != nil {
		return errors.NewPersistence("move", "note", err)
	}
	return expectRow(res, "move", "note", id)
}

// DeleteNote removes a note and its anchors.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return errors.NewPersistence("delete", "note", err)
	}
	return expectRow(res, "delete", "note", id)
}
