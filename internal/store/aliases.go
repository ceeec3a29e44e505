package store

import (
	"context"
	"database/sql"

	"github.com/FocuswithJustin/JuniperStudy/core/citation"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

var _ citation.AliasStore = (*Store)(nil)

const aliasColumns = `id, document_id, prefix, pattern, number_extractor, display_format, priority, created_at, updated_at`

func scanAlias(row interface{ Scan(...any) error }) (citation.Alias, error) {
	var (
		a                citation.Alias
		created, updated string
	)
	err := row.Scan(&a.ID, &a.DocumentID, &a.Prefix, &a.Pattern, &a.NumberExtractor,
		&a.DisplayFormat, &a.Priority, &created, &updated)
	a.CreatedAt, a.UpdatedAt = parseTime(created), parseTime(updated)
	return a, err
}

// aliasWriteError maps constraint failures onto the registry's errors.
func aliasWriteError(op string, a citation.Alias, err error) error {
	switch {
	case isUniqueViolation(err):
		return &errors.ValidationError{
			Field:   "prefix",
			Value:   a.Prefix,
			Message: "prefix " + a.Prefix + " is already used by another alias",
			Err:     citation.ErrPrefixInUse,
		}
	case isForeignKeyViolation(err):
		return errors.NewNotFound("document", a.DocumentID)
	default:
		return errors.NewPersistence(op, "alias", err)
	}
}

// ListAliases returns every alias, highest priority first, ties in creation
// order.
func (s *Store) ListAliases(ctx context.Context) ([]citation.Alias, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+aliasColumns+` FROM citation_aliases
		ORDER BY priority DESC, created_at, rowid`)
	if err != nil {
		return nil, errors.NewPersistence("list", "alias", err)
	}
	defer rows.Close()

	out := []citation.Alias{}
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, errors.NewPersistence("list", "alias", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence("list", "alias", err)
	}
	return out, nil
}

// GetAlias loads one alias.
func (s *Store) GetAlias(ctx context.Context, id string) (citation.Alias, error) {
	a, err := scanAlias(s.db.QueryRowContext(ctx, `SELECT `+aliasColumns+` FROM citation_aliases WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return citation.Alias{}, errors.NewNotFound("alias", id)
	}
	if err != nil {
		return citation.Alias{}, errors.NewPersistence("load", "alias", err)
	}
	return a, nil
}

// InsertAlias stores a new alias. A prefix already held by another alias
// (compared case-insensitively) is rejected with citation.ErrPrefixInUse.
func (s *Store) InsertAlias(ctx context.Context, a citation.Alias) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO citation_aliases (`+aliasColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DocumentID, a.Prefix, a.Pattern, a.NumberExtractor, a.DisplayFormat,
		a.Priority, formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return aliasWriteError("insert", a, err)
	}
	return nil
}

// UpdateAlias rewrites every field of an existing alias except CreatedAt.
func (s *Store) UpdateAlias(ctx context.Context, a citation.Alias) error {
	res, err := s.db.ExecContext(ctx, `UPDATE citation_aliases SET
		document_id = ?, prefix = ?, pattern = ?, number_extractor = ?, display_format = ?,
		priority = ?, updated_at = ? WHERE id = ?`,
		a.DocumentID, a.Prefix, a.Pattern, a.NumberExtractor, a.DisplayFormat,
		a.Priority, formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		return aliasWriteError("update", a, err)
	}
	return expectRow(res, "update", "alias", a.ID)
}

// DeleteAlias removes an alias.
func (s *Store) DeleteAlias(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM citation_aliases WHERE id = ?`, id)
	if err != nil {
		return errors.NewPersistence("delete", "alias", err)
	}
	return expectRow(res, "delete", "alias", id)
}
