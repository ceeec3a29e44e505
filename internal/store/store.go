// Package store persists documents, notes, folders, citation aliases and
// anchors in SQLite.
//
// The store implements citation.AliasStore, citation.NodeLookup and
// anchor.Store. Every driver failure is returned as an
// errors.PersistenceError naming the operation and entity.
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
	"github.com/FocuswithJustin/JuniperStudy/core/sqlite"
	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
)

// Store is a SQLite-backed repository.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Use sqlite.MemoryDSN for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewPersistence("open", "database", err)
	}
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logging.Debug("store opened", "path", path, "driver", sqlite.CurrentDriver().Mode)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return errors.NewPersistence("ping", "database", s.db.PingContext(ctx))
}

func (s *Store) timestamp() string {
	return formatTime(s.now())
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullable(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func fromNullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// Both drivers report constraint failures with SQLite's own message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// expectRow turns a zero-row UPDATE or DELETE into a NotFoundError.
func expectRow(res sql.Result, op, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewPersistence(op, entity, err)
	}
	if n == 0 {
		return errors.NewNotFound(entity, id)
	}
	return nil
}

// inTx runs fn inside a transaction, committing on success.
func (s *Store) inTx(ctx context.Context, op, entity string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewPersistence(op, entity, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewPersistence(op, entity, err)
	}
	return nil
}
