package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
)

// migrations are applied in order; the index+1 of the last applied step is
// kept in PRAGMA user_version.
var migrations = []string{
	`CREATE TABLE folders (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		kind       TEXT NOT NULL CHECK (kind IN ('documents', 'notes')),
		name       TEXT NOT NULL,
		parent_id  TEXT REFERENCES folders(id) ON DELETE SET NULL,
		ord        REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX folders_owner ON folders(owner_id, kind);

	CREATE TABLE documents (
		id          TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		title       TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_hash TEXT NOT NULL DEFAULT '',
		folder_id   TEXT REFERENCES folders(id) ON DELETE SET NULL,
		ord         REAL NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX documents_owner ON documents(owner_id);

	CREATE TABLE document_nodes (
		id             TEXT PRIMARY KEY,
		document_id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		position       INTEGER NOT NULL,
		kind           TEXT NOT NULL CHECK (kind IN ('structural', 'citable')),
		level          TEXT NOT NULL DEFAULT '',
		number         INTEGER NOT NULL DEFAULT 0,
		display_number TEXT NOT NULL DEFAULT '',
		content        TEXT NOT NULL,
		footnotes      TEXT NOT NULL DEFAULT '[]',
		UNIQUE (document_id, position)
	);
	CREATE INDEX document_nodes_number ON document_nodes(document_id, kind, number);

	CREATE TABLE notes (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		folder_id  TEXT REFERENCES folders(id) ON DELETE SET NULL,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL DEFAULT '',
		ord        REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX notes_owner ON notes(owner_id);

	CREATE TABLE citation_aliases (
		id               TEXT PRIMARY KEY,
		document_id      TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		prefix           TEXT NOT NULL,
		pattern          TEXT NOT NULL,
		number_extractor TEXT NOT NULL,
		display_format   TEXT NOT NULL,
		priority         INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	);
	CREATE UNIQUE INDEX citation_aliases_prefix ON citation_aliases(lower(prefix));

	CREATE TABLE citation_anchors (
		id            TEXT PRIMARY KEY,
		document_id   TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		node_id       TEXT NOT NULL,
		note_id       TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
		display_label TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		UNIQUE (document_id, node_id, note_id)
	);
	CREATE INDEX citation_anchors_note ON citation_anchors(note_id);`,
}

// SchemaVersion is the version a fully migrated database reports.
func SchemaVersion() int {
	return len(migrations)
}

func (s *Store) version(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, errors.NewPersistence("read", "schema version", err)
	}
	return v, nil
}

func (s *Store) migrate(ctx context.Context) error {
	current, err := s.version(ctx)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return errors.NewUnsupported("schema version", fmt.Sprintf("database is at version %d, this build knows %d", current, len(migrations)))
	}
	for i := current; i < len(migrations); i++ {
		step := migrations[i]
		err := s.inTx(ctx, "migrate", "schema", func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, step); err != nil {
				return errors.NewPersistence("migrate", "schema", err)
			}
			// PRAGMA does not accept bound parameters.
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
				return errors.NewPersistence("migrate", "schema", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		logging.Info("schema migrated", "version", i+1)
	}
	return nil
}
