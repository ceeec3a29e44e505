// Package sqlite opens SQLite databases with the driver selected at build
// time.
//
// Build modes:
//   - Default (CGO_ENABLED=0): pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): mattn/go-sqlite3
package sqlite

import (
	"database/sql"
	"fmt"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// pragmas run once on the single pooled connection.
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Driver describes the compiled-in SQLite driver.
type Driver struct {
	Name    string `json:"name"`
	Mode    string `json:"mode"` // "cgo" or "purego"
	Package string `json:"package"`
}

// CurrentDriver returns the driver this binary was built with.
func CurrentDriver() Driver {
	return Driver{Name: driverName, Mode: driverType, Package: driverPackage}
}

// Open opens dsn with foreign keys enforced. The pool holds one
// connection so the pragmas and in-memory databases apply to every query.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	return db, nil
}
