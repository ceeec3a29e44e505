package sqlite

import (
	"path/filepath"
	"testing"
)

func TestCurrentDriver(t *testing.T) {
	want := map[string]Driver{
		"purego": {Name: "sqlite", Mode: "purego", Package: "modernc.org/sqlite"},
		"cgo":    {Name: "sqlite3", Mode: "cgo", Package: "github.com/mattn/go-sqlite3"},
	}
	got := CurrentDriver()
	if w, ok := want[got.Mode]; !ok || got != w {
		t.Errorf("CurrentDriver() = %+v", got)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name string
		dsn  func(t *testing.T) string
	}{
		{"file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "study.db") }},
		{"memory", func(*testing.T) string { return MemoryDSN }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Open(tt.dsn(t))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer db.Close()

			var fk int
			if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil || fk != 1 {
				t.Errorf("foreign_keys = %d, %v", fk, err)
			}
			if _, err := db.Exec(`CREATE TABLE parent (id TEXT PRIMARY KEY)`); err != nil {
				t.Fatal(err)
			}
			if _, err := db.Exec(`CREATE TABLE child (p TEXT REFERENCES parent(id))`); err != nil {
				t.Fatal(err)
			}
			if _, err := db.Exec(`INSERT INTO child VALUES ('missing')`); err == nil {
				t.Error("foreign key violation accepted")
			}
		})
	}
}
