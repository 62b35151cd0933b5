package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

// OpenTest opens a migrated database in a per-test temp directory.
func OpenTest(t testing.TB) *DB {
	t.Helper()

	db, err := Open(Config{
		Path: filepath.Join(t.TempDir(), "ledger.db"),
		Name: "test",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}
