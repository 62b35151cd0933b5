// Package database provides the sqlite connection, schema migration and
// transaction helper shared by every service.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Config holds database configuration.
type Config struct {
	Path string
	Name string // friendly name for logging
}

// DB wraps the sqlite connection. All mutating ledger operations run
// through WithTx so header, lines, balance and audit writes commit or
// roll back as one unit.
type DB struct {
	conn *sql.DB
	path string
	log  zerolog.Logger
}

// Open creates the connection, applies pragmas and verifies liveness.
func Open(cfg Config, log zerolog.Logger) (*DB, error) {
	path := cfg.Path
	// file: URIs (in-memory test databases) skip filepath handling.
	if !strings.HasPrefix(path, "file:") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		path = abs
	}

	conn, err := sql.Open("sqlite", connString(path))
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Name, err)
	}

	// sqlite allows one writer; a single connection avoids SQLITE_BUSY
	// between our own transactions.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database %s: %w", cfg.Name, err)
	}

	return &DB{
		conn: conn,
		path: path,
		log:  log.With().Str("db", cfg.Name).Logger(),
	}, nil
}

func connString(path string) string {
	pragmas := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(FULL)",
		"_pragma=foreign_keys(1)",
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(pragmas, "&")
}

// Conn exposes the underlying connection for read paths.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Migrate creates all tables and unique indexes.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	db.log.Debug().Msg("schema applied")
	return nil
}

// WithTx runs fn inside a transaction, rolling back on error.
func (db *DB) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() // no-op once Commit succeeds

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
