package database

import (
	"database/sql"
	"fmt"

	"wsrestore/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// NewSQLiteStore opens the SQLite database at path as a destination. The
// workspace tables must already exist; nothing is created or altered.
func NewSQLiteStore(path string) (*SQLStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return newSQLStore(db, sqliteDialect, false), nil
}

// NewRehearsalStore returns an empty in-memory store with the bundled
// workspace schema. Unknown exported fields are added as columns on first
// insert. Dry runs load into it so the destination is never touched.
func NewRehearsalStore() (*SQLStore, error) {
	db, err := OpenConnection(":memory:")
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying workspace schema: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	return NewSQLiteStoreFromDB(db), nil
}

// NewSQLiteStoreFromDB wraps an existing connection that already has the
// workspace schema, adding unknown exported fields as columns.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLStore {
	return newSQLStore(db, sqliteDialect, true)
}

// OpenConnection opens and configures a SQLite database connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database exists per connection and
	// PRAGMAs are per connection too.
	db.SetMaxOpenConns(1)

	// SQLite leaves foreign keys off unless asked.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}
