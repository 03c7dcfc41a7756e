package db

import (
	"database/sql"
	"testing"

	"github.com/dgraph-io/badger/v4"
)

// NewTestDB creates a fresh in-memory SQLite database with the schema applied.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	// Every connection to ":memory:" gets its own database.
	db.SetMaxOpenConns(1)

	if err := EnsureSchema(db); err != nil {
		db.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

// NewTestKV creates an in-memory BadgerDB instance.
func NewTestKV(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	kv, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("opening test kv store: %v", err)
	}

	t.Cleanup(func() { kv.Close() })

	return kv
}
