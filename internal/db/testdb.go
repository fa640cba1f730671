package db

import (
	"database/sql"
	"testing"
)

// NewTestDB returns a private in-memory SQLite ledger database with the schema
// applied. It is closed when tb finishes.
func NewTestDB(tb testing.TB) *sql.DB {
	tb.Helper()

	database, err := Open(":memory:")
	if err != nil {
		tb.Fatalf("opening in-memory ledger database: %v", err)
	}
	tb.Cleanup(func() { database.Close() })

	if err := EnsureSchema(database); err != nil {
		tb.Fatalf("applying ledger schema: %v", err)
	}
	return database
}
