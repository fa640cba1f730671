// Package store holds the account, session and settings tables that sit next
// to the ledger.
package store

import (
	"database/sql"

	"github.com/erazemk/sledljivost/internal/db"
)

// rebind adapts a query written with ? placeholders to database's dialect.
func rebind(database *sql.DB, query string) string {
	return db.Rebind(db.DialectOf(database), query)
}
