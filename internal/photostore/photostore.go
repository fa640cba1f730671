// Package photostore keeps produce photos either in the ledger database or in
// an S3-compatible bucket.
package photostore

import (
	"context"
	"database/sql"

	"github.com/erazemk/sledljivost/internal/store"
)

// Store holds at most one photo per item.
type Store interface {
	Put(ctx context.Context, upc uint64, data []byte, mime, uploadedBy string) error
	// Get returns nil when the item has no photo.
	Get(ctx context.Context, upc uint64) (*store.Photo, error)
	Driver() string
}

// DB stores photos in the item_photos table.
type DB struct {
	db *sql.DB
}

func NewDB(db *sql.DB) *DB {
	return &DB{db: db}
}

func (s *DB) Put(ctx context.Context, upc uint64, data []byte, mime, uploadedBy string) error {
	return store.SetItemPhoto(ctx, s.db, upc, data, mime, uploadedBy)
}

func (s *DB) Get(ctx context.Context, upc uint64) (*store.Photo, error) {
	return store.GetItemPhoto(ctx, s.db, upc)
}

func (s *DB) Driver() string { return "db" }
