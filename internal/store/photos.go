package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Photo is a stored picture of a produce lot.
type Photo struct {
	UPC        uint64
	Data       []byte
	MIME       string
	UploadedBy string
	UpdatedAt  time.Time
}

// SetItemPhoto stores or replaces the photo for upc. The item must exist.
func SetItemPhoto(ctx context.Context, db *sql.DB, upc uint64, data []byte, mime, uploadedBy string) error {
	_, err := db.ExecContext(ctx,
		rebind(db, `INSERT INTO item_photos (upc, data, mime, uploaded_by, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (upc) DO UPDATE SET data = excluded.data, mime = excluded.mime,
		 uploaded_by = excluded.uploaded_by, updated_at = excluded.updated_at`),
		int64(upc), data, mime, uploadedBy, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing photo: %w", err)
	}
	return nil
}

// GetItemPhoto returns the photo for upc, or nil if none is stored.
func GetItemPhoto(ctx context.Context, db *sql.DB, upc uint64) (*Photo, error) {
	p := &Photo{UPC: upc}
	err := db.QueryRowContext(ctx,
		rebind(db, `SELECT data, mime, uploaded_by, updated_at FROM item_photos WHERE upc = ?`), int64(upc),
	).Scan(&p.Data, &p.MIME, &p.UploadedBy, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting photo: %w", err)
	}
	return p, nil
}
