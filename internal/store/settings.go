package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

const jwtSecretKey = "jwt_secret"

// GetOrCreateSetting returns the value stored under key. When there is none,
// the value from create is stored first. Concurrent first calls agree on a
// single value.
func GetOrCreateSetting(ctx context.Context, db *sql.DB, key string, create func() (string, error)) (string, error) {
	var value string
	err := db.QueryRowContext(ctx,
		rebind(db, `SELECT value FROM settings WHERE key = ?`), key,
	).Scan(&value)
	if err == nil {
		return value, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("querying %s: %w", key, err)
	}

	candidate, err := create()
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", key, err)
	}
	_, err = db.ExecContext(ctx,
		rebind(db, `INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`),
		key, candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", key, err)
	}

	err = db.QueryRowContext(ctx,
		rebind(db, `SELECT value FROM settings WHERE key = ?`), key,
	).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", key, err)
	}
	return value, nil
}

// GetJWTSecret returns the token signing secret, generating one on first use.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	return GetOrCreateSetting(ctx, db, jwtSecretKey, func() (string, error) {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		return hex.EncodeToString(buf), nil
	})
}
