package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/sledljivost/internal/model"
)

const accountColumns = `id, username, password_hash, kind, created_at, deleted_at`

// ErrUsernameTaken is returned by CreateAccount when any account, deleted or
// not, has ever used the username. Usernames are ledger identities, so a new
// account must never inherit an old one's roles or items.
var ErrUsernameTaken = errors.New("username already taken")

// CreateAccount creates a new account.
func CreateAccount(ctx context.Context, db *sql.DB, username, passwordHash, kind string) (*model.Account, error) {
	var used bool
	err := db.QueryRowContext(ctx,
		rebind(db, `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = ?)`), username,
	).Scan(&used)
	if err != nil {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if used {
		return nil, ErrUsernameTaken
	}

	var id int64
	err = db.QueryRowContext(ctx,
		rebind(db, `INSERT INTO accounts (username, password_hash, kind) VALUES (?, ?, ?) RETURNING id`),
		username, passwordHash, kind,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}

	return GetAccount(ctx, db, id)
}

func scanAccount(row interface{ Scan(...any) error }) (*model.Account, error) {
	a := &model.Account{}
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Kind, &a.CreatedAt, &a.DeletedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAccount returns an account by ID, including soft-deleted ones.
func GetAccount(ctx context.Context, db *sql.DB, id int64) (*model.Account, error) {
	a, err := scanAccount(db.QueryRowContext(ctx,
		rebind(db, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`), id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting account: %w", err)
	}
	return a, nil
}

// GetAccountByUsername returns the active account with username.
func GetAccountByUsername(ctx context.Context, db *sql.DB, username string) (*model.Account, error) {
	a, err := scanAccount(db.QueryRowContext(ctx,
		rebind(db, `SELECT `+accountColumns+` FROM accounts WHERE username = ? AND deleted_at IS NULL`), username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting account by username: %w", err)
	}
	return a, nil
}

// ListAccounts returns all non-deleted accounts.
func ListAccounts(ctx context.Context, db *sql.DB) ([]model.Account, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// UpdateAccountKind changes whether an account may manage other accounts.
func UpdateAccountKind(ctx context.Context, db *sql.DB, id int64, kind string) error {
	_, err := db.ExecContext(ctx,
		rebind(db, `UPDATE accounts SET kind = ? WHERE id = ? AND deleted_at IS NULL`),
		kind, id,
	)
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	return nil
}

// UpdateAccountPassword updates an account's password hash.
func UpdateAccountPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		rebind(db, `UPDATE accounts SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`),
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating account password: %w", err)
	}
	return nil
}

// DeleteAccount soft-deletes an account. Roles held by its username stay in
// the ledger and the username is never issued again.
func DeleteAccount(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		rebind(db, `UPDATE accounts SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`),
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}

// DiscardAccount removes an account row outright. It is only for undoing a
// creation that failed before the account could act.
func DiscardAccount(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, rebind(db, `DELETE FROM accounts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("discarding account: %w", err)
	}
	return nil
}
