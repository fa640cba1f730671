// Package ledger is the produce custody ledger: role registry, item store,
// lifecycle engine, event log and read views over one database.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/sledljivost/internal/db"
	"github.com/erazemk/sledljivost/internal/model"
)

const adminSettingKey = "ledger_admin"

// Observer is told about every committed transition and every rejection.
// Calls happen after the transaction has finished, in ledger order per item.
type Observer interface {
	TransitionCommitted(ev model.Event)
	TransitionRejected(op string, err error)
}

// EventFunc adapts a plain function to an Observer that ignores rejections.
type EventFunc func(ev model.Event)

func (f EventFunc) TransitionCommitted(ev model.Event) { f(ev) }
func (f EventFunc) TransitionRejected(string, error) {}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Ledger is the single writer of item records.
type Ledger struct {
	db      *sql.DB
	dialect db.Dialect
	admin   string
	locks   itemLocks
	now     func() time.Time

	mu        sync.RWMutex
	observers []Observer
}

func newLedger(database *sql.DB, admin string) *Ledger {
	return &Ledger{
		db:      database,
		dialect: db.DialectOf(database),
		admin:   admin,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Init fixes admin as the ledger administrator and enrolls it in every role.
// It fails if the ledger already has an administrator.
func Init(ctx context.Context, database *sql.DB, admin string) (*Ledger, error) {
	if admin == "" {
		return nil, fmt.Errorf("initializing ledger: administrator identity required")
	}

	l := newLedger(database, admin)

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, l.q(`SELECT value FROM settings WHERE key = ?`), adminSettingKey).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("ledger already initialized with administrator %q", existing)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading ledger administrator: %w", err)
	}

	if _, err := tx.ExecContext(ctx, l.q(`INSERT INTO settings (key, value) VALUES (?, ?)`), adminSettingKey, admin); err != nil {
		return nil, fmt.Errorf("storing ledger administrator: %w", err)
	}

	for _, role := range model.Roles {
		if _, err := l.insertRole(ctx, tx, role, admin, admin); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing ledger init: %w", err)
	}

	slog.Info("ledger initialized", "admin", admin)
	return l, nil
}

// Open loads an initialized ledger.
func Open(ctx context.Context, database *sql.DB) (*Ledger, error) {
	var admin string
	err := database.QueryRowContext(ctx,
		db.Rebind(db.DialectOf(database), `SELECT value FROM settings WHERE key = ?`), adminSettingKey,
	).Scan(&admin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger administrator: %w", err)
	}
	return newLedger(database, admin), nil
}

// Initialized reports whether Init has run against database.
func Initialized(ctx context.Context, database *sql.DB) (bool, error) {
	_, err := Open(ctx, database)
	if errors.Is(err, ErrNotInitialized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Admin returns the administrator identity fixed at initialization.
func (l *Ledger) Admin() string {
	return l.admin
}

// AddObserver registers o for all future transitions.
func (l *Ledger) AddObserver(o Observer) {
	l.mu.Lock()
	l.observers = append(l.observers, o)
	l.mu.Unlock()
}

// Subscribe registers fn for every committed event.
func (l *Ledger) Subscribe(fn func(model.Event)) {
	l.AddObserver(EventFunc(fn))
}

func (l *Ledger) committed(ev model.Event) {
	slog.Info("item transition", "event", ev.Name, "upc", ev.UPC, "actor", ev.Actor, "seq", ev.Seq)

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, o := range l.observers {
		o.TransitionCommitted(ev)
	}
}

func (l *Ledger) rejected(op, caller string, upc uint64, err error) {
	if KindOf(err) == KindUnknown {
		slog.Error("item transition failed", "op", op, "upc", upc, "actor", caller, "error", err)
	} else {
		slog.Warn("item transition rejected", "op", op, "upc", upc, "actor", caller, "error", err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, o := range l.observers {
		o.TransitionRejected(op, err)
	}
}

// q adapts a query to the ledger's SQL dialect.
func (l *Ledger) q(query string) string {
	return db.Rebind(l.dialect, query)
}

// nextCounter bumps a named counter and returns the new value. The row lock
// it takes serializes concurrent writers on Postgres until commit.
func (l *Ledger) nextCounter(ctx context.Context, tx *sql.Tx, name string) (uint64, error) {
	var value uint64
	err := tx.QueryRowContext(ctx,
		l.q(`UPDATE counters SET value = value + 1 WHERE name = ? RETURNING value`), name,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("advancing %s counter: %w", name, err)
	}
	return value, nil
}
