package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/sledljivost/internal/model"
)

// DefaultEventPage is the page size ListEvents uses when none is given.
const DefaultEventPage = 100

const eventColumns = `seq, id, name, upc, actor, payload, prev_hash, hash, created_at`

// appendEvent records one transition inside tx. The event sequence counter
// doubles as the chain head lock.
func (l *Ledger) appendEvent(ctx context.Context, tx *sql.Tx, name model.EventName, upc uint64, actor string, payload any, at time.Time) (model.Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return model.Event{}, fmt.Errorf("encoding %s payload: %w", name, err)
	}

	seq, err := l.nextCounter(ctx, tx, "event")
	if err != nil {
		return model.Event{}, err
	}

	var prev string
	if seq > 1 {
		err := tx.QueryRowContext(ctx,
			l.q(`SELECT hash FROM events WHERE seq = ?`), int64(seq-1),
		).Scan(&prev)
		if err != nil {
			return model.Event{}, fmt.Errorf("reading chain head: %w", err)
		}
	}

	ev := model.Event{
		Seq:       seq,
		ID:        uuid.NewString(),
		Name:      name,
		UPC:       upc,
		Actor:     actor,
		Payload:   raw,
		PrevHash:  prev,
		CreatedAt: at,
	}
	ev.Hash = eventHash(ev)

	_, err = tx.ExecContext(ctx,
		l.q(`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		int64(ev.Seq), ev.ID, string(ev.Name), int64(ev.UPC), ev.Actor, string(ev.Payload),
		ev.PrevHash, ev.Hash, ev.CreatedAt,
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("recording %s event: %w", name, err)
	}
	return ev, nil
}

// eventHash covers everything but the timestamp.
func eventHash(ev model.Event) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s|%d|%s|", ev.PrevHash, ev.Seq, ev.ID, ev.Name, ev.UPC, ev.Actor)
	h.Write(ev.Payload)
	return hex.EncodeToString(h.Sum(nil))
}

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		ev      model.Event
		seq     int64
		upc     int64
		name    string
		payload string
	)
	if err := row.Scan(&seq, &ev.ID, &name, &upc, &ev.Actor, &payload, &ev.PrevHash, &ev.Hash, &ev.CreatedAt); err != nil {
		return model.Event{}, err
	}
	ev.Seq = uint64(seq)
	ev.UPC = uint64(upc)
	ev.Name = model.EventName(name)
	ev.Payload = json.RawMessage(payload)
	return ev, nil
}

func (l *Ledger) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := l.db.QueryContext(ctx, l.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListEvents returns up to limit events with a sequence number above after,
// in ledger order.
func (l *Ledger) ListEvents(ctx context.Context, after uint64, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = DefaultEventPage
	}
	return l.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE seq > ? ORDER BY seq LIMIT ?`,
		int64(after), limit,
	)
}

// ItemEvents returns the full history of one item, oldest first.
func (l *Ledger) ItemEvents(ctx context.Context, upc uint64) ([]model.Event, error) {
	if _, err := l.FetchItem(ctx, upc); err != nil {
		return nil, err
	}
	return l.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE upc = ? ORDER BY seq`, int64(upc),
	)
}

// VerifyEvents walks the whole log and checks sequence continuity and every
// link of the hash chain.
func (l *Ledger) VerifyEvents(ctx context.Context) (*model.ChainReport, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	defer rows.Close()

	report := &model.ChainReport{Valid: true}
	prev := ""
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		report.Events++
		if !report.Valid {
			continue
		}

		switch {
		case ev.Seq != report.Events:
			report.Reason = fmt.Sprintf("expected seq %d, found %d", report.Events, ev.Seq)
		case ev.PrevHash != prev:
			report.Reason = "previous hash does not match"
		case eventHash(ev) != ev.Hash:
			report.Reason = "hash does not match contents"
		}
		if report.Reason != "" {
			report.Valid = false
			report.BrokenAt = report.Events
		}
		prev = ev.Hash
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return report, nil
}
