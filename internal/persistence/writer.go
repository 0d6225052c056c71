package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// EventLogWriter writes committed events and their balance movements to
// Postgres using multi-row INSERTs. Writes are idempotent on conflict so a
// crashed worker can safely replay its last batch.
type EventLogWriter struct {
	db *sql.DB
}

// EventRow is a row in event_log.events.
type EventRow struct {
	Sequence       int64
	EventType      string
	IdempotencyKey string
	Payload        []byte // JSON-encoded event payload
	StateHash      []byte
	PrevHash       []byte
	Timestamp      time.Time
}

// MovementRow is a row in event_log.movements. Amount is a decimal string
// stored as NUMERIC, since minimal-unit amounts exceed int64.
type MovementRow struct {
	MovementID  string
	Sequence    int64
	Kind        string
	FromAddress string
	ToAddress   string
	Amount      string
}

func NewEventLogWriter(db *sql.DB) *EventLogWriter {
	return &EventLogWriter{db: db}
}

// WriteEventBatch writes a batch of events to event_log.events.
func (w *EventLogWriter) WriteEventBatch(ctx context.Context, events []EventRow) error {
	if len(events) == 0 {
		return nil
	}

	query := `INSERT INTO event_log.events
		(sequence, event_type, idempotency_key, payload, state_hash, prev_hash, timestamp)
		VALUES `

	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*7)

	for i, e := range events {
		base := i * 7
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args,
			e.Sequence, e.EventType, e.IdempotencyKey,
			e.Payload, e.StateHash, e.PrevHash, e.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING"

	_, err := w.db.ExecContext(ctx, query, args...)
	return err
}

// WriteMovementBatch writes a batch of movements to event_log.movements.
func (w *EventLogWriter) WriteMovementBatch(ctx context.Context, movements []MovementRow) error {
	if len(movements) == 0 {
		return nil
	}

	query := `INSERT INTO event_log.movements
		(movement_id, sequence, kind, from_address, to_address, amount)
		VALUES `

	values := make([]string, 0, len(movements))
	args := make([]interface{}, 0, len(movements)*6)

	for i, m := range movements {
		base := i * 6
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
		))
		args = append(args,
			m.MovementID, m.Sequence, m.Kind,
			m.FromAddress, m.ToAddress, m.Amount,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (movement_id) DO NOTHING"

	_, err := w.db.ExecContext(ctx, query, args...)
	return err
}

// LastSequence returns the highest persisted sequence, -1 if the log is
// empty. Used on startup to decide where replay must begin.
func (w *EventLogWriter) LastSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := w.db.QueryRowContext(ctx,
		`SELECT MAX(sequence) FROM event_log.events`).Scan(&seq)
	if err != nil {
		return -1, fmt.Errorf("query last sequence: %w", err)
	}
	if !seq.Valid {
		return -1, nil
	}
	return seq.Int64, nil
}
