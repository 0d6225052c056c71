package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnapshotManager stores and loads full engine-state snapshots. A snapshot
// is the engine's own canonical JSON export; this layer only frames it
// with identity, sequence and size.
type SnapshotManager struct {
	db *sql.DB
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// Save persists a state export taken at the given sequence.
func (sm *SnapshotManager) Save(ctx context.Context, sequence int64, stateHash []byte, data []byte) error {
	_, err := sm.db.ExecContext(ctx, `
		INSERT INTO event_log.snapshots
			(snapshot_id, sequence, data, state_hash, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), sequence, data, stateHash, len(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LoadLatest returns the most recent snapshot's data and sequence.
// Returns sql.ErrNoRows when no snapshot exists.
func (sm *SnapshotManager) LoadLatest(ctx context.Context) ([]byte, int64, error) {
	var data []byte
	var sequence int64
	err := sm.db.QueryRowContext(ctx, `
		SELECT data, sequence FROM event_log.snapshots
		ORDER BY sequence DESC, created_at DESC LIMIT 1
	`).Scan(&data, &sequence)
	if err != nil {
		return nil, 0, err
	}
	return data, sequence, nil
}

// Prune deletes all but the newest keep snapshots.
func (sm *SnapshotManager) Prune(ctx context.Context, keep int) error {
	_, err := sm.db.ExecContext(ctx, `
		DELETE FROM event_log.snapshots
		WHERE snapshot_id NOT IN (
			SELECT snapshot_id FROM event_log.snapshots
			ORDER BY sequence DESC, created_at DESC LIMIT $1
		)
	`, keep)
	return err
}
