package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vim-labs/burni-tokens/internal/core"
	"github.com/vim-labs/burni-tokens/internal/event"
	"github.com/vim-labs/burni-tokens/internal/ledger"
)

// Worker updates the projection tables from committed events. The engine
// sends on its projection channel non-blocking with drop, so projections
// are eventually consistent and can always be rebuilt from the event log.
type Worker struct {
	db        *sql.DB
	inputChan <-chan core.Output
	log       zerolog.Logger
	lastSeq   int64
}

func NewWorker(db *sql.DB, inputChan <-chan core.Output, log zerolog.Logger) *Worker {
	return &Worker{
		db:        db,
		inputChan: inputChan,
		log:       log,
	}
}

// Run drains the projection channel until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case out, ok := <-w.inputChan:
			if !ok {
				return nil
			}

			if err := w.apply(ctx, out); err != nil {
				w.log.Warn().
					Int64("sequence", out.Envelope.Sequence).
					Err(err).
					Msg("projection update failed")
				continue
			}

			w.lastSeq = out.Envelope.Sequence
		}
	}
}

// LastSequence returns the sequence of the last applied output.
func (w *Worker) LastSequence() int64 {
	return w.lastSeq
}

func (w *Worker) apply(ctx context.Context, out core.Output) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	seq := out.Envelope.Sequence

	for _, m := range out.Movements {
		if err := w.applyMovement(ctx, tx, seq, m); err != nil {
			return err
		}
	}

	if err := w.applyEvent(ctx, tx, out); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (id, sequence) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET sequence = GREATEST(projections.watermark.sequence, EXCLUDED.sequence)
	`, seq); err != nil {
		return fmt.Errorf("update watermark: %w", err)
	}

	return tx.Commit()
}

func (w *Worker) applyMovement(ctx context.Context, tx *sql.Tx, seq int64, m ledger.Movement) error {
	amount := m.Amount.String()

	// Debit side. Burns have no credit side; the zero address never holds
	// a projected balance.
	if err := w.adjustBalance(ctx, tx, seq, m.From.String(), "-"+amount); err != nil {
		return err
	}
	if m.Kind != ledger.MovementBurn {
		if err := w.adjustBalance(ctx, tx, seq, m.To.String(), amount); err != nil {
			return err
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.movements
			(movement_id, sequence, kind, from_address, to_address, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (movement_id) DO NOTHING
	`, m.MovementID.String(), seq, m.Kind.String(), m.From.String(), m.To.String(), amount)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (w *Worker) adjustBalance(ctx context.Context, tx *sql.Tx, seq int64, address, delta string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (address, balance, as_of_sequence)
		VALUES ($1, $2::numeric, $3)
		ON CONFLICT (address) DO UPDATE SET
			balance = projections.balances.balance + EXCLUDED.balance,
			as_of_sequence = EXCLUDED.as_of_sequence
	`, address, delta, seq)
	if err != nil {
		return fmt.Errorf("adjust balance for %s: %w", address, err)
	}
	return nil
}

func (w *Worker) applyEvent(ctx context.Context, tx *sql.Tx, out core.Output) error {
	seq := out.Envelope.Sequence
	payload := out.Envelope.Payload

	switch out.Envelope.EventType {
	case event.TypeAssetMinted:
		var evt event.AssetMinted
		if err := json.Unmarshal(payload, &evt); err != nil {
			return fmt.Errorf("unmarshal AssetMinted: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.assets (asset_id, owner, approved, multihash, as_of_sequence)
			VALUES ($1, $2, '', '', $3)
			ON CONFLICT (asset_id) DO NOTHING
		`, evt.AssetID, evt.Owner.String(), seq)
		return err

	case event.TypeAssetTransferred:
		var evt event.AssetTransferred
		if err := json.Unmarshal(payload, &evt); err != nil {
			return fmt.Errorf("unmarshal AssetTransferred: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.assets
			SET owner = $2, approved = '', as_of_sequence = $3
			WHERE asset_id = $1
		`, evt.AssetID, evt.To.String(), seq)
		return err

	case event.TypeApprovalSet:
		var evt event.ApprovalSet
		if err := json.Unmarshal(payload, &evt); err != nil {
			return fmt.Errorf("unmarshal ApprovalSet: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.assets
			SET approved = $2, as_of_sequence = $3
			WHERE asset_id = $1
		`, evt.AssetID, evt.Spender.String(), seq)
		return err

	case event.TypeApprovalCleared:
		var evt event.ApprovalCleared
		if err := json.Unmarshal(payload, &evt); err != nil {
			return fmt.Errorf("unmarshal ApprovalCleared: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.assets
			SET approved = '', as_of_sequence = $2
			WHERE asset_id = $1
		`, evt.AssetID, seq)
		return err

	case event.TypeMultihashSet:
		var evt event.MultihashSet
		if err := json.Unmarshal(payload, &evt); err != nil {
			return fmt.Errorf("unmarshal MultihashSet: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.assets
			SET multihash = $2, as_of_sequence = $3
			WHERE asset_id = $1
		`, evt.AssetID, evt.Multihash, seq)
		return err

	default:
		// Balance-only and administrative events have no projected rows
		// beyond movements and the watermark.
		return nil
	}
}
