package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/vim-labs/burni-tokens/internal/core"
	"github.com/vim-labs/burni-tokens/internal/observability"
)

// Worker drains the engine's persist channel and batch-writes to Postgres.
// The engine sends on this channel blocking, so if the worker falls behind
// the engine stalls; no committed event is ever lost.
type Worker struct {
	writer       *EventLogWriter
	inputChan    <-chan core.Output
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
	log          zerolog.Logger
}

func NewWorker(
	db *sql.DB,
	inputChan <-chan core.Output,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Worker {
	return &Worker{
		writer:       NewEventLogWriter(db),
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
		log:          log,
	}
}

// Run batches incoming outputs and flushes either when the batch is full
// or the flush timeout expires. Blocks until ctx is cancelled, flushing
// whatever is pending on the way out.
func (w *Worker) Run(ctx context.Context) error {
	eventBatch := make([]EventRow, 0, w.batchSize)
	movementBatch := make([]MovementRow, 0, w.batchSize*2)

	timer := time.NewTimer(w.flushTimeout)
	defer timer.Stop()

	flush := func() {
		if len(eventBatch) == 0 && len(movementBatch) == 0 {
			return
		}
		w.flush(ctx, eventBatch, movementBatch)
		eventBatch = eventBatch[:0]
		movementBatch = movementBatch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()

		case out, ok := <-w.inputChan:
			if !ok {
				flush()
				return nil
			}

			eventBatch = append(eventBatch, toEventRow(out))
			movementBatch = append(movementBatch, toMovementRows(out)...)

			if len(eventBatch) >= w.batchSize {
				flush()
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.flushTimeout)
			}

		case <-timer.C:
			flush()
			timer.Reset(w.flushTimeout)
		}
	}
}

func (w *Worker) flush(ctx context.Context, events []EventRow, movements []MovementRow) {
	// Retry forever with backoff: the persist channel applies backpressure
	// upstream, so stalling here is the correct failure mode for a
	// Postgres outage.
	backoff := 100 * time.Millisecond
	for {
		err := w.writeAll(ctx, events, movements)
		if err == nil {
			if w.metrics != nil {
				w.metrics.PersistEventsWritten.Add(float64(len(events)))
				w.metrics.PersistMovementsWritten.Add(float64(len(movements)))
			}
			return
		}

		if ctx.Err() != nil {
			w.log.Error().Err(err).Msg("dropping unflushed batch on shutdown")
			return
		}

		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("write").Inc()
		}
		w.log.Warn().Err(err).Dur("backoff", backoff).Msg("persist flush failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
}

func (w *Worker) writeAll(ctx context.Context, events []EventRow, movements []MovementRow) error {
	if err := w.writer.WriteEventBatch(ctx, events); err != nil {
		return err
	}
	return w.writer.WriteMovementBatch(ctx, movements)
}

func toEventRow(out core.Output) EventRow {
	env := out.Envelope
	return EventRow{
		Sequence:       env.Sequence,
		EventType:      env.EventType.String(),
		IdempotencyKey: env.IdempotencyKey,
		Payload:        env.Payload,
		StateHash:      env.StateHash[:],
		PrevHash:       env.PrevHash[:],
		Timestamp:      env.Timestamp,
	}
}

func toMovementRows(out core.Output) []MovementRow {
	rows := make([]MovementRow, 0, len(out.Movements))
	for _, m := range out.Movements {
		rows = append(rows, MovementRow{
			MovementID:  m.MovementID.String(),
			Sequence:    out.Envelope.Sequence,
			Kind:        m.Kind.String(),
			FromAddress: m.From.String(),
			ToAddress:   m.To.String(),
			Amount:      m.Amount.String(),
		})
	}
	return rows
}
