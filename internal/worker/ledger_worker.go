package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"billtrack/internal/amqp"
	"billtrack/internal/api"
	"billtrack/internal/core"
	applog "billtrack/internal/log"
	"billtrack/internal/sheets"
)

// RowSource reads current row state from the backend.
type RowSource interface {
	GetRow(ctx context.Context, id string) (core.Row, error)
	ListRows(ctx context.Context) ([]core.Row, error)
}

// OpSnapshot marks ledger lines written by Backfill rather than by an event.
const OpSnapshot = "snapshot"

// LedgerWorker turns row change events into ledger lines. It fetches the
// row named by each event and appends its current state.
type LedgerWorker struct {
	rows   RowSource
	ledger sheets.LedgerWriter
	logger *applog.Logger
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]int64
}

func NewLedgerWorker(rows RowSource, ledger sheets.LedgerWriter, logger *applog.Logger) *LedgerWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &LedgerWorker{
		rows:   rows,
		ledger: ledger,
		logger: logger.WithComponent(applog.ComponentWorker),
		now:    time.Now,
		seen:   make(map[string]int64),
	}
}

// HandleRowEvent processes one event. Redelivered or superseded events are
// acknowledged without writing; transient failures are returned so the
// delivery is requeued.
func (w *LedgerWorker) HandleRowEvent(ctx context.Context, msg *amqp.RowEvent) error {
	log := w.logger.With(applog.FieldRowID, msg.ID, applog.FieldRowVersion, msg.Version, applog.FieldOperation, msg.Op)

	if w.alreadyRecorded(msg.ID, msg.Version, msg.Op) {
		log.DebugContext(ctx, "Row event already recorded, skipping")
		return nil
	}

	entry := sheets.LedgerEntry{
		RecordedAt: w.now(),
		RowID:      msg.ID,
		Version:    msg.Version,
		Op:         msg.Op,
	}

	if msg.Op != amqp.OpDelete {
		row, err := w.rows.GetRow(ctx, msg.ID)
		switch {
		case errors.Is(err, api.ErrNotFound):
			log.InfoContext(ctx, "Row deleted before its event was processed, skipping")
			return nil
		case err != nil:
			return fmt.Errorf("fetch row %s: %w", msg.ID, err)
		}
		if row.Version > msg.Version {
			log.DebugContext(ctx, "Row changed again since this event, skipping", "current_version", row.Version)
			return nil
		}
		entry.Row = &row
	}

	ref, err := w.ledger.AppendEntry(ctx, entry)
	if err != nil {
		return fmt.Errorf("append ledger entry for %s: %w", msg.ID, err)
	}
	w.markRecorded(msg.ID, msg.Version, msg.Op)

	log.InfoContext(ctx, "Ledger entry appended", "ref", ref)
	return nil
}

// Backfill appends a snapshot line for every current row.
func (w *LedgerWorker) Backfill(ctx context.Context) (int, error) {
	rows, err := w.rows.ListRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("list rows: %w", err)
	}

	written := 0
	for i := range rows {
		row := rows[i]
		if _, err := w.ledger.AppendEntry(ctx, sheets.LedgerEntry{
			RecordedAt: w.now(),
			RowID:      row.ID,
			Version:    row.Version,
			Op:         OpSnapshot,
			Row:        &row,
		}); err != nil {
			return written, fmt.Errorf("append snapshot for %s: %w", row.ID, err)
		}
		w.markRecorded(row.ID, row.Version, OpSnapshot)
		written++
	}

	w.logger.InfoContext(ctx, "Backfill completed", applog.FieldRowCount, written)
	return written, nil
}

func (w *LedgerWorker) alreadyRecorded(id string, version int64, op string) bool {
	if op == amqp.OpDelete {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.seen[id]
	return ok && version <= last
}

func (w *LedgerWorker) markRecorded(id string, version int64, op string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if op == amqp.OpDelete {
		delete(w.seen, id)
		return
	}
	if version > w.seen[id] {
		w.seen[id] = version
	}
}
