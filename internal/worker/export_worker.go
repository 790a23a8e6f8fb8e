// Package worker exports transaction events to the spreadsheet ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// EventSource delivers transaction events to a handler until ctx is done.
// *amqp.Client satisfies it.
type EventSource interface {
	ConsumeTransactionEvents(ctx context.Context, handler func(context.Context, amqp.TransactionEvent) error) error
}

// ExportWorker appends one ledger row per transaction event.
type ExportWorker struct {
	ledger sheets.LedgerAppender

	exported int64
	skipped  int64
	failed   int64
}

type Stats struct {
	Exported int64
	Skipped  int64
	Failed   int64
}

func NewExportWorker(ledger sheets.LedgerAppender) *ExportWorker {
	return &ExportWorker{ledger: ledger}
}

// Run consumes events from src until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, src EventSource) error {
	slog.InfoContext(ctx, "Export worker started")
	err := src.ConsumeTransactionEvents(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.InfoContext(ctx, "Export worker stopped", "stats", w.Stats())
		return nil
	}
	return err
}

// HandleEvent writes e to the ledger. Events of unknown kind are skipped so
// they are acknowledged instead of requeued forever.
func (w *ExportWorker) HandleEvent(ctx context.Context, e amqp.TransactionEvent) error {
	switch e.Event {
	case amqp.EventCreated, amqp.EventUpdated, amqp.EventDeleted:
	default:
		atomic.AddInt64(&w.skipped, 1)
		slog.WarnContext(ctx, "Skipping transaction event of unknown kind",
			log.FieldEvent, e.Event,
			log.FieldTransactionID, e.TransactionID)
		return nil
	}

	if err := w.ledger.AppendEntry(ctx, entryFor(e)); err != nil {
		atomic.AddInt64(&w.failed, 1)
		return fmt.Errorf("export %s event for transaction %d: %w", e.Event, e.TransactionID, err)
	}

	atomic.AddInt64(&w.exported, 1)
	fields := log.NewFields().WithTransaction(e.TransactionID, e.Type, e.AmountCents).WithUser(e.UserID)
	fields[log.FieldEvent] = e.Event
	slog.InfoContext(ctx, "Transaction event exported", fields.ToSlice()...)
	return nil
}

func (w *ExportWorker) Stats() Stats {
	return Stats{
		Exported: atomic.LoadInt64(&w.exported),
		Skipped:  atomic.LoadInt64(&w.skipped),
		Failed:   atomic.LoadInt64(&w.failed),
	}
}

func entryFor(e amqp.TransactionEvent) sheets.LedgerEntry {
	return sheets.LedgerEntry{
		Timestamp:     e.Timestamp,
		Event:         string(e.Event),
		TransactionID: e.TransactionID,
		UserID:        e.UserID,
		Type:          e.Type,
		AmountCents:   e.AmountCents,
		CategoryID:    e.CategoryID,
		CreatedAt:     e.CreatedAt,
	}
}
