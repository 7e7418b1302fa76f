// Package worker feeds the Google Sheets monthly report from bill events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/sheets"
	"contas/internal/storage"
)

// ReportWorker consumes bill events and mirrors the affected rows into the
// report sheet. Events arrive at least once; both handlers are idempotent.
type ReportWorker struct {
	store   storage.Store
	writer  sheets.BillWriter
	deleter sheets.BillDeleter
}

func NewReportWorker(store storage.Store, writer sheets.BillWriter, deleter sheets.BillDeleter) *ReportWorker {
	return &ReportWorker{
		store:   store,
		writer:  writer,
		deleter: deleter,
	}
}

// Handle dispatches one AMQP message to the matching handler.
func (w *ReportWorker) Handle(ctx context.Context, msg *amqp.Message) error {
	switch msg.Type {
	case amqp.TypeBillSync:
		return w.handleSync(ctx, msg)
	case amqp.TypeBillDelete:
		return w.handleDelete(ctx, msg)
	default:
		slog.WarnContext(ctx, "Dropping message of unknown type", "type", msg.Type)
		return nil
	}
}

// handleSync fetches the current bill state and upserts its report row. A
// bill deleted between publish and consume is treated as handled; the
// delete event follows.
func (w *ReportWorker) handleSync(ctx context.Context, msg *amqp.Message) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	bill, err := w.store.Get(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Bill gone before sync, skipping", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get bill from storage: %w", err)
	}

	ref, err := w.writer.Append(ctx, bill)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Bill row synced",
		"id", bill.ID,
		"sheets_ref", ref,
		"description", bill.Description,
		"amount_cents", bill.Amount.Cents)

	return nil
}

func (w *ReportWorker) handleDelete(ctx context.Context, msg *amqp.Message) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if w.deleter == nil {
		slog.WarnContext(ctx, "No bill deleter configured, skipping report deletion",
			"id", msg.ID)
		return nil
	}

	if err := w.deleter.DeleteBill(ctx, msg.ID); err != nil {
		return fmt.Errorf("delete bill row: %w", err)
	}

	slog.InfoContext(ctx, "Bill row deleted", "id", msg.ID)
	return nil
}
