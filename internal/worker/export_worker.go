// Package worker moves committed transactions from SQLite to the export
// target. It consumes queue events and, as a safety net, sweeps rows still
// marked pending in case a publish was lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgeteer/internal/amqp"
	"budgeteer/internal/core"
	"budgeteer/internal/sheets"
	"budgeteer/internal/storage"
)

type ExportWorker struct {
	storage   *storage.SQLiteRepository
	appender  sheets.Appender
	remover   sheets.Remover
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, appender sheets.Appender, remover sheets.Remover, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		appender:  appender,
		remover:   remover,
		batchSize: batchSize,
	}
}

// HandleExportMessage exports one transaction referenced by id. The row is
// re-read from storage so the export always reflects the committed state.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.TransactionExportMessage) error {
	slog.InfoContext(ctx, "Processing export message", "id", msg.ID)

	txn, err := w.storage.GetTransaction(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between publish and consume; nothing left to export.
		slog.WarnContext(ctx, "Transaction gone before export, skipping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.exportTransaction(ctx, txn)
}

// HandleDeleteMessage removes a transaction's row from the export target.
// The local row is already gone, so the message carries the identifying data.
func (w *ExportWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if w.remover == nil {
		slog.WarnContext(ctx, "No remover configured, skipping export removal", "id", msg.ID)
		return nil
	}

	row := sheets.ExportRow{
		ID:          msg.ID,
		Date:        msg.Date,
		Description: msg.Description,
		Amount:      core.Money{Cents: msg.AmountCents}.String(),
	}
	if err := w.remover.Remove(ctx, row); err != nil {
		return fmt.Errorf("remove transaction from export target: %w", err)
	}
	return nil
}

// SweepPending exports transactions still marked pending. Run at startup and
// on a ticker so a lost queue message only delays an export, never drops it.
func (w *ExportWorker) SweepPending(ctx context.Context) error {
	pending, err := w.storage.ListPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending export: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Sweeping pending exports", "count", len(pending))
	for _, p := range pending {
		txn, err := w.storage.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending transaction", "id", p.ID, "error", err)
			continue
		}
		if err := w.exportTransaction(ctx, txn); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction", "id", p.ID, "error", err)
		}
	}
	return nil
}

func (w *ExportWorker) exportTransaction(ctx context.Context, txn core.Transaction) error {
	category := ""
	if txn.CategoryID != nil {
		cat, err := w.storage.GetCategory(ctx, *txn.CategoryID)
		if err == nil {
			category = cat.Name
		}
	}

	row := sheets.ExportRow{
		ID:          txn.ID,
		Date:        txn.Date.ISO(),
		Description: txn.Description,
		Amount:      txn.Amount.String(),
		Category:    category,
	}

	if _, err := w.appender.Append(ctx, row); err != nil {
		if markErr := w.storage.MarkTransactionSyncError(ctx, txn.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", txn.ID, "error", markErr)
		}
		return fmt.Errorf("append to export target: %w", err)
	}

	return w.storage.MarkTransactionSynced(ctx, txn.ID)
}
