// Package services orchestrates the ledger engine with the export queue:
// storage first, async export second, in the order that keeps the local
// ledger authoritative.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgeteer/internal/amqp"
	"budgeteer/internal/core"
	"budgeteer/internal/ledger"
	"budgeteer/internal/storage"
)

// ExportPublisher is the slice of the AMQP client the service needs; nil
// disables async export entirely.
type ExportPublisher interface {
	PublishTransactionExport(ctx context.Context, id int64) error
	PublishTransactionDelete(ctx context.Context, msg amqp.TransactionDeleteMessage) error
}

type TransactionService struct {
	engine    *ledger.Engine
	storage   *storage.SQLiteRepository
	publisher ExportPublisher
}

func NewTransactionService(engine *ledger.Engine, storage *storage.SQLiteRepository, publisher ExportPublisher) *TransactionService {
	return &TransactionService{
		engine:    engine,
		storage:   storage,
		publisher: publisher,
	}
}

// Record commits the transaction through the ledger engine and then queues
// an export event. A publish failure is logged, never surfaced: the row stays
// pending and the worker's sweep picks it up.
func (s *TransactionService) Record(ctx context.Context, p ledger.RecordParams) (ledger.RecordResult, error) {
	res, err := s.engine.RecordTransaction(ctx, p)
	if err != nil {
		return ledger.RecordResult{}, fmt.Errorf("record transaction: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionExport(ctx, res.TransactionID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish export message",
				"transaction_id", res.TransactionID, "error", err)
		}
	}

	return res, nil
}

// Delete reverses and removes the transaction through the ledger engine, then
// queues removal from the export target.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	// Capture the row before it goes; the delete event must describe it.
	txn, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("load transaction: %w", err)
	}

	if err := s.engine.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if s.publisher != nil {
		msg := amqp.TransactionDeleteMessage{
			ID:          txn.ID,
			Description: txn.Description,
			AmountCents: txn.Amount.Cents,
			Date:        txn.Date.ISO(),
		}
		if err := s.publisher.PublishTransactionDelete(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete message",
				"transaction_id", id, "error", err)
		}
	}

	return nil
}

// Contribute applies a manual goal contribution through the engine. Manual
// contributions have no transaction row and are not exported.
func (s *TransactionService) Contribute(ctx context.Context, goalID int64, amount core.Money, date core.Date, notes string) (core.Goal, error) {
	return s.engine.Contribute(ctx, goalID, amount, date, notes)
}
