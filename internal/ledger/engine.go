// Package ledger implements the consistency engine that keeps transactions,
// goal contributions, and goal running totals in step. Every operation here is
// one atomic unit of work: it either commits all of its writes or none.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"budgeteer/internal/core"
	"budgeteer/internal/storage"
)

type Engine struct {
	db      *sql.DB
	queries *storage.Queries
}

func New(repo *storage.SQLiteRepository) *Engine {
	return &Engine{
		db:      repo.DB(),
		queries: repo.Queries(),
	}
}

// RecordParams describes a transaction to record. GoalID, when set, earmarks
// the amount as a contribution toward that goal inside the same unit of work.
type RecordParams struct {
	Description string
	Amount      core.Money
	Date        core.Date
	CategoryID  int64
	GoalID      *int64
}

// RecordResult carries the new transaction id and, when a contribution
// occurred, the goal's post-contribution snapshot.
type RecordResult struct {
	TransactionID int64
	UpdatedGoal   *core.Goal
}

func (p RecordParams) validate() error {
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if p.CategoryID == 0 {
		return core.ErrMissingCategory
	}
	if len(p.Description) > 200 {
		return core.ErrDescriptionTooLong
	}
	return nil
}

// RecordTransaction inserts the transaction and, if a goal is named, the
// contribution row plus the goal total increment — all or nothing. A
// transaction that claims to fund a missing goal must not persist as a plain
// uncontributed transaction.
func (e *Engine) RecordTransaction(ctx context.Context, p RecordParams) (RecordResult, error) {
	if err := p.validate(); err != nil {
		return RecordResult{}, err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return RecordResult{}, fmt.Errorf("begin unit of work: %w", err)
	}
	defer tx.Rollback()

	qtx := e.queries.WithTx(tx)

	if _, err := qtx.GetCategoryType(ctx, p.CategoryID); err != nil {
		return RecordResult{}, err
	}

	txnID, err := qtx.CreateTransaction(ctx, storage.CreateTransactionParams{
		Description: p.Description,
		AmountCents: p.Amount.Cents,
		Date:        p.Date,
		CategoryID:  p.CategoryID,
	})
	if err != nil {
		return RecordResult{}, err
	}

	result := RecordResult{TransactionID: txnID}

	if p.GoalID != nil {
		goal, err := e.contribute(ctx, qtx, *p.GoalID, p.Amount, p.Date,
			fmt.Sprintf("Contribution from transaction #%d", txnID), &txnID)
		if err != nil {
			return RecordResult{}, err
		}
		result.UpdatedGoal = &goal
	}

	if err := tx.Commit(); err != nil {
		return RecordResult{}, fmt.Errorf("commit unit of work: %w", err)
	}

	attrs := []any{"transaction_id", txnID, "amount_cents", p.Amount.Cents, "category_id", p.CategoryID}
	if result.UpdatedGoal != nil {
		attrs = append(attrs, "goal_id", result.UpdatedGoal.ID, "goal_total_cents", result.UpdatedGoal.CurrentAmount.Cents)
	}
	slog.InfoContext(ctx, "Transaction recorded", attrs...)
	return result, nil
}

// Contribute applies a manual contribution to a goal with no originating
// transaction, in its own unit of work.
func (e *Engine) Contribute(ctx context.Context, goalID int64, amount core.Money, date core.Date, notes string) (core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := date.Validate(); err != nil {
		return core.Goal{}, err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Goal{}, fmt.Errorf("begin unit of work: %w", err)
	}
	defer tx.Rollback()

	goal, err := e.contribute(ctx, e.queries.WithTx(tx), goalID, amount, date, notes, nil)
	if err != nil {
		return core.Goal{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Goal{}, fmt.Errorf("commit unit of work: %w", err)
	}

	slog.InfoContext(ctx, "Contribution added",
		"goal_id", goalID, "amount_cents", amount.Cents, "goal_total_cents", goal.CurrentAmount.Cents)
	return goal, nil
}

// contribute inserts the contribution row and increments the goal total inside
// the caller's unit of work. A zero-row goal update means the goal does not
// exist; the caller's rollback then discards everything staged so far.
func (e *Engine) contribute(ctx context.Context, qtx *storage.Queries, goalID int64, amount core.Money, date core.Date, notes string, sourceTxnID *int64) (core.Goal, error) {
	if _, err := qtx.CreateContribution(ctx, storage.CreateContributionParams{
		GoalID:              goalID,
		AmountCents:         amount.Cents,
		Date:                date,
		Notes:               notes,
		SourceTransactionID: sourceTxnID,
	}); err != nil {
		return core.Goal{}, err
	}

	n, err := qtx.AdjustGoalAmount(ctx, goalID, amount.Cents)
	if err != nil {
		return core.Goal{}, err
	}
	if n == 0 {
		return core.Goal{}, core.ErrGoalNotFound
	}

	// Same unit of work, so this read observes the increment just applied.
	return qtx.GetGoal(ctx, goalID)
}

// DeleteTransaction removes a transaction and reverses any contribution it
// spawned: the goal total is decremented and the contribution row deleted
// before the transaction row goes. Any failure rolls the whole unit back.
func (e *Engine) DeleteTransaction(ctx context.Context, id int64) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer tx.Rollback()

	qtx := e.queries.WithTx(tx)

	contributions, err := qtx.ContributionsBySourceTransaction(ctx, id)
	if err != nil {
		return err
	}

	for _, c := range contributions {
		n, err := qtx.AdjustGoalAmount(ctx, c.GoalID, -c.Amount.Cents)
		if err != nil {
			return err
		}
		if n == 0 {
			return core.ErrGoalNotFound
		}
		if err := qtx.DeleteContribution(ctx, c.ID); err != nil {
			return err
		}
	}

	n, err := qtx.DeleteTransaction(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		// Rolling back also discards any contribution reversal staged above.
		return core.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"transaction_id", id, "reversed_contributions", len(contributions))
	return nil
}
