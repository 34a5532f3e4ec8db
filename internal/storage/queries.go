package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"budgeteer/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every query below can run
// standalone or inside a caller-owned unit of work.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx binds the queries to an open transaction. This is the only way ledger
// operations touch the database: the atomicity boundary is carried by the type,
// not by caller discipline.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// ----- categories -----

type CreateCategoryParams struct {
	Name  string
	Type  core.CategoryType
	Color string
}

func (q *Queries) CreateCategory(ctx context.Context, p CreateCategoryParams) (core.Category, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (name, type, color) VALUES (?, ?, ?)`,
		strings.TrimSpace(p.Name), string(p.Type), p.Color)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.ErrDuplicateName
		}
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}
	return q.GetCategory(ctx, id)
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	var typ string
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, type, color, created_at FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &typ, &c.Color, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrCategoryNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.Type = core.CategoryType(typ)
	return c, nil
}

// GetCategoryType classifies a transaction's category without loading the
// whole row.
func (q *Queries) GetCategoryType(ctx context.Context, id int64) (core.CategoryType, error) {
	var typ string
	err := q.db.QueryRowContext(ctx, `SELECT type FROM categories WHERE id = ?`, id).Scan(&typ)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrCategoryNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get category type: %w", err)
	}
	return core.CategoryType(typ), nil
}

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, type, color, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.Name, &typ, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.CategoryType(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}

type UpdateCategoryParams struct {
	ID    int64
	Name  string
	Color string
}

func (q *Queries) UpdateCategory(ctx context.Context, p UpdateCategoryParams) (core.Category, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ? WHERE id = ?`,
		strings.TrimSpace(p.Name), p.Color, p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.ErrDuplicateName
		}
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return q.GetCategory(ctx, p.ID)
}

// DeleteCategory removes the category; referencing transactions keep their
// rows with category_id set to NULL (ON DELETE SET NULL).
func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrCategoryNotFound
	}
	return nil
}

// ----- transactions -----

type CreateTransactionParams struct {
	Description string
	AmountCents int64
	Date        core.Date
	CategoryID  int64
}

func (q *Queries) CreateTransaction(ctx context.Context, p CreateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (description, amount_cents, transaction_date, category_id)
		 VALUES (?, ?, ?, ?)`,
		p.Description, p.AmountCents, p.Date.ISO(), p.CategoryID)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction insert id: %w", err)
	}
	return id, nil
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var t core.Transaction
	var date string
	var categoryID sql.NullInt64
	err := q.db.QueryRowContext(ctx,
		`SELECT id, description, amount_cents, transaction_date, category_id, created_at
		 FROM transactions WHERE id = ?`, id).
		Scan(&t.ID, &t.Description, &t.Amount.Cents, &date, &categoryID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date %q: %w", date, err)
	}
	if categoryID.Valid {
		t.CategoryID = &categoryID.Int64
	}
	return t, nil
}

func (q *Queries) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, transaction_date, category_id, created_at
		 FROM transactions ORDER BY transaction_date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date string
		var categoryID sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Description, &t.Amount.Cents, &date, &categoryID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", date, err)
		}
		t.Date = d
		if categoryID.Valid {
			t.CategoryID = &categoryID.Int64
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTransactionsByMonth returns the transactions dated inside one calendar
// month. Dates are stored as YYYY-MM-DD text, so a prefix match is exact.
func (q *Queries) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, transaction_date, category_id, created_at
		 FROM transactions WHERE transaction_date LIKE ? || '%'
		 ORDER BY transaction_date DESC, created_at DESC`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list transactions by month: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (q *Queries) ListTransactionsByYear(ctx context.Context, year int) ([]core.Transaction, error) {
	prefix := fmt.Sprintf("%04d-", year)
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, transaction_date, category_id, created_at
		 FROM transactions WHERE transaction_date LIKE ? || '%'
		 ORDER BY transaction_date ASC, id ASC`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list transactions by year: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// DeleteTransaction removes the row and reports how many rows matched, so the
// ledger engine can distinguish a miss without a second query.
func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete transaction rows affected: %w", err)
	}
	return n, nil
}

// ----- budgets -----

type UpsertBudgetParams struct {
	CategoryID  int64
	Year        int
	Month       int
	AmountCents int64
}

func (q *Queries) UpsertBudget(ctx context.Context, p UpsertBudgetParams) (core.Budget, error) {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO budgets (category_id, budget_year, budget_month, budget_amount_cents)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (category_id, budget_year, budget_month)
		 DO UPDATE SET budget_amount_cents = excluded.budget_amount_cents`,
		p.CategoryID, p.Year, p.Month, p.AmountCents)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Budget{}, core.ErrCategoryNotFound
		}
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return core.Budget{
		CategoryID: p.CategoryID,
		Year:       p.Year,
		Month:      p.Month,
		Amount:     core.Money{Cents: p.AmountCents},
	}, nil
}

// BudgetRow pairs a category with its allocation for one month; Amount is nil
// when no budget has been set (LEFT JOIN miss).
type BudgetRow struct {
	CategoryID   int64
	CategoryName string
	Amount       *core.Money
}

func (q *Queries) ListBudgetsForMonth(ctx context.Context, year, month int) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT c.id, c.name, b.budget_amount_cents
		 FROM categories c
		 LEFT JOIN budgets b
		   ON c.id = b.category_id AND b.budget_year = ? AND b.budget_month = ?
		 ORDER BY c.name`, year, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []BudgetRow
	for rows.Next() {
		var r BudgetRow
		var cents sql.NullInt64
		if err := rows.Scan(&r.CategoryID, &r.CategoryName, &cents); err != nil {
			return nil, fmt.Errorf("scan budget row: %w", err)
		}
		if cents.Valid {
			r.Amount = &core.Money{Cents: cents.Int64}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ----- goals -----

type CreateGoalParams struct {
	Name              string
	TargetAmountCents int64
	TargetDate        core.Date
	Notes             string
}

func (q *Queries) CreateGoal(ctx context.Context, p CreateGoalParams) (core.Goal, error) {
	var targetDate any
	if !p.TargetDate.IsZero() {
		targetDate = p.TargetDate.ISO()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO goals (name, target_amount_cents, current_amount_cents, target_date, notes)
		 VALUES (?, ?, 0, ?, ?)`,
		strings.TrimSpace(p.Name), p.TargetAmountCents, targetDate, p.Notes)
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal insert id: %w", err)
	}
	return q.GetGoal(ctx, id)
}

func (q *Queries) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	var g core.Goal
	var targetDate sql.NullString
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, target_amount_cents, current_amount_cents, target_date, notes, created_at
		 FROM goals WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents, &targetDate, &g.Notes, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, core.ErrGoalNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	if targetDate.Valid && targetDate.String != "" {
		if g.TargetDate, err = core.ParseDate(targetDate.String); err != nil {
			return core.Goal{}, fmt.Errorf("parse goal target date %q: %w", targetDate.String, err)
		}
	}
	return g, nil
}

func (q *Queries) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, target_amount_cents, current_amount_cents, target_date, notes, created_at
		 FROM goals ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var g core.Goal
		var targetDate sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents, &targetDate, &g.Notes, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if targetDate.Valid && targetDate.String != "" {
			d, err := core.ParseDate(targetDate.String)
			if err != nil {
				return nil, fmt.Errorf("parse goal target date %q: %w", targetDate.String, err)
			}
			g.TargetDate = d
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type UpdateGoalParams struct {
	ID                int64
	Name              string
	TargetAmountCents int64
	TargetDate        core.Date
	Notes             string
}

func (q *Queries) UpdateGoal(ctx context.Context, p UpdateGoalParams) (core.Goal, error) {
	var targetDate any
	if !p.TargetDate.IsZero() {
		targetDate = p.TargetDate.ISO()
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE goals SET name = ?, target_amount_cents = ?, target_date = ?, notes = ? WHERE id = ?`,
		strings.TrimSpace(p.Name), p.TargetAmountCents, targetDate, p.Notes, p.ID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Goal{}, core.ErrGoalNotFound
	}
	return q.GetGoal(ctx, p.ID)
}

// DeleteGoal removes the goal and, via ON DELETE CASCADE, its contributions.
func (q *Queries) DeleteGoal(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrGoalNotFound
	}
	return nil
}

// AdjustGoalAmount applies a signed delta to the goal's running total in a
// single UPDATE. It is the only statement anywhere that writes
// current_amount_cents; callers never read-modify-write the total.
func (q *Queries) AdjustGoalAmount(ctx context.Context, id int64, deltaCents int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE goals SET current_amount_cents = current_amount_cents + ? WHERE id = ?`,
		deltaCents, id)
	if err != nil {
		return 0, fmt.Errorf("adjust goal amount: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("adjust goal rows affected: %w", err)
	}
	return n, nil
}

// ----- goal contributions -----

type CreateContributionParams struct {
	GoalID              int64
	AmountCents         int64
	Date                core.Date
	Notes               string
	SourceTransactionID *int64
}

func (q *Queries) CreateContribution(ctx context.Context, p CreateContributionParams) (int64, error) {
	var source any
	if p.SourceTransactionID != nil {
		source = *p.SourceTransactionID
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO goal_contributions (goal_id, amount_cents, contribution_date, notes, source_transaction_id)
		 VALUES (?, ?, ?, ?, ?)`,
		p.GoalID, p.AmountCents, p.Date.ISO(), p.Notes, source)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, core.ErrGoalNotFound
		}
		return 0, fmt.Errorf("insert contribution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("contribution insert id: %w", err)
	}
	return id, nil
}

// ContributionsBySourceTransaction resolves the contributions a transaction
// spawned through the indexed source_transaction_id column. Normally at most
// one row matches.
func (q *Queries) ContributionsBySourceTransaction(ctx context.Context, transactionID int64) ([]core.Contribution, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, goal_id, amount_cents, contribution_date, notes, source_transaction_id, created_at
		 FROM goal_contributions WHERE source_transaction_id = ?`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("contributions by source transaction: %w", err)
	}
	defer rows.Close()
	return scanContributions(rows)
}

func (q *Queries) ListContributions(ctx context.Context, goalID int64) ([]core.Contribution, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, goal_id, amount_cents, contribution_date, notes, source_transaction_id, created_at
		 FROM goal_contributions WHERE goal_id = ? ORDER BY contribution_date DESC, id DESC`, goalID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()
	return scanContributions(rows)
}

func scanContributions(rows *sql.Rows) ([]core.Contribution, error) {
	var out []core.Contribution
	for rows.Next() {
		var c core.Contribution
		var date string
		var source sql.NullInt64
		if err := rows.Scan(&c.ID, &c.GoalID, &c.Amount.Cents, &date, &c.Notes, &source, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse contribution date %q: %w", date, err)
		}
		c.Date = d
		if source.Valid {
			c.SourceTransactionID = &source.Int64
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteContribution(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM goal_contributions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contribution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// SumContributions recomputes a goal's total from its live contribution rows.
// Used by tests to check the running total never drifts.
func (q *Queries) SumContributions(ctx context.Context, goalID int64) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM goal_contributions WHERE goal_id = ?`, goalID).
		Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum contributions: %w", err)
	}
	return sum, nil
}

// ----- export bookkeeping -----

// PendingExportTransaction is the minimal row the worker needs to build an
// export batch.
type PendingExportTransaction struct {
	ID int64
}

func (q *Queries) ListPendingExport(ctx context.Context, limit int) ([]PendingExportTransaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id FROM transactions WHERE sync_status = 'pending' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	defer rows.Close()

	var out []PendingExportTransaction
	for rows.Next() {
		var p PendingExportTransaction
		if err := rows.Scan(&p.ID); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) MarkTransactionSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

func (q *Queries) MarkTransactionSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	return nil
}

// ----- driver error classification -----

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
