// Package storage provides the SQLite persistence layer: schema migrations,
// the query set shared by direct calls and transactional units of work, and
// the repository that owns the connection pool.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"budgeteer/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath,
// applies migrations, and enables the pragmas the ledger engine relies on:
// foreign_keys for the SET NULL / CASCADE rules and busy_timeout so
// concurrent writers queue instead of failing. Units of work begin as
// immediate write transactions: a deferred transaction that reads before
// writing hits SQLITE_BUSY on the lock upgrade without ever invoking the
// busy handler, so concurrent recorders would error instead of queueing.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// DB exposes the pool for callers that open their own units of work (the
// ledger engine).
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// Queries exposes the auto-commit query set.
func (r *SQLiteRepository) Queries() *Queries {
	return r.queries
}

// Ping verifies the database is reachable; used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ----- category store -----

func (r *SQLiteRepository) CreateCategory(ctx context.Context, p CreateCategoryParams) (core.Category, error) {
	c, err := r.queries.CreateCategory(ctx, p)
	if err != nil {
		return core.Category{}, err
	}
	slog.InfoContext(ctx, "Category created", "id", c.ID, "name", c.Name, "type", c.Type)
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return r.queries.GetCategory(ctx, id)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	return r.queries.ListCategories(ctx)
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, p UpdateCategoryParams) (core.Category, error) {
	return r.queries.UpdateCategory(ctx, p)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	if err := r.queries.DeleteCategory(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Category deleted, referencing transactions unlinked", "id", id)
	return nil
}

// ----- budget store -----

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, p UpsertBudgetParams) (core.Budget, error) {
	b, err := r.queries.UpsertBudget(ctx, p)
	if err != nil {
		return core.Budget{}, err
	}
	slog.InfoContext(ctx, "Budget set",
		"category_id", b.CategoryID, "year", b.Year, "month", b.Month, "amount_cents", b.Amount.Cents)
	return b, nil
}

func (r *SQLiteRepository) ListBudgetsForMonth(ctx context.Context, year, month int) ([]BudgetRow, error) {
	return r.queries.ListBudgetsForMonth(ctx, year, month)
}

// ----- goal store -----

func (r *SQLiteRepository) CreateGoal(ctx context.Context, p CreateGoalParams) (core.Goal, error) {
	g, err := r.queries.CreateGoal(ctx, p)
	if err != nil {
		return core.Goal{}, err
	}
	slog.InfoContext(ctx, "Goal created", "id", g.ID, "name", g.Name, "target_cents", g.TargetAmount.Cents)
	return g, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	return r.queries.GetGoal(ctx, id)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	return r.queries.ListGoals(ctx)
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, p UpdateGoalParams) (core.Goal, error) {
	return r.queries.UpdateGoal(ctx, p)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id int64) error {
	return r.queries.DeleteGoal(ctx, id)
}

func (r *SQLiteRepository) ListContributions(ctx context.Context, goalID int64) ([]core.Contribution, error) {
	return r.queries.ListContributions(ctx, goalID)
}

// ----- transaction reads (the write path belongs to the ledger engine) -----

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return r.queries.GetTransaction(ctx, id)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return r.queries.ListTransactions(ctx)
}

func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	return r.queries.ListTransactionsByMonth(ctx, year, month)
}

func (r *SQLiteRepository) ListTransactionsByYear(ctx context.Context, year int) ([]core.Transaction, error) {
	return r.queries.ListTransactionsByYear(ctx, year)
}

// ----- export bookkeeping -----

func (r *SQLiteRepository) ListPendingExport(ctx context.Context, limit int) ([]PendingExportTransaction, error) {
	return r.queries.ListPendingExport(ctx, limit)
}

func (r *SQLiteRepository) MarkTransactionSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionSynced(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkTransactionSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionSyncError(ctx, id); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}
