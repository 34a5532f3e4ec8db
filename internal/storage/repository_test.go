package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"budgeteer/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCategoryCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c, err := repo.CreateCategory(ctx, CreateCategoryParams{Name: "Groceries", Type: core.CategoryExpense, Color: "#ff8800"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 || c.Name != "Groceries" || c.Type != core.CategoryExpense {
		t.Fatalf("unexpected category: %+v", c)
	}

	// Unique name.
	if _, err := repo.CreateCategory(ctx, CreateCategoryParams{Name: "Groceries", Type: core.CategoryExpense}); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	renamed, err := repo.UpdateCategory(ctx, UpdateCategoryParams{ID: c.ID, Name: "Food", Color: "#00ff00"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if renamed.Name != "Food" || renamed.Color != "#00ff00" {
		t.Fatalf("rename not applied: %+v", renamed)
	}

	if _, err := repo.UpdateCategory(ctx, UpdateCategoryParams{ID: 999, Name: "x"}); !errors.Is(err, core.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}

	typ, err := repo.Queries().GetCategoryType(ctx, c.ID)
	if err != nil || typ != core.CategoryExpense {
		t.Fatalf("get type: %v %v", typ, err)
	}

	if err := repo.DeleteCategory(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteCategory(ctx, c.ID); !errors.Is(err, core.ErrCategoryNotFound) {
		t.Fatalf("second delete expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCategoryDeleteUnlinksTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c, err := repo.CreateCategory(ctx, CreateCategoryParams{Name: "Temp", Type: core.CategoryExpense})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	id, err := repo.Queries().CreateTransaction(ctx, CreateTransactionParams{
		Description: "orphan-to-be",
		AmountCents: 1500,
		Date:        core.NewDate(2025, 1, 10),
		CategoryID:  c.ID,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if err := repo.DeleteCategory(ctx, c.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	// The transaction survives with a nulled category, not a cascade.
	txn, err := repo.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if txn.CategoryID != nil {
		t.Fatalf("expected nil category id, got %v", *txn.CategoryID)
	}
}

func TestBudgetUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c, err := repo.CreateCategory(ctx, CreateCategoryParams{Name: "Rent", Type: core.CategoryExpense})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	if _, err := repo.UpsertBudget(ctx, UpsertBudgetParams{CategoryID: c.ID, Year: 2025, Month: 6, AmountCents: 120000}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Second upsert on the same composite key overwrites.
	if _, err := repo.UpsertBudget(ctx, UpsertBudgetParams{CategoryID: c.ID, Year: 2025, Month: 6, AmountCents: 130000}); err != nil {
		t.Fatalf("update: %v", err)
	}

	rows, err := repo.ListBudgetsForMonth(ctx, 2025, 6)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Amount == nil || rows[0].Amount.Cents != 130000 {
		t.Fatalf("expected 130000, got %+v", rows[0].Amount)
	}

	// A month with no allocation still lists the category, amount nil.
	rows, err = repo.ListBudgetsForMonth(ctx, 2025, 7)
	if err != nil {
		t.Fatalf("list other month: %v", err)
	}
	if len(rows) != 1 || rows[0].Amount != nil {
		t.Fatalf("expected unbudgeted row, got %+v", rows)
	}

	// Unknown category is surfaced via the FK, not silently inserted.
	if _, err := repo.UpsertBudget(ctx, UpsertBudgetParams{CategoryID: 999, Year: 2025, Month: 6, AmountCents: 100}); !errors.Is(err, core.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestGoalCRUDAndCascade(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	g, err := repo.CreateGoal(ctx, CreateGoalParams{
		Name:              "Vacation",
		TargetAmountCents: 250000,
		TargetDate:        core.NewDate(2026, 8, 1),
		Notes:             "two weeks",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.CurrentAmount.Cents != 0 {
		t.Fatalf("new goal must start at zero, got %d", g.CurrentAmount.Cents)
	}
	if g.TargetDate.ISO() != "2026-08-01" {
		t.Fatalf("target date mismatch: %s", g.TargetDate.ISO())
	}

	updated, err := repo.UpdateGoal(ctx, UpdateGoalParams{
		ID: g.ID, Name: "Vacation 2026", TargetAmountCents: 300000, Notes: "three weeks",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Vacation 2026" || updated.TargetAmount.Cents != 300000 {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.TargetDate.IsZero() != true {
		t.Fatalf("target date should clear when omitted, got %v", updated.TargetDate)
	}

	if _, err := repo.Queries().CreateContribution(ctx, CreateContributionParams{
		GoalID: g.ID, AmountCents: 5000, Date: core.NewDate(2025, 5, 5),
	}); err != nil {
		t.Fatalf("contribution: %v", err)
	}

	if err := repo.DeleteGoal(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	contributions, err := repo.ListContributions(ctx, g.ID)
	if err != nil {
		t.Fatalf("list contributions: %v", err)
	}
	if len(contributions) != 0 {
		t.Fatalf("contributions should cascade with the goal, found %d", len(contributions))
	}
	if _, err := repo.GetGoal(ctx, g.ID); !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}

func TestContributionMissingGoalRejected(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Queries().CreateContribution(context.Background(), CreateContributionParams{
		GoalID: 404, AmountCents: 100, Date: core.NewDate(2025, 1, 1),
	})
	if !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}

func TestExportBookkeeping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c, err := repo.CreateCategory(ctx, CreateCategoryParams{Name: "Misc", Type: core.CategoryExpense})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := repo.Queries().CreateTransaction(ctx, CreateTransactionParams{
			AmountCents: int64(100 * (i + 1)),
			Date:        core.NewDate(2025, 2, i+1),
			CategoryID:  c.ID,
		})
		if err != nil {
			t.Fatalf("create transaction %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	pending, err := repo.ListPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending, got %d", len(pending))
	}

	if err := repo.MarkTransactionSynced(ctx, ids[0]); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := repo.MarkTransactionSyncError(ctx, ids[1]); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	pending, err = repo.ListPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("list pending after marks: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != ids[2] {
		t.Fatalf("expected only the untouched transaction pending, got %+v", pending)
	}

	// Batch limit honored.
	pending, err = repo.ListPendingExport(ctx, 0)
	if err != nil {
		t.Fatalf("list pending with limit 0: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("limit 0 should return nothing, got %d", len(pending))
	}
}
