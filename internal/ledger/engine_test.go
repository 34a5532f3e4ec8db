package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"budgeteer/internal/core"
	"budgeteer/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return New(repo), repo
}

func seedCategory(t *testing.T, repo *storage.SQLiteRepository, name string, typ core.CategoryType) core.Category {
	t.Helper()
	c, err := repo.CreateCategory(context.Background(), storage.CreateCategoryParams{
		Name: name, Type: typ, Color: "#336699",
	})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return c
}

func seedGoal(t *testing.T, repo *storage.SQLiteRepository, name string, targetCents int64) core.Goal {
	t.Helper()
	g, err := repo.CreateGoal(context.Background(), storage.CreateGoalParams{
		Name: name, TargetAmountCents: targetCents,
	})
	if err != nil {
		t.Fatalf("seed goal: %v", err)
	}
	return g
}

// checkInvariant asserts the core correctness property: the goal's running
// total equals the sum of its live contribution rows.
func checkInvariant(t *testing.T, repo *storage.SQLiteRepository, goalID int64) {
	t.Helper()
	ctx := context.Background()
	goal, err := repo.GetGoal(ctx, goalID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	sum, err := repo.Queries().SumContributions(ctx, goalID)
	if err != nil {
		t.Fatalf("sum contributions: %v", err)
	}
	if goal.CurrentAmount.Cents != sum {
		t.Fatalf("running total drifted: current=%d, contribution sum=%d", goal.CurrentAmount.Cents, sum)
	}
}

func countTransactions(t *testing.T, repo *storage.SQLiteRepository) int {
	t.Helper()
	txns, err := repo.ListTransactions(context.Background())
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	return len(txns)
}

func TestRecordTransactionPlain(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	cat := seedCategory(t, repo, "Groceries", core.CategoryExpense)

	res, err := engine.RecordTransaction(ctx, RecordParams{
		Description: "weekly shop",
		Amount:      core.Money{Cents: 4275},
		Date:        core.NewDate(2025, 5, 3),
		CategoryID:  cat.ID,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if res.TransactionID == 0 {
		t.Fatal("expected a transaction id")
	}
	if res.UpdatedGoal != nil {
		t.Fatal("no goal named, no goal snapshot expected")
	}

	got, err := repo.GetTransaction(ctx, res.TransactionID)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Amount.Cents != 4275 || got.Date.ISO() != "2025-05-03" {
		t.Fatalf("read back mismatch: %+v", got)
	}
	if got.CategoryID == nil || *got.CategoryID != cat.ID {
		t.Fatalf("category id mismatch: %+v", got.CategoryID)
	}
}

func TestRecordTransactionWithContribution(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	cat := seedCategory(t, repo, "Salary", core.CategoryIncome)
	goal := seedGoal(t, repo, "Vacation", 100000)

	res, err := engine.RecordTransaction(ctx, RecordParams{
		Description: "bonus",
		Amount:      core.Money{Cents: 10000},
		Date:        core.NewDate(2025, 6, 1),
		CategoryID:  cat.ID,
		GoalID:      &goal.ID,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if res.UpdatedGoal == nil {
		t.Fatal("expected updated goal snapshot")
	}
	if res.UpdatedGoal.CurrentAmount.Cents != 10000 {
		t.Fatalf("expected goal total 10000, got %d", res.UpdatedGoal.CurrentAmount.Cents)
	}

	contributions, err := repo.ListContributions(ctx, goal.ID)
	if err != nil {
		t.Fatalf("list contributions: %v", err)
	}
	if len(contributions) != 1 {
		t.Fatalf("expected 1 contribution, got %d", len(contributions))
	}
	c := contributions[0]
	if c.Amount.Cents != 10000 {
		t.Fatalf("contribution amount mismatch: %d", c.Amount.Cents)
	}
	if c.Date.ISO() != "2025-06-01" {
		t.Fatalf("contribution date should match the transaction date, got %s", c.Date.ISO())
	}
	if c.SourceTransactionID == nil || *c.SourceTransactionID != res.TransactionID {
		t.Fatalf("contribution not linked to transaction: %+v", c.SourceTransactionID)
	}

	checkInvariant(t, repo, goal.ID)
}

func TestRecordTransactionMissingCategory(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.RecordTransaction(ctx, RecordParams{
		Amount:     core.Money{Cents: 500},
		Date:       core.NewDate(2025, 1, 1),
		CategoryID: 9999,
	})
	if !errors.Is(err, core.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
	if n := countTransactions(t, repo); n != 0 {
		t.Fatalf("nothing should persist, found %d transactions", n)
	}
}

func TestRecordTransactionMissingGoalRollsBack(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	cat := seedCategory(t, repo, "Salary", core.CategoryIncome)

	_, err := engine.RecordTransaction(ctx, RecordParams{
		Amount:     core.Money{Cents: 5000},
		Date:       core.NewDate(2025, 1, 1),
		CategoryID: cat.ID,
		GoalID:     ptr(9999),
	})
	if !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}

	// The transaction insert must be rolled back with the failed contribution:
	// no orphan transaction may remain.
	if n := countTransactions(t, repo); n != 0 {
		t.Fatalf("expected full rollback, found %d transactions", n)
	}
}

func TestDeleteTransactionReversesContribution(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	cat := seedCategory(t, repo, "Salary", core.CategoryIncome)
	goal := seedGoal(t, repo, "Emergency fund", 100000)

	res, err := engine.RecordTransaction(ctx, RecordParams{
		Amount:     core.Money{Cents: 10000},
		Date:       core.NewDate(2025, 3, 1),
		CategoryID: cat.ID,
		GoalID:     &goal.ID,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	g, err := repo.GetGoal(ctx, goal.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if g.CurrentAmount.Cents != 10000 {
		t.Fatalf("expected goal at 10000 before delete, got %d", g.CurrentAmount.Cents)
	}

	if err := engine.DeleteTransaction(ctx, res.TransactionID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	g, err = repo.GetGoal(ctx, goal.ID)
	if err != nil {
		t.Fatalf("get goal after delete: %v", err)
	}
	if g.CurrentAmount.Cents != 0 {
		t.Fatalf("expected goal back at 0, got %d", g.CurrentAmount.Cents)
	}
	contributions, err := repo.ListContributions(ctx, goal.ID)
	if err != nil {
		t.Fatalf("list contributions: %v", err)
	}
	if len(contributions) != 0 {
		t.Fatalf("contribution row should be gone, found %d", len(contributions))
	}
	if n := countTransactions(t, repo); n != 0 {
		t.Fatalf("transaction row should be gone, found %d", n)
	}
	checkInvariant(t, repo, goal.ID)
}

func TestDeleteNonContributingTransactionLeavesGoalsAlone(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	cat := seedCategory(t, repo, "Groceries", core.CategoryExpense)
	goal := seedGoal(t, repo, "Vacation", 100000)

	if _, err := engine.Contribute(ctx, goal.ID, core.Money{Cents: 7500}, core.NewDate(2025, 2, 1), "manual"); err != nil {
		t.Fatalf("manual contribution: %v", err)
	}

	res, err := engine.RecordTransaction(ctx, RecordParams{
		Amount:     core.Money{Cents: 1200},
		Date:       core.NewDate(2025, 2, 2),
		CategoryID: cat.ID,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := engine.DeleteTransaction(ctx, res.TransactionID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	g, err := repo.GetGoal(ctx, goal.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if g.CurrentAmount.Cents != 7500 {
		t.Fatalf("goal total must be untouched, got %d", g.CurrentAmount.Cents)
	}
	checkInvariant(t, repo, goal.ID)
}

func TestDeleteMissingTransaction(t *testing.T) {
	engine, _ := newTestEngine(t)
	if err := engine.DeleteTransaction(context.Background(), 12345); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentContributionsToSameGoal(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	cat := seedCategory(t, repo, "Salary", core.CategoryIncome)
	goal := seedGoal(t, repo, "Vacation", 100000)

	// Enough simultaneous writers to force lock contention on the goal row:
	// every one of them must queue and commit, never fail, never lose an
	// update.
	const writers = 16

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.RecordTransaction(ctx, RecordParams{
				Amount:     core.Money{Cents: 1000},
				Date:       core.NewDate(2025, 4, 1),
				CategoryID: cat.ID,
				GoalID:     &goal.ID,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent record failed: %v", err)
		}
	}

	g, err := repo.GetGoal(ctx, goal.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if g.CurrentAmount.Cents != writers*1000 {
		t.Fatalf("lost update: expected %d, got %d", writers*1000, g.CurrentAmount.Cents)
	}
	checkInvariant(t, repo, goal.ID)
}

func TestContributionRoundingIsExact(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	goal := seedGoal(t, repo, "Rainy day", 100000)

	for _, amount := range []string{"0.1", "0.2"} {
		m, err := core.ParseMoney(amount)
		if err != nil {
			t.Fatalf("parse %s: %v", amount, err)
		}
		if _, err := engine.Contribute(ctx, goal.ID, m, core.NewDate(2025, 1, 15), ""); err != nil {
			t.Fatalf("contribute %s: %v", amount, err)
		}
	}

	g, err := repo.GetGoal(ctx, goal.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if g.CurrentAmount.Cents != 30 {
		t.Fatalf("expected exactly 30 cents, got %d", g.CurrentAmount.Cents)
	}
	if g.CurrentAmount.String() != "0.30" {
		t.Fatalf("expected 0.30, got %s", g.CurrentAmount.String())
	}
	checkInvariant(t, repo, goal.ID)
}

func TestContributeMissingGoal(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.Contribute(context.Background(), 404, core.Money{Cents: 100}, core.NewDate(2025, 1, 1), "")
	if !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
}

func TestRecordValidation(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	cat := seedCategory(t, repo, "Groceries", core.CategoryExpense)

	cases := []struct {
		name string
		p    RecordParams
		want error
	}{
		{"zero amount", RecordParams{Amount: core.Money{Cents: 0}, Date: core.NewDate(2025, 1, 1), CategoryID: cat.ID}, core.ErrInvalidAmount},
		{"negative amount", RecordParams{Amount: core.Money{Cents: -100}, Date: core.NewDate(2025, 1, 1), CategoryID: cat.ID}, core.ErrInvalidAmount},
		{"zero date", RecordParams{Amount: core.Money{Cents: 100}, CategoryID: cat.ID}, core.ErrInvalidDate},
		{"missing category", RecordParams{Amount: core.Money{Cents: 100}, Date: core.NewDate(2025, 1, 1)}, core.ErrMissingCategory},
		{"long description", RecordParams{Description: strings.Repeat("x", 201), Amount: core.Money{Cents: 100}, Date: core.NewDate(2025, 1, 1), CategoryID: cat.ID}, core.ErrDescriptionTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.RecordTransaction(ctx, tc.p); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if n := countTransactions(t, repo); n != 0 {
		t.Fatalf("validation failures must persist nothing, found %d", n)
	}
}

// Invariant preservation across a mixed call sequence, success and failure
// paths included.
func TestInvariantAcrossSequence(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	cat := seedCategory(t, repo, "Salary", core.CategoryIncome)
	goal := seedGoal(t, repo, "House", 5000000)

	var kept []int64

	for i := 0; i < 5; i++ {
		res, err := engine.RecordTransaction(ctx, RecordParams{
			Amount:     core.Money{Cents: int64(1000 * (i + 1))},
			Date:       core.NewDate(2025, 7, i+1),
			CategoryID: cat.ID,
			GoalID:     &goal.ID,
		})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		kept = append(kept, res.TransactionID)
		checkInvariant(t, repo, goal.ID)
	}

	// A failed record against a missing goal must not disturb the total.
	if _, err := engine.RecordTransaction(ctx, RecordParams{
		Amount:     core.Money{Cents: 999},
		Date:       core.NewDate(2025, 7, 9),
		CategoryID: cat.ID,
		GoalID:     ptr(31337),
	}); !errors.Is(err, core.ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound, got %v", err)
	}
	checkInvariant(t, repo, goal.ID)

	for _, id := range kept[:3] {
		if err := engine.DeleteTransaction(ctx, id); err != nil {
			t.Fatalf("delete %d: %v", id, err)
		}
		checkInvariant(t, repo, goal.ID)
	}

	g, err := repo.GetGoal(ctx, goal.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	// 4000 + 5000 remain after deleting the first three contributions.
	if g.CurrentAmount.Cents != 9000 {
		t.Fatalf("expected 9000, got %d", g.CurrentAmount.Cents)
	}
}

func ptr(id int64) *int64 { return &id }
