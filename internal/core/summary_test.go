package core

import "testing"

func ptr(id int64) *int64 { return &id }

func testCategories() []Category {
	return []Category{
		{ID: 1, Name: "Groceries", Type: CategoryExpense, Color: "#aa3355"},
		{ID: 2, Name: "Salary", Type: CategoryIncome, Color: "#33aa55"},
		{ID: 3, Name: "Rent", Type: CategoryExpense},
	}
}

func TestSummarize(t *testing.T) {
	txns := []Transaction{
		{ID: 1, Amount: Money{Cents: 4500}, Date: NewDate(2025, 3, 2), CategoryID: ptr(1)},
		{ID: 2, Amount: Money{Cents: 1500}, Date: NewDate(2025, 3, 9), CategoryID: ptr(1)},
		{ID: 3, Amount: Money{Cents: 250000}, Date: NewDate(2025, 3, 1), CategoryID: ptr(2)},
		{ID: 4, Amount: Money{Cents: 90000}, Date: NewDate(2025, 3, 1), CategoryID: ptr(3)},
		{ID: 5, Amount: Money{Cents: 1000}, Date: NewDate(2025, 3, 4), CategoryID: nil}, // category deleted
	}

	s := Summarize(txns, testCategories())

	if s.IncomeTotal.Cents != 250000 {
		t.Fatalf("income total: expected 250000, got %d", s.IncomeTotal.Cents)
	}
	if s.ExpenseTotal.Cents != 4500+1500+90000+1000 {
		t.Fatalf("expense total: expected 97000, got %d", s.ExpenseTotal.Cents)
	}
	if s.Net.Cents != 250000-97000 {
		t.Fatalf("net: expected 153000, got %d", s.Net.Cents)
	}
	if s.Uncategorized.Cents != 1000 {
		t.Fatalf("uncategorized: expected 1000, got %d", s.Uncategorized.Cents)
	}

	if len(s.ByCategory) != 3 {
		t.Fatalf("expected 3 category totals, got %d", len(s.ByCategory))
	}
	// Order follows the category slice.
	if s.ByCategory[0].Name != "Groceries" || s.ByCategory[0].Total.Cents != 6000 {
		t.Fatalf("groceries total wrong: %+v", s.ByCategory[0])
	}
	if s.ByCategory[1].Name != "Salary" || s.ByCategory[1].Total.Cents != 250000 {
		t.Fatalf("salary total wrong: %+v", s.ByCategory[1])
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, testCategories())
	if s.ExpenseTotal.Cents != 0 || s.IncomeTotal.Cents != 0 || len(s.ByCategory) != 0 {
		t.Fatalf("empty input should produce zero summary: %+v", s)
	}
}

func TestMonthlySeries(t *testing.T) {
	txns := []Transaction{
		{Amount: Money{Cents: 100}, Date: NewDate(2025, 1, 5), CategoryID: ptr(1)},
		{Amount: Money{Cents: 200}, Date: NewDate(2025, 1, 20), CategoryID: ptr(1)},
		{Amount: Money{Cents: 5000}, Date: NewDate(2025, 2, 1), CategoryID: ptr(2)},
		{Amount: Money{Cents: 999}, Date: NewDate(2024, 12, 31), CategoryID: ptr(1)}, // other year
	}

	series := MonthlySeries(txns, testCategories(), 2025)
	if len(series) != 12 {
		t.Fatalf("expected 12 slots, got %d", len(series))
	}
	if series[0].Expense.Cents != 300 || series[0].Income.Cents != 0 {
		t.Fatalf("january wrong: %+v", series[0])
	}
	if series[1].Income.Cents != 5000 {
		t.Fatalf("february wrong: %+v", series[1])
	}
	for i := 2; i < 12; i++ {
		if series[i].Expense.Cents != 0 || series[i].Income.Cents != 0 {
			t.Fatalf("month %d should be empty: %+v", i+1, series[i])
		}
	}
}
