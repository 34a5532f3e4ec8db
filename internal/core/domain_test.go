package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-04-09")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2025 || d.Month() != 4 || d.Day() != 9 {
		t.Fatalf("unexpected date parts: %v", d)
	}
	if d.ISO() != "2025-04-09" {
		t.Fatalf("round-trip mismatch: %s", d.ISO())
	}

	for _, bad := range []string{"", "09/04/2025", "2025-13-01", "yesterday"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	good := Category{Name: "Groceries", Type: CategoryExpense, Color: "#33aa55"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		c    Category
	}{
		{"empty name", Category{Name: " ", Type: CategoryExpense}},
		{"long name", Category{Name: string(make([]byte, 101)), Type: CategoryExpense}},
		{"bad type", Category{Name: "x", Type: "transfer"}},
		{"bad color", Category{Name: "x", Type: CategoryIncome, Color: "green"}},
		{"short hex", Category{Name: "x", Type: CategoryIncome, Color: "#fff"}},
	}
	for _, tc := range cases {
		if err := tc.c.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}

	// Color is optional.
	if err := (Category{Name: "x", Type: CategoryIncome}).Validate(); err != nil {
		t.Fatalf("missing color should be ok, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	catID := int64(1)
	good := Transaction{
		Description: "coffee",
		Amount:      Money{Cents: 350},
		Date:        NewDate(2025, 2, 14),
		CategoryID:  &catID,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Amount: Money{Cents: 0}, Date: NewDate(2025, 2, 14), CategoryID: &catID},
		{Amount: Money{Cents: -5}, Date: NewDate(2025, 2, 14), CategoryID: &catID},
		{Amount: Money{Cents: 100}, Date: Date{Time: time.Time{}}, CategoryID: &catID},
		{Amount: Money{Cents: 100}, Date: NewDate(2025, 2, 14), CategoryID: nil},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}

	long := good
	long.Description = strings.Repeat("x", 201)
	if err := long.Validate(); !errors.Is(err, ErrDescriptionTooLong) {
		t.Fatalf("expected ErrDescriptionTooLong, got %v", err)
	}
}

func TestGoalValidate(t *testing.T) {
	good := Goal{Name: "Vacation", TargetAmount: Money{Cents: 100000}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Goal{Name: "", TargetAmount: Money{Cents: 1}}).Validate(); err == nil {
		t.Fatal("empty name expected error")
	}
	if err := (Goal{Name: "x", TargetAmount: Money{Cents: 0}}).Validate(); err == nil {
		t.Fatal("zero target expected error")
	}
	if err := (Goal{Name: "x", TargetAmount: Money{Cents: 1}, CurrentAmount: Money{Cents: -1}}).Validate(); err == nil {
		t.Fatal("negative current amount expected error")
	}
}

func TestBudgetValidate(t *testing.T) {
	if err := (Budget{CategoryID: 1, Year: 2025, Month: 6, Amount: Money{Cents: 0}}).Validate(); err != nil {
		t.Fatalf("zero budget should validate, got %v", err)
	}
	if err := (Budget{CategoryID: 1, Year: 2025, Month: 13, Amount: Money{Cents: 100}}).Validate(); err == nil {
		t.Fatal("month 13 expected error")
	}
	if err := (Budget{CategoryID: 1, Year: 2025, Month: 1, Amount: Money{Cents: -100}}).Validate(); err == nil {
		t.Fatal("negative budget expected error")
	}
}
