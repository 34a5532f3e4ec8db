package core

// CategoryTotal is the amount accumulated against a single category.
type CategoryTotal struct {
	CategoryID int64
	Name       string
	Type       CategoryType
	Color      string
	Total      Money
}

// Summary is the stateless read model computed from a transaction set.
// It never touches storage; the caller passes whatever slice it has read.
type Summary struct {
	ExpenseTotal  Money
	IncomeTotal   Money
	Net           Money
	ByCategory    []CategoryTotal
	Uncategorized Money
}

// MonthTotal is one slot of a chart-ready yearly series.
type MonthTotal struct {
	Month   int // 1-12
	Expense Money
	Income  Money
}

// Summarize aggregates transactions into per-category totals and the
// expense/income split. Transactions whose category has been deleted
// (nil CategoryID) count toward Uncategorized and the expense total.
func Summarize(txns []Transaction, cats []Category) Summary {
	byID := make(map[int64]Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	totals := make(map[int64]Money)
	var s Summary
	for _, t := range txns {
		if t.CategoryID == nil {
			s.Uncategorized = s.Uncategorized.Add(t.Amount)
			s.ExpenseTotal = s.ExpenseTotal.Add(t.Amount)
			continue
		}
		cat, ok := byID[*t.CategoryID]
		if !ok {
			s.Uncategorized = s.Uncategorized.Add(t.Amount)
			s.ExpenseTotal = s.ExpenseTotal.Add(t.Amount)
			continue
		}
		totals[cat.ID] = totals[cat.ID].Add(t.Amount)
		if cat.Type == CategoryIncome {
			s.IncomeTotal = s.IncomeTotal.Add(t.Amount)
		} else {
			s.ExpenseTotal = s.ExpenseTotal.Add(t.Amount)
		}
	}

	// Keep category order stable: follow the input category slice.
	for _, c := range cats {
		total, ok := totals[c.ID]
		if !ok {
			continue
		}
		s.ByCategory = append(s.ByCategory, CategoryTotal{
			CategoryID: c.ID,
			Name:       c.Name,
			Type:       c.Type,
			Color:      c.Color,
			Total:      total,
		})
	}

	s.Net = Money{Cents: s.IncomeTotal.Cents - s.ExpenseTotal.Cents}
	return s
}

// MonthlySeries buckets a year's transactions into twelve expense/income
// slots for chart rendering. Transactions outside the year are skipped.
func MonthlySeries(txns []Transaction, cats []Category, year int) []MonthTotal {
	byID := make(map[int64]Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	series := make([]MonthTotal, 12)
	for i := range series {
		series[i].Month = i + 1
	}

	for _, t := range txns {
		if t.Date.Year() != year {
			continue
		}
		slot := &series[t.Date.Month()-1]
		income := false
		if t.CategoryID != nil {
			if cat, ok := byID[*t.CategoryID]; ok && cat.Type == CategoryIncome {
				income = true
			}
		}
		if income {
			slot.Income = slot.Income.Add(t.Amount)
		} else {
			slot.Expense = slot.Expense.Add(t.Amount)
		}
	}
	return series
}
