package http

import (
	"net/http"

	"budgeteer/internal/core"
	"budgeteer/internal/storage"
)

type budgetPayload struct {
	CategoryID   int64   `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Amount       *string `json:"amount"` // null when no budget is set
	AmountCents  *int64  `json:"amount_cents"`
}

// handleListBudgets returns every category with its allocation for the
// requested month; categories without a budget carry a null amount.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		badRequest(w, "month must be between 1 and 12")
		return
	}

	rows, err := s.storage.ListBudgetsForMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]budgetPayload, 0, len(rows))
	for _, row := range rows {
		p := budgetPayload{
			CategoryID:   row.CategoryID,
			CategoryName: row.CategoryName,
		}
		if row.Amount != nil {
			amount := row.Amount.String()
			p.Amount = &amount
			p.AmountCents = &row.Amount.Cents
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":    year,
		"month":   month,
		"budgets": out,
	})
}

type upsertBudgetRequest struct {
	CategoryID int64  `json:"category_id"`
	Amount     string `json:"amount"`
	Year       int    `json:"year,omitempty"`
	Month      int    `json:"month,omitempty"`
}

// handleUpsertBudget sets (or overwrites) one category's allocation. Year and
// month default to the current calendar month when omitted.
func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req upsertBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	cents, err := core.NonNegativeCents(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	year, month := req.Year, req.Month
	if year == 0 || month == 0 {
		y, m := parseYearMonth(r)
		if year == 0 {
			year = y
		}
		if month == 0 {
			month = m
		}
	}

	b := core.Budget{
		CategoryID: req.CategoryID,
		Year:       year,
		Month:      month,
		Amount:     core.Money{Cents: cents},
	}
	if err := b.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.storage.UpsertBudget(r.Context(), storage.UpsertBudgetParams{
		CategoryID:  b.CategoryID,
		Year:        b.Year,
		Month:       b.Month,
		AmountCents: b.Amount.Cents,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	amount := saved.Amount.String()
	writeJSON(w, http.StatusOK, map[string]any{
		"category_id":  saved.CategoryID,
		"year":         saved.Year,
		"month":        saved.Month,
		"amount":       amount,
		"amount_cents": saved.Amount.Cents,
	})
}
