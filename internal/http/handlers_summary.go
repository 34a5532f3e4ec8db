package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budgeteer/internal/core"
)

type categoryTotalPayload struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Color      string `json:"color,omitempty"`
	Total      string `json:"total"`
	TotalCents int64  `json:"total_cents"`
}

type summaryPayload struct {
	Year               int                    `json:"year"`
	Month              int                    `json:"month"`
	ExpenseTotal       string                 `json:"expense_total"`
	ExpenseTotalCents  int64                  `json:"expense_total_cents"`
	IncomeTotal        string                 `json:"income_total"`
	IncomeTotalCents   int64                  `json:"income_total_cents"`
	Net                string                 `json:"net"`
	NetCents           int64                  `json:"net_cents"`
	ByCategory         []categoryTotalPayload `json:"by_category"`
	Uncategorized      string                 `json:"uncategorized"`
	UncategorizedCents int64                  `json:"uncategorized_cents"`
}

// handleSummary computes the per-category month overview. Results are served
// from the LRU cache until a write invalidates them or the TTL lapses.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		badRequest(w, "month must be between 1 and 12")
		return
	}

	key := fmt.Sprintf("summary:%d-%02d", year, month)
	summary, hit := s.summaryCache.Get(key)
	if !hit {
		txns, err := s.storage.ListTransactionsByMonth(r.Context(), year, month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		cats, err := s.storage.ListCategories(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		summary = core.Summarize(txns, cats)
		s.summaryCache.Set(key, summary)
	}

	p := summaryPayload{
		Year:               year,
		Month:              month,
		ExpenseTotal:       summary.ExpenseTotal.String(),
		ExpenseTotalCents:  summary.ExpenseTotal.Cents,
		IncomeTotal:        summary.IncomeTotal.String(),
		IncomeTotalCents:   summary.IncomeTotal.Cents,
		Net:                summary.Net.String(),
		NetCents:           summary.Net.Cents,
		ByCategory:         make([]categoryTotalPayload, 0, len(summary.ByCategory)),
		Uncategorized:      summary.Uncategorized.String(),
		UncategorizedCents: summary.Uncategorized.Cents,
	}
	for _, ct := range summary.ByCategory {
		p.ByCategory = append(p.ByCategory, categoryTotalPayload{
			CategoryID: ct.CategoryID,
			Name:       ct.Name,
			Type:       string(ct.Type),
			Color:      ct.Color,
			Total:      ct.Total.String(),
			TotalCents: ct.Total.Cents,
		})
	}
	writeJSON(w, http.StatusOK, p)
}

type monthTotalPayload struct {
	Month        int    `json:"month"`
	Expense      string `json:"expense"`
	ExpenseCents int64  `json:"expense_cents"`
	Income       string `json:"income"`
	IncomeCents  int64  `json:"income_cents"`
}

// handleYearlySeries returns twelve expense/income buckets for chart
// rendering.
func (s *Server) handleYearlySeries(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, "invalid year")
			return
		}
		year = y
	}

	key := fmt.Sprintf("series:%d", year)
	series, hit := s.seriesCache.Get(key)
	if !hit {
		txns, err := s.storage.ListTransactionsByYear(r.Context(), year)
		if err != nil {
			writeError(w, r, err)
			return
		}
		cats, err := s.storage.ListCategories(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		series = core.MonthlySeries(txns, cats, year)
		s.seriesCache.Set(key, series)
	}

	out := make([]monthTotalPayload, 0, len(series))
	for _, m := range series {
		out = append(out, monthTotalPayload{
			Month:        m.Month,
			Expense:      m.Expense.String(),
			ExpenseCents: m.Expense.Cents,
			Income:       m.Income.String(),
			IncomeCents:  m.Income.Cents,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":   year,
		"months": out,
	})
}
