package http

import (
	"net/http"
	"time"

	"budgeteer/internal/core"
	"budgeteer/internal/ledger"
)

type transactionPayload struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date"`
	CategoryID  *int64 `json:"category_id"`
	CreatedAt   string `json:"created_at"`
}

func toTransactionPayload(t core.Transaction) transactionPayload {
	return transactionPayload{
		ID:          t.ID,
		Description: t.Description,
		Amount:      t.Amount.String(),
		AmountCents: t.Amount.Cents,
		Date:        t.Date.ISO(),
		CategoryID:  t.CategoryID,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

// handleListTransactions returns all transactions, or one month's worth when
// year/month query parameters are present.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var (
		txns []core.Transaction
		err  error
	)
	if r.URL.Query().Get("year") != "" || r.URL.Query().Get("month") != "" {
		year, month := parseYearMonth(r)
		txns, err = s.storage.ListTransactionsByMonth(r.Context(), year, month)
	} else {
		txns, err = s.storage.ListTransactions(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionPayload, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionPayload(t))
	}
	writeJSON(w, http.StatusOK, out)
}

type createTransactionRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	CategoryID  int64  `json:"category_id"`
	GoalID      *int64 `json:"goal_id"`
}

type createTransactionResponse struct {
	TransactionID int64        `json:"transaction_id"`
	Goal          *goalPayload `json:"goal,omitempty"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.txns.Record(r.Context(), ledger.RecordParams{
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Date:        date,
		CategoryID:  req.CategoryID,
		GoalID:      req.GoalID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()

	resp := createTransactionResponse{TransactionID: res.TransactionID}
	if res.UpdatedGoal != nil {
		p := toGoalPayload(*res.UpdatedGoal)
		resp.Goal = &p
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.txns.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()
	w.WriteHeader(http.StatusNoContent)
}
