package http

import (
	"net/http"
	"time"

	"budgeteer/internal/core"
	"budgeteer/internal/storage"
)

type goalPayload struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	TargetAmount  string `json:"target_amount"`
	TargetCents   int64  `json:"target_amount_cents"`
	CurrentAmount string `json:"current_amount"`
	CurrentCents  int64  `json:"current_amount_cents"`
	TargetDate    string `json:"target_date,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toGoalPayload(g core.Goal) goalPayload {
	p := goalPayload{
		ID:            g.ID,
		Name:          g.Name,
		TargetAmount:  g.TargetAmount.String(),
		TargetCents:   g.TargetAmount.Cents,
		CurrentAmount: g.CurrentAmount.String(),
		CurrentCents:  g.CurrentAmount.Cents,
		Notes:         g.Notes,
		CreatedAt:     g.CreatedAt.Format(time.RFC3339),
	}
	if !g.TargetDate.IsZero() {
		p.TargetDate = g.TargetDate.ISO()
	}
	return p
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.storage.ListGoals(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]goalPayload, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalPayload(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	g, err := s.storage.GetGoal(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalPayload(g))
}

type goalRequest struct {
	Name         string `json:"name"`
	TargetAmount string `json:"target_amount"`
	TargetDate   string `json:"target_date"`
	Notes        string `json:"notes"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	target, err := core.ParseMoney(req.TargetAmount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var targetDate core.Date
	if req.TargetDate != "" {
		if targetDate, err = core.ParseDate(req.TargetDate); err != nil {
			writeError(w, r, err)
			return
		}
	}

	g := core.Goal{
		Name:         sanitizeInput(req.Name),
		TargetAmount: target,
		TargetDate:   targetDate,
		Notes:        sanitizeInput(req.Notes),
	}
	if err := g.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.storage.CreateGoal(r.Context(), storage.CreateGoalParams{
		Name:              g.Name,
		TargetAmountCents: g.TargetAmount.Cents,
		TargetDate:        g.TargetDate,
		Notes:             g.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalPayload(created))
}

type updateGoalRequest struct {
	Name         *string `json:"name"`
	TargetAmount *string `json:"target_amount"`
	TargetDate   *string `json:"target_date"` // "" clears the date
	Notes        *string `json:"notes"`
}

// handleUpdateGoal applies a partial update: absent fields keep their stored
// values. The running total is never writable through this endpoint.
func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req updateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	g, err := s.storage.GetGoal(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if req.Name != nil {
		g.Name = sanitizeInput(*req.Name)
	}
	if req.TargetAmount != nil {
		target, err := core.ParseMoney(*req.TargetAmount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		g.TargetAmount = target
	}
	if req.TargetDate != nil {
		if *req.TargetDate == "" {
			g.TargetDate = core.Date{}
		} else {
			d, err := core.ParseDate(*req.TargetDate)
			if err != nil {
				writeError(w, r, err)
				return
			}
			g.TargetDate = d
		}
	}
	if req.Notes != nil {
		g.Notes = sanitizeInput(*req.Notes)
	}

	if err := g.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.storage.UpdateGoal(r.Context(), storage.UpdateGoalParams{
		ID:                id,
		Name:              g.Name,
		TargetAmountCents: g.TargetAmount.Cents,
		TargetDate:        g.TargetDate,
		Notes:             g.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalPayload(updated))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.storage.DeleteGoal(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contributionPayload struct {
	ID                  int64  `json:"id"`
	GoalID              int64  `json:"goal_id"`
	Amount              string `json:"amount"`
	AmountCents         int64  `json:"amount_cents"`
	Date                string `json:"date"`
	Notes               string `json:"notes,omitempty"`
	SourceTransactionID *int64 `json:"source_transaction_id,omitempty"`
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	// Distinguish an empty history from a missing goal.
	if _, err := s.storage.GetGoal(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	contributions, err := s.storage.ListContributions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]contributionPayload, 0, len(contributions))
	for _, c := range contributions {
		out = append(out, contributionPayload{
			ID:                  c.ID,
			GoalID:              c.GoalID,
			Amount:              c.Amount.String(),
			AmountCents:         c.Amount.Cents,
			Date:                c.Date.ISO(),
			Notes:               c.Notes,
			SourceTransactionID: c.SourceTransactionID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type addContributionRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
	Notes  string `json:"notes"`
}

// handleAddContribution records a manual contribution: no transaction row,
// same atomic engine path.
func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req addContributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	date := core.Date{Time: time.Now().UTC().Truncate(24 * time.Hour)}
	if req.Date != "" {
		if date, err = core.ParseDate(req.Date); err != nil {
			writeError(w, r, err)
			return
		}
	}

	goal, err := s.txns.Contribute(r.Context(), id, amount, date, sanitizeInput(req.Notes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalPayload(goal))
}
