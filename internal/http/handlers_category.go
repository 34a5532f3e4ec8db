package http

import (
	"net/http"
	"time"

	"budgeteer/internal/core"
	"budgeteer/internal/storage"
)

type categoryPayload struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Color     string `json:"color,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toCategoryPayload(c core.Category) categoryPayload {
	return categoryPayload{
		ID:        c.ID,
		Name:      c.Name,
		Type:      string(c.Type),
		Color:     c.Color,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.storage.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryPayload, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryPayload(c))
	}
	writeJSON(w, http.StatusOK, out)
}

type categoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	c := core.Category{
		Name:  sanitizeInput(req.Name),
		Type:  core.CategoryType(req.Type),
		Color: sanitizeInput(req.Color),
	}
	if err := c.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.storage.CreateCategory(r.Context(), storage.CreateCategoryParams{
		Name:  c.Name,
		Type:  c.Type,
		Color: c.Color,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryPayload(created))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	// Type is immutable after creation; reuse the stored one for validation.
	existing, err := s.storage.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c := core.Category{
		Name:  sanitizeInput(req.Name),
		Type:  existing.Type,
		Color: sanitizeInput(req.Color),
	}
	if err := c.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.storage.UpdateCategory(r.Context(), storage.UpdateCategoryParams{
		ID:    id,
		Name:  c.Name,
		Color: c.Color,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()
	writeJSON(w, http.StatusOK, toCategoryPayload(updated))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.storage.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReadCaches()
	w.WriteHeader(http.StatusNoContent)
}
