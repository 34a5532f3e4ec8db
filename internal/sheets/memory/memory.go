// Package memory is an in-process export target used by tests and by
// deployments without spreadsheet credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budgeteer/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []sheets.ExportRow
}

func New() *Store {
	return &Store{}
}

var (
	_ sheets.Appender = (*Store)(nil)
	_ sheets.Remover  = (*Store)(nil)
)

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, row sheets.ExportRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Remove drops every stored row carrying the given transaction id.
func (s *Store) Remove(_ context.Context, row sheets.ExportRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, r := range s.rows {
		if r.ID != row.ID {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

// Rows returns a copy of the stored rows for assertions.
func (s *Store) Rows() []sheets.ExportRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.ExportRow(nil), s.rows...)
}
