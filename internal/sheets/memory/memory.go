// Package memory is an in-memory import source for tests and local
// development without Google credentials.
package memory

import (
	"context"
	"sync"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/core"
)

type Store struct {
	mu   sync.Mutex
	rows []core.ImportRow
}

func New(rows []core.ImportRow) *Store {
	return &Store{rows: append([]core.ImportRow(nil), rows...)}
}

// ReadRows returns a copy of the stored rows.
func (s *Store) ReadRows(_ context.Context) ([]core.ImportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ImportRow(nil), s.rows...), nil
}

// Add appends rows, for tests that build up a source incrementally.
func (s *Store) Add(rows ...core.ImportRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}
