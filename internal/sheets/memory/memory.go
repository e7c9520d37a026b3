package memory

import (
	"context"
	"fmt"
	"sync"

	"billtrack/internal/sheets"
)

// Store is an in-process ledger used for dry runs and tests.
type Store struct {
	mu      sync.Mutex
	entries []sheets.LedgerEntry
}

var (
	_ sheets.LedgerWriter = (*Store)(nil)
	_ sheets.LedgerReader = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// AppendEntry stores the entry and returns a synthetic row reference.
func (s *Store) AppendEntry(_ context.Context, e sheets.LedgerEntry) (string, error) {
	if e.RowID == "" {
		return "", fmt.Errorf("ledger entry without row id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Row != nil {
		row := *e.Row
		e.Row = &row
	}
	s.entries = append(s.entries, e)
	return fmt.Sprintf("mem:%d", len(s.entries)), nil
}

func (s *Store) Entries(_ context.Context) ([]sheets.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.LedgerEntry(nil), s.entries...), nil
}
