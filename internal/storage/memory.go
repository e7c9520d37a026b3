package storage

import (
	"context"
	"slices"
	"sync"

	"billtrack/internal/core"
)

// MemoryRepository keeps rows in process memory. Data is lost on restart.
type MemoryRepository struct {
	mu     sync.RWMutex
	rows   []core.Row
	prices map[string][]core.PriceEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{prices: make(map[string][]core.PriceEntry)}
}

func (m *MemoryRepository) ListRows(_ context.Context) ([]core.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.rows), nil
}

func (m *MemoryRepository) GetRow(_ context.Context, id string) (core.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.index(id)
	if i < 0 {
		return core.Row{}, ErrRowNotFound
	}
	return m.rows[i], nil
}

func (m *MemoryRepository) InsertRow(_ context.Context, r core.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, r)
	return nil
}

func (m *MemoryRepository) SaveRow(_ context.Context, r core.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(r.ID)
	if i < 0 {
		return ErrRowNotFound
	}
	m.rows[i] = r
	return nil
}

func (m *MemoryRepository) DeleteRow(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return ErrRowNotFound
	}
	m.rows = slices.Delete(m.rows, i, i+1)
	delete(m.prices, id)
	return nil
}

func (m *MemoryRepository) ListPrices(_ context.Context, rowID string) ([]core.PriceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.index(rowID) < 0 {
		return nil, ErrRowNotFound
	}
	return append([]core.PriceEntry{}, m.prices[rowID]...), nil
}

func (m *MemoryRepository) AppendPrice(_ context.Context, rowID string, e core.PriceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index(rowID) < 0 {
		return ErrRowNotFound
	}
	m.prices[rowID] = append(m.prices[rowID], e)
	return nil
}

func (m *MemoryRepository) DeletePrice(_ context.Context, rowID string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index(rowID) < 0 {
		return ErrRowNotFound
	}
	history := m.prices[rowID]
	if index < 0 || index >= len(history) {
		return ErrIndexOutOfRange
	}
	m.prices[rowID] = slices.Delete(history, index, index+1)
	return nil
}

func (m *MemoryRepository) Close() error { return nil }

func (m *MemoryRepository) index(id string) int {
	return slices.IndexFunc(m.rows, func(r core.Row) bool { return r.ID == id })
}
