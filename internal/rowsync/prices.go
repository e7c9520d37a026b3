package rowsync

import (
	"context"

	"billtrack/internal/core"
	applog "billtrack/internal/log"
)

// Prices loads a row's price history from the server and caches it.
func (s *Store) Prices(ctx context.Context, id string) ([]core.PriceEntry, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	entries, err := s.backend.ListPrices(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.prices[id] = entries
	s.mu.Unlock()
	return append([]core.PriceEntry(nil), entries...), nil
}

// CachedPrices returns the last loaded history without a request.
func (s *Store) CachedPrices(id string) []core.PriceEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.PriceEntry(nil), s.prices[id]...)
}

// AddPrice validates the input, posts it and reloads the history.
func (s *Store) AddPrice(ctx context.Context, id, date, price string) ([]core.PriceEntry, error) {
	e, err := core.NewPriceEntry(date, price)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	if _, err := s.backend.AddPrice(ctx, id, e); err != nil {
		return nil, err
	}
	return s.Prices(ctx, id)
}

// DeletePrice removes the entry at a 0-based position. Entries have no
// identity of their own, so a concurrent change on the server can shift
// which entry the index points at. The history is reloaded only after a 204.
func (s *Store) DeletePrice(ctx context.Context, id string, index int) ([]core.PriceEntry, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	if err := s.backend.DeletePrice(ctx, id, index); err != nil {
		return s.CachedPrices(id), err
	}
	s.logger.DebugContext(ctx, "Price entry deleted", applog.FieldRowID, id, applog.FieldPriceIndex, index)
	return s.Prices(ctx, id)
}
