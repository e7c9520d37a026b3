// Package rowsync mirrors the server's rows into a local collection.
//
// The server is the source of truth: every successful mutation replaces the
// local copy of the affected row with the representation the server returned,
// and failed calls leave the collection untouched.
package rowsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"billtrack/internal/core"
	applog "billtrack/internal/log"
)

var (
	ErrNotEditable = errors.New("row has no stored PDF; upload one before editing")
	ErrUnknownRow  = errors.New("unknown row")
	ErrEmptyPatch  = errors.New("nothing to update")
)

// Backend is the subset of the REST client the store needs.
type Backend interface {
	ListRows(ctx context.Context) ([]core.Row, error)
	CreateRow(ctx context.Context, p core.RowPatch) (core.Row, error)
	UpdateRow(ctx context.Context, id string, p core.RowPatch) (core.Row, error)
	UploadFile(ctx context.Context, id, name string, data []byte) (core.Row, error)
	RunOCR(ctx context.Context, id string) (core.Row, error)
	DeleteRow(ctx context.Context, id string) error
	ListPrices(ctx context.Context, id string) ([]core.PriceEntry, error)
	AddPrice(ctx context.Context, id string, e core.PriceEntry) (core.PriceEntry, error)
	DeletePrice(ctx context.Context, id string, index int) error
	Audit(ctx context.Context) (core.AuditSummary, error)
	SamplePDF(ctx context.Context) ([]byte, error)
}

// OCRResult is what an upload or OCR run shows the user.
type OCRResult struct {
	Title string
	Text  string
	Row   core.Row
}

func newOCRResult(r core.Row) OCRResult {
	return OCRResult{Title: r.OCRTitle(), Text: r.OCRDisplay(), Row: r}
}

// Store is the local row collection. It is safe for concurrent use.
type Store struct {
	backend Backend
	logger  *applog.Logger

	mu     sync.RWMutex
	rows   []core.Row
	gen    uint64
	prices map[string][]core.PriceEntry

	totalsMu  sync.Mutex
	totalsGen uint64
	totals    *core.Totals
}

// New creates an empty store.
func New(backend Backend, logger *applog.Logger) *Store {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Store{
		backend: backend,
		logger:  logger.WithComponent(applog.ComponentSync),
		prices:  make(map[string][]core.PriceEntry),
	}
}

// Load replaces the collection with the server's row list.
func (s *Store) Load(ctx context.Context) error {
	rows, err := s.backend.ListRows(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rows = append([]core.Row(nil), rows...)
	s.gen++
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "Rows loaded", applog.FieldRowCount, len(rows))
	return nil
}

// Rows returns a copy of the collection in display order.
func (s *Store) Rows() []core.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Row(nil), s.rows...)
}

// Len returns the number of rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// At returns the row at a 1-based display position.
func (s *Store) At(pos int) (core.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pos < 1 || pos > len(s.rows) {
		return core.Row{}, fmt.Errorf("%w: position %d of %d", ErrUnknownRow, pos, len(s.rows))
	}
	return s.rows[pos-1], nil
}

// Get returns the row with the given id.
func (s *Store) Get(id string) (core.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.rows[i], nil
	}
	return core.Row{}, fmt.Errorf("%w: %s", ErrUnknownRow, id)
}

// Create validates the draft, creates the row, uploads its file and then
// re-sends the draft so the typed values win over the fields extracted from
// the upload. Fields left blank in the draft keep the extracted values. A
// validation failure sends nothing. If a later step fails the row is kept
// and returned together with the error.
func (s *Store) Create(ctx context.Context, d *core.Draft) (core.Row, error) {
	if err := d.Validate(); err != nil {
		return core.Row{}, err
	}
	p, err := d.Patch()
	if err != nil {
		return core.Row{}, err
	}
	row, err := s.backend.CreateRow(ctx, p)
	if err != nil {
		return core.Row{}, err
	}
	s.upsert(row)
	s.logger.InfoContext(ctx, "Row created", applog.NewFields().WithRow(row.ID, row.Version).ToSlice()...)

	updated, err := s.backend.UploadFile(ctx, row.ID, d.File.Name, d.File.Data)
	if err != nil {
		s.logger.WarnContext(ctx, "Upload after create failed",
			applog.FieldRowID, row.ID, applog.FieldError, err)
		return row, err
	}
	s.upsert(updated)

	final, err := s.backend.UpdateRow(ctx, row.ID, p)
	if err != nil {
		s.logger.WarnContext(ctx, "Applying draft after upload failed",
			applog.FieldRowID, row.ID, applog.FieldError, err)
		return updated, err
	}
	s.upsert(final)
	return final, nil
}

// Update sends a partial update and caches the server's row. Rows without a
// stored PDF are refused locally.
func (s *Store) Update(ctx context.Context, id string, p core.RowPatch) (core.Row, error) {
	cur, err := s.Get(id)
	if err != nil {
		return core.Row{}, err
	}
	if !cur.Editable() {
		return core.Row{}, ErrNotEditable
	}
	if p.Empty() {
		return core.Row{}, ErrEmptyPatch
	}
	row, err := s.backend.UpdateRow(ctx, id, p)
	if err != nil {
		return core.Row{}, err
	}
	s.upsert(row)
	s.logger.DebugContext(ctx, "Row updated", applog.FieldRowID, id, applog.FieldTotal, row.Total.Float64())
	return row, nil
}

// Upload attaches a PDF to a row and returns the OCR outcome.
func (s *Store) Upload(ctx context.Context, id, name string, data []byte) (OCRResult, error) {
	if _, err := s.Get(id); err != nil {
		return OCRResult{}, err
	}
	row, err := s.backend.UploadFile(ctx, id, name, data)
	if err != nil {
		return OCRResult{}, err
	}
	s.upsert(row)
	s.logger.InfoContext(ctx, "File uploaded", applog.FieldRowID, id, applog.FieldFileName, name)
	return newOCRResult(row), nil
}

// RunOCR re-extracts text from the row's stored PDF.
func (s *Store) RunOCR(ctx context.Context, id string) (OCRResult, error) {
	if _, err := s.Get(id); err != nil {
		return OCRResult{}, err
	}
	row, err := s.backend.RunOCR(ctx, id)
	if err != nil {
		return OCRResult{}, err
	}
	s.upsert(row)
	return newOCRResult(row), nil
}

// Delete removes the row locally once the server confirmed with 204.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteRow(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.rows = append(s.rows[:i], s.rows[i+1:]...)
		s.gen++
	}
	delete(s.prices, id)
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "Row deleted", applog.FieldRowID, id)
	return nil
}

// Totals returns the derived chart inputs, recomputed only when the
// collection changed since the last call.
func (s *Store) Totals() core.Totals {
	s.mu.RLock()
	gen := s.gen
	rows := s.rows
	s.totalsMu.Lock()
	defer s.totalsMu.Unlock()
	if s.totals != nil && s.totalsGen == gen {
		s.mu.RUnlock()
		return *s.totals
	}
	t := core.ComputeTotals(rows)
	s.mu.RUnlock()
	s.totals, s.totalsGen = &t, gen
	return t
}

// Audit fetches the server's audit summary.
func (s *Store) Audit(ctx context.Context) (core.AuditSummary, error) {
	return s.backend.Audit(ctx)
}

func (s *Store) upsert(row core.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(row.ID); i >= 0 {
		s.rows[i] = row
	} else {
		s.rows = append(s.rows, row)
	}
	s.gen++
}

func (s *Store) indexLocked(id string) int {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return i
		}
	}
	return -1
}
