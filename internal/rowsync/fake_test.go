package rowsync

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"billtrack/internal/api"
	"billtrack/internal/core"
)

// fakeBackend is an in-memory server. Status overrides let tests force the
// responses the real server could give.
type fakeBackend struct {
	mu     sync.Mutex
	rows   []core.Row
	prices map[string][]core.PriceEntry
	seq    int

	calls map[string]int

	createErr    error
	uploadErr    error
	updateErr    error
	deleteStatus int
	priceDelErr  error
	sampleErr    error
	// updateTotal replaces the server-computed total, to prove the client
	// caches the response and not its own patch.
	updateTotal *core.Number
}

func newFake() *fakeBackend {
	return &fakeBackend{prices: map[string][]core.PriceEntry{}, calls: map[string]int{}}
}

func (f *fakeBackend) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) find(id string) int {
	for i := range f.rows {
		if f.rows[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(op string) error {
	return &api.StatusError{Op: op, StatusCode: http.StatusNotFound, Message: "Row not found"}
}

func (f *fakeBackend) ListRows(context.Context) ([]core.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list"]++
	return append([]core.Row(nil), f.rows...), nil
}

func (f *fakeBackend) CreateRow(_ context.Context, p core.RowPatch) (core.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++
	if f.createErr != nil {
		return core.Row{}, f.createErr
	}
	f.seq++
	r := core.Row{ID: fmt.Sprintf("row-%d", f.seq), Currency: core.DefaultCurrency}
	p.ApplyTo(&r)
	r.Total = core.Number(core.RowTotal(r).InexactFloat64())
	f.rows = append(f.rows, r)
	return r, nil
}

func (f *fakeBackend) UpdateRow(_ context.Context, id string, p core.RowPatch) (core.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	if f.updateErr != nil {
		return core.Row{}, f.updateErr
	}
	i := f.find(id)
	if i < 0 {
		return core.Row{}, notFound("update row")
	}
	if !f.rows[i].Editable() {
		return core.Row{}, &api.StatusError{Op: "update row", StatusCode: http.StatusBadRequest, Message: "PDF required before editing this row"}
	}
	p.ApplyTo(&f.rows[i])
	f.rows[i].Total = core.Number(core.RowTotal(f.rows[i]).InexactFloat64())
	if f.updateTotal != nil {
		f.rows[i].Total = *f.updateTotal
	}
	f.rows[i].Version++
	return f.rows[i], nil
}

func (f *fakeBackend) UploadFile(_ context.Context, id, name string, _ []byte) (core.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["upload"]++
	if f.uploadErr != nil {
		return core.Row{}, f.uploadErr
	}
	i := f.find(id)
	if i < 0 {
		return core.Row{}, notFound("upload file")
	}
	f.rows[i].FileName = name
	f.rows[i].StoredFileName = id + "_1.pdf"
	f.rows[i].FilePath = "/static/uploads/" + id + "_1.pdf"
	// Extracted fields overwrite the row, as the server does.
	f.rows[i].OCRText = "Item: Widget A\nQuantity: 2\nUnit Cost: 123.45\nVendor: ACME"
	f.rows[i].Description = "Widget A"
	f.rows[i].Quantity = 2
	f.rows[i].UnitCost = 123.45
	f.rows[i].Vendor = "ACME"
	f.rows[i].Total = core.Number(core.RowTotal(f.rows[i]).InexactFloat64())
	return f.rows[i], nil
}

func (f *fakeBackend) RunOCR(_ context.Context, id string) (core.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ocr"]++
	i := f.find(id)
	if i < 0 {
		return core.Row{}, notFound("run ocr")
	}
	if !f.rows[i].Editable() {
		return core.Row{}, &api.StatusError{Op: "run ocr", StatusCode: http.StatusBadRequest, Message: "there is no stored pdf for this"}
	}
	r := f.rows[i]
	r.OCRText = ""
	r.OCRWarning = "No text recognized"
	return r, nil
}

func (f *fakeBackend) DeleteRow(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	if f.deleteStatus != 0 && f.deleteStatus != http.StatusNoContent {
		return &api.StatusError{Op: "delete row", StatusCode: f.deleteStatus}
	}
	i := f.find(id)
	if i < 0 {
		return notFound("delete row")
	}
	f.rows = append(f.rows[:i], f.rows[i+1:]...)
	return nil
}

func (f *fakeBackend) ListPrices(_ context.Context, id string) ([]core.PriceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["prices"]++
	return append([]core.PriceEntry(nil), f.prices[id]...), nil
}

func (f *fakeBackend) AddPrice(_ context.Context, id string, e core.PriceEntry) (core.PriceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["addprice"]++
	f.prices[id] = append(f.prices[id], e)
	return e, nil
}

func (f *fakeBackend) DeletePrice(_ context.Context, id string, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delprice"]++
	if f.priceDelErr != nil {
		return f.priceDelErr
	}
	h := f.prices[id]
	if index < 0 || index >= len(h) {
		return &api.StatusError{Op: "delete price", StatusCode: http.StatusBadRequest, Message: "Index out of range"}
	}
	f.prices[id] = append(h[:index:index], h[index+1:]...)
	return nil
}

func (f *fakeBackend) Audit(context.Context) (core.AuditSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return core.AuditSummary{Items: len(f.rows)}, nil
}

func (f *fakeBackend) SamplePDF(context.Context) ([]byte, error) {
	if f.sampleErr != nil {
		return nil, f.sampleErr
	}
	return []byte("%PDF-1.3 sample"), nil
}
