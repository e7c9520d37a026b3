package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"billtrack/internal/amqp"
	"billtrack/internal/cache"
	"billtrack/internal/core"
	applog "billtrack/internal/log"
	"billtrack/internal/ocr"
	"billtrack/internal/report"
	"billtrack/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotEditable      = errors.New("PDF required before editing this row")
	ErrNoStoredPDF      = errors.New("there is no stored pdf for this")
	ErrStoredPDFMissing = errors.New("pdf store not found on server")
	ErrEmptyUpload      = errors.New("no file")
)

// NoTextWarning is attached to a row when its PDF has no recognizable text.
const NoTextWarning = "No text recognized. The PDF may be a scan without a text layer."

// EventPublisher announces row changes. Publishing is best effort.
type EventPublisher interface {
	PublishRowEvent(ctx context.Context, id string, version int64, op string) error
}

// FileStore keeps uploaded PDFs.
type FileStore interface {
	Save(name string, data []byte) error
	Read(name string) ([]byte, error)
}

// ChartData is the per-row series plus category totals.
type ChartData struct {
	Labels     []string               `json:"labels"`
	Totals     []core.Number          `json:"totals"`
	ByCategory map[string]core.Number `json:"byCategory"`
}

// RowService owns the backend rules for rows: defaults, totals, the
// editable gate, uploads with text extraction, and price history.
// Mutations publish a change event when a publisher is configured.
type RowService struct {
	repo      storage.Repository
	files     FileStore
	publisher EventPublisher
	extract   func([]byte) (string, error)
	logger    *applog.Logger
	events    *applog.StructuredLogger
	now       func() time.Time

	audits *cache.LRUCache[core.AuditSummary]
	charts *cache.LRUCache[ChartData]
}

type Option func(*RowService)

func WithPublisher(p EventPublisher) Option {
	return func(s *RowService) { s.publisher = p }
}

func WithExtractor(fn func([]byte) (string, error)) Option {
	return func(s *RowService) { s.extract = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *RowService) { s.now = now }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *RowService) { s.logger = l }
}

const derivedTTL = 5 * time.Minute

func NewRowService(repo storage.Repository, files FileStore, opts ...Option) *RowService {
	s := &RowService{
		repo:    repo,
		files:   files,
		extract: ocr.ExtractText,
		now:     time.Now,
		audits:  cache.NewLRUCache[core.AuditSummary](1, derivedTTL),
		charts:  cache.NewLRUCache[ChartData](1, derivedTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(applog.ComponentAPI)
	s.events = applog.NewStructuredLogger(s.logger)
	return s
}

// Caches exposes the derived-data caches for periodic cleanup.
func (s *RowService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.audits, s.charts}
}

// ComputeTotal is quantity × unit cost with tax applied, minus discount,
// clamped at zero and rounded to cents.
func ComputeTotal(r core.Row) core.Number {
	gross := r.Quantity.Decimal().Mul(r.UnitCost.Decimal())
	taxed := gross.Mul(decimal.NewFromInt(1).Add(r.TaxRate.Decimal().Div(decimal.NewFromInt(100))))
	total := taxed.Sub(r.Discount.Decimal())
	if total.IsNegative() {
		total = decimal.Zero
	}
	return core.Number(core.RoundMoney(total).InexactFloat64())
}

func (s *RowService) ListRows(ctx context.Context) ([]core.Row, error) {
	return s.repo.ListRows(ctx)
}

func (s *RowService) GetRow(ctx context.Context, id string) (core.Row, error) {
	return s.repo.GetRow(ctx, id)
}

// CreateRow applies the create defaults, then the patch, and stores the
// row with a fresh id.
func (s *RowService) CreateRow(ctx context.Context, p core.RowPatch) (core.Row, error) {
	row := core.Row{
		ID:            uuid.NewString(),
		Date:          s.now().UTC().Format(time.DateOnly),
		Category:      core.DefaultCategory,
		Currency:      core.DefaultCurrency,
		Status:        core.DefaultStatus,
		Priority:      core.DefaultPriority,
		PaymentStatus: core.DefaultPaymentStatus,
		Version:       1,
	}
	p.ApplyTo(&row)
	row.Total = ComputeTotal(row)

	if err := s.repo.InsertRow(ctx, row); err != nil {
		return core.Row{}, fmt.Errorf("create row: %w", err)
	}
	s.changed(ctx, row, amqp.OpCreate)
	return row, nil
}

// UpdateRow applies an editable-field patch to a row that has a stored PDF.
func (s *RowService) UpdateRow(ctx context.Context, id string, p core.RowPatch) (core.Row, error) {
	row, err := s.repo.GetRow(ctx, id)
	if err != nil {
		return core.Row{}, err
	}
	if !row.Editable() {
		return core.Row{}, ErrNotEditable
	}
	p.ApplyTo(&row)
	return s.save(ctx, row, amqp.OpUpdate)
}

func (s *RowService) DeleteRow(ctx context.Context, id string) error {
	row, err := s.repo.GetRow(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRow(ctx, id); err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	s.changed(ctx, core.Row{ID: id, Version: row.Version + 1}, amqp.OpDelete)
	return nil
}

// Upload stores a PDF for the row, extracts its text and merges the
// recognized fields into the row.
func (s *RowService) Upload(ctx context.Context, id, fileName string, data []byte) (core.Row, error) {
	if len(data) == 0 {
		return core.Row{}, ErrEmptyUpload
	}
	row, err := s.repo.GetRow(ctx, id)
	if err != nil {
		return core.Row{}, err
	}

	stored := fmt.Sprintf("%s_%s.pdf", id, strconv.FormatInt(s.now().Unix(), 10))
	if err := s.files.Save(stored, data); err != nil {
		return core.Row{}, fmt.Errorf("store upload: %w", err)
	}
	row.FileName = fileName
	row.StoredFileName = stored
	row.FilePath = "/static/uploads/" + stored

	text := s.extractText(ctx, id, data)
	s.applyText(&row, text)

	saved, err := s.save(ctx, row, amqp.OpUpload)
	if err != nil {
		return core.Row{}, err
	}
	saved.OCRWarning = row.OCRWarning
	return saved, nil
}

// RunOCR re-extracts the stored PDF of a row.
func (s *RowService) RunOCR(ctx context.Context, id string) (core.Row, error) {
	row, err := s.repo.GetRow(ctx, id)
	if err != nil {
		return core.Row{}, err
	}
	if strings.TrimSpace(row.StoredFileName) == "" {
		return core.Row{}, ErrNoStoredPDF
	}
	data, err := s.files.Read(row.StoredFileName)
	if errors.Is(err, storage.ErrFileMissing) {
		return core.Row{}, ErrStoredPDFMissing
	}
	if err != nil {
		return core.Row{}, err
	}

	text, err := s.extract(data)
	if err != nil {
		return core.Row{}, fmt.Errorf("ocr failed: %w", err)
	}
	s.applyText(&row, text)

	saved, err := s.save(ctx, row, amqp.OpOCR)
	if err != nil {
		return core.Row{}, err
	}
	saved.OCRWarning = row.OCRWarning
	return saved, nil
}

// extractText treats an unreadable upload like one without text; the file
// is kept so OCR can be re-run.
func (s *RowService) extractText(ctx context.Context, id string, data []byte) string {
	text, err := s.extract(data)
	if err != nil {
		s.logger.WarnContext(ctx, "Text extraction failed",
			applog.FieldRowID, id, applog.FieldError, err)
		return ""
	}
	return text
}

func (s *RowService) applyText(row *core.Row, text string) {
	row.OCRText = text
	row.OCRWarning = ""
	if strings.TrimSpace(text) == "" {
		row.OCRWarning = NoTextWarning
		return
	}
	fields := ocr.ParseFields(text)
	fields.ApplyTo(row)
}

func (s *RowService) ListPrices(ctx context.Context, id string) ([]core.PriceEntry, error) {
	return s.repo.ListPrices(ctx, id)
}

// AddPrice appends an entry, defaulting its date to today.
func (s *RowService) AddPrice(ctx context.Context, id string, e core.PriceEntry) (core.PriceEntry, error) {
	if strings.TrimSpace(e.Date) == "" {
		e.Date = s.now().UTC().Format(time.DateOnly)
	}
	if err := s.repo.AppendPrice(ctx, id, e); err != nil {
		return core.PriceEntry{}, err
	}
	return e, nil
}

func (s *RowService) DeletePrice(ctx context.Context, id string, index int) error {
	return s.repo.DeletePrice(ctx, id, index)
}

// Audit summarizes all rows. The aggregate is cached until the next
// mutation; GeneratedAt is stamped per call.
func (s *RowService) Audit(ctx context.Context) (core.AuditSummary, error) {
	summary, ok := s.audits.Get("audit")
	if !ok {
		rows, err := s.repo.ListRows(ctx)
		if err != nil {
			return core.AuditSummary{}, err
		}
		summary = core.ComputeAudit(rows, s.now())
		s.audits.Set("audit", summary)
	}
	summary.GeneratedAt = core.AuditTimestamp(s.now())
	return summary, nil
}

// Chart returns the per-row totals labelled "Row N" and totals by category.
func (s *RowService) Chart(ctx context.Context) (ChartData, error) {
	if data, ok := s.charts.Get("chart"); ok {
		return data, nil
	}
	rows, err := s.repo.ListRows(ctx)
	if err != nil {
		return ChartData{}, err
	}
	totals := core.ComputeTotals(rows)
	data := ChartData{
		Labels:     totals.Labels,
		Totals:     make([]core.Number, len(totals.RowTotals)),
		ByCategory: make(map[string]core.Number, len(totals.ByCategory)),
	}
	for i, t := range totals.RowTotals {
		data.Totals[i] = core.Number(t.InexactFloat64())
	}
	for _, c := range totals.ByCategory {
		data.ByCategory[c.Name] = core.Number(c.Amount.InexactFloat64())
	}
	s.charts.Set("chart", data)
	return data, nil
}

// ReportInput overrides the rows and summary rendered into a report.
type ReportInput struct {
	Rows    []core.Row         `json:"rows"`
	Summary *core.AuditSummary `json:"summary"`
}

// Report renders the PDF report and returns it with its file name.
func (s *RowService) Report(ctx context.Context, in ReportInput) ([]byte, string, error) {
	rows := in.Rows
	if rows == nil {
		var err error
		if rows, err = s.repo.ListRows(ctx); err != nil {
			return nil, "", err
		}
	}
	var summary core.AuditSummary
	if in.Summary != nil {
		summary = *in.Summary
	} else {
		var err error
		if summary, err = s.Audit(ctx); err != nil {
			return nil, "", err
		}
	}

	pdf, err := report.Render(rows, summary)
	if err != nil {
		return nil, "", err
	}
	s.logger.InfoContext(ctx, "Report generated", applog.FieldRowCount, len(rows), "bytes", len(pdf))
	return pdf, report.FileName(s.now()), nil
}

func (s *RowService) save(ctx context.Context, row core.Row, op string) (core.Row, error) {
	row.Total = ComputeTotal(row)
	row.Version++
	row.OCRWarning = ""
	if err := s.repo.SaveRow(ctx, row); err != nil {
		return core.Row{}, fmt.Errorf("save row: %w", err)
	}
	s.changed(ctx, row, op)
	return row, nil
}

// changed drops derived caches and publishes the change. A failed publish
// is logged; the row is already stored.
func (s *RowService) changed(ctx context.Context, row core.Row, op string) {
	s.audits.Purge()
	s.charts.Purge()

	s.events.LogRowChanged(ctx, op, row.ID, row.Version, row.Total.Decimal().StringFixed(2))

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRowEvent(ctx, row.ID, row.Version, op); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish row event",
			applog.FieldRowID, row.ID, applog.FieldRowVersion, row.Version, applog.FieldError, err)
	}
}
