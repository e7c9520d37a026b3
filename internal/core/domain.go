package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Row defaults applied by the backend on create.
const (
	DefaultCategory      = "General"
	DefaultCurrency      = "USD"
	DefaultStatus        = "Pending"
	DefaultPriority      = "Normal"
	DefaultPaymentStatus = "Unpaid"
)

type (
	// Row is one billing or maintenance line item. Total is owned by the
	// server and is never recomputed client-side for persistence.
	Row struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Date        string `json:"date"`
		Quantity    Number `json:"quantity"`
		UnitCost    Number `json:"unitCost"`
		Total       Number `json:"total"`

		Category        string `json:"category"`
		Vendor          string `json:"vendor"`
		Building        string `json:"building"`
		Floor           string `json:"floor"`
		Room            string `json:"room"`
		MaintenanceType string `json:"maintenanceType"`
		Priority        string `json:"priority"`
		AssignedTo      string `json:"assignedTo"`
		DueDate         string `json:"dueDate"`
		ServiceProvider string `json:"serviceProvider"`
		InvoiceNumber   string `json:"invoiceNumber"`
		PaymentStatus   string `json:"paymentStatus"`
		WarrantyExpiry  string `json:"warrantyExpiry"`
		Currency        string `json:"currency"`
		TaxRate         Number `json:"taxRate"`
		Discount        Number `json:"discount"`
		Status          string `json:"status"`
		Notes           string `json:"notes"`

		OCRText        string `json:"ocrText"`
		OCRWarning     string `json:"ocrWarning,omitempty"`
		FileName       string `json:"fileName"`
		FilePath       string `json:"filePath"`
		StoredFileName string `json:"storedFileName"`

		// Version is bumped by the backend on every mutation. Clients do not
		// send it back; the server stays last-writer-wins.
		Version int64 `json:"version,omitempty"`
	}

	// PriceEntry is one observation in a row's price history. Entries are
	// addressed by their position in the list.
	PriceEntry struct {
		Date  string `json:"date"`
		Price Number `json:"price"`
	}

	// AuditSummary is the server-computed aggregate over all rows.
	AuditSummary struct {
		Items       int    `json:"items"`
		GrandTotal  Number `json:"grandTotal"`
		Average     Number `json:"average"`
		GeneratedAt string `json:"generatedAt,omitempty"`
	}
)

var (
	ErrMissingFile      = errors.New("a PDF file is required")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrInvalidUnitCost  = errors.New("unit cost must be greater than zero")
	ErrEmptyVendor      = errors.New("empty vendor")
	ErrPriceRequired    = errors.New("price is required")
	ErrDateRequired     = errors.New("date is required")
	ErrUnknownField     = errors.New("unknown field")
)

// Editable reports whether the row has a stored PDF. Rows without one are
// read-only until a file is uploaded.
func (r Row) Editable() bool {
	return strings.TrimSpace(r.StoredFileName) != ""
}

// PreviewTotal is quantity × unit cost, for display while an edit is in
// flight. It is never sent to the server.
func (r Row) PreviewTotal() decimal.Decimal {
	return r.Quantity.Decimal().Mul(r.UnitCost.Decimal())
}

// OCRDisplay returns the OCR text, the server warning, or a fallback.
func (r Row) OCRDisplay() string {
	if r.OCRText != "" {
		return r.OCRText
	}
	if r.OCRWarning != "" {
		return r.OCRWarning
	}
	return "No OCR text recognized."
}

// OCRTitle returns the uploaded file name or a generic title.
func (r Row) OCRTitle() string {
	if r.FileName != "" {
		return r.FileName
	}
	return "OCR Result"
}

// NewPriceEntry validates user input for a price history entry.
func NewPriceEntry(date, price string) (PriceEntry, error) {
	var errs []error
	date = strings.TrimSpace(date)
	if date == "" {
		errs = append(errs, ErrDateRequired)
	}
	var n Number
	if strings.TrimSpace(price) == "" {
		errs = append(errs, ErrPriceRequired)
	} else {
		var err error
		if n, err = ParseNumber(price); err != nil {
			errs = append(errs, fmt.Errorf("price: %w", err))
		}
	}
	if len(errs) > 0 {
		return PriceEntry{}, errors.Join(errs...)
	}
	return PriceEntry{Date: date, Price: n}, nil
}

// Line renders the summary the way it is read aloud in the audit dialog.
func (a AuditSummary) Line() string {
	return fmt.Sprintf("Items: %d. Grand Total: %s. Average per item: %s.",
		a.Items, FormatMoney(a.GrandTotal.Decimal()), FormatMoney(a.Average.Decimal()))
}
