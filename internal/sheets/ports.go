package sheets

import (
	"context"
	"time"

	"billtrack/internal/core"
)

// LedgerHeader names the ledger columns in the order Values emits them.
var LedgerHeader = []any{
	"Recorded At", "Row ID", "Version", "Op", "Date", "Description",
	"Vendor", "Category", "Quantity", "Unit Cost", "Total", "Payment Status",
}

// LedgerEntry is one line of the change ledger: the state of a row right
// after a change. Deleted rows carry only their id.
type LedgerEntry struct {
	RecordedAt time.Time
	RowID      string
	Version    int64
	Op         string
	Row        *core.Row
}

// Values renders the entry as a spreadsheet row matching LedgerHeader.
func (e LedgerEntry) Values() []any {
	out := []any{e.RecordedAt.UTC().Format(time.RFC3339), e.RowID, e.Version, e.Op}
	if e.Row == nil {
		return append(out, "", "", "", "", "", "", "", "")
	}
	r := e.Row
	return append(out,
		r.Date,
		r.Description,
		r.Vendor,
		r.Category,
		r.Quantity.Float64(),
		r.UnitCost.Float64(),
		core.RoundMoney(r.Total.Decimal()).InexactFloat64(),
		r.PaymentStatus,
	)
}

// Ports for outbound adapters.
type (
	// LedgerWriter appends entries to an external ledger and returns a
	// reference to where the entry landed.
	LedgerWriter interface {
		AppendEntry(ctx context.Context, e LedgerEntry) (ref string, err error)
	}

	// LedgerReader lists what has been written so far.
	LedgerReader interface {
		Entries(ctx context.Context) ([]LedgerEntry, error)
	}
)
