package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fallback group names for rows with a blank category or vendor.
const (
	FallbackCategory = "General"
	FallbackVendor   = "Unknown"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Totals holds the derived chart inputs for a row collection.
type Totals struct {
	GrandTotal decimal.Decimal
	Labels     []string
	RowTotals  []decimal.Decimal
	ByCategory []CategoryAmount
	ByVendor   []CategoryAmount
}

// ComputeTotals derives the grand total, the per-row series and the
// category and vendor groupings from the server-reported row totals.
// Groups keep the order in which their names first appear.
func ComputeTotals(rows []Row) Totals {
	t := Totals{
		GrandTotal: decimal.Zero,
		Labels:     make([]string, 0, len(rows)),
		RowTotals:  make([]decimal.Decimal, 0, len(rows)),
	}
	for i, r := range rows {
		total := r.Total.Decimal()
		t.Labels = append(t.Labels, fmt.Sprintf("Row %d", i+1))
		t.RowTotals = append(t.RowTotals, total)
		t.GrandTotal = t.GrandTotal.Add(total)
	}
	t.ByCategory = groupTotals(rows, func(r Row) string { return r.Category }, FallbackCategory)
	t.ByVendor = groupTotals(rows, func(r Row) string { return r.Vendor }, FallbackVendor)
	return t
}

// GrandTotalString is the money-formatted grand total ("0.00" when empty).
func (t Totals) GrandTotalString() string {
	return FormatMoney(t.GrandTotal)
}

func groupTotals(rows []Row, key func(Row) string, fallback string) []CategoryAmount {
	out := make([]CategoryAmount, 0)
	index := map[string]int{}
	for _, r := range rows {
		name := key(r)
		if strings.TrimSpace(name) == "" {
			name = fallback
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, CategoryAmount{Name: name, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(r.Total.Decimal())
	}
	return out
}

// RowTotal is the server-side total: quantity × unit cost, plus tax
// percentage, minus discount, clamped at zero and rounded to cents.
func RowTotal(r Row) decimal.Decimal {
	subtotal := r.Quantity.Decimal().Mul(r.UnitCost.Decimal())
	taxed := subtotal.Mul(decimal.NewFromInt(1).Add(r.TaxRate.Decimal().Div(decimal.NewFromInt(100))))
	total := taxed.Sub(r.Discount.Decimal())
	if total.IsNegative() {
		return decimal.Zero
	}
	return RoundMoney(total)
}

// ComputeAudit summarizes rows. Items counts rows that carry a description,
// a quantity or a unit cost; empty placeholder rows still add their total.
func ComputeAudit(rows []Row, now time.Time) AuditSummary {
	items := 0
	grand := decimal.Zero
	for _, r := range rows {
		if strings.TrimSpace(r.Description) != "" || r.Quantity != 0 || r.UnitCost != 0 {
			items++
		}
		grand = grand.Add(r.Total.Decimal())
	}
	grand = RoundMoney(grand)
	avg := decimal.Zero
	if items > 0 {
		avg = RoundMoney(grand.Div(decimal.NewFromInt(int64(items))))
	}
	return AuditSummary{
		Items:       items,
		GrandTotal:  Number(grand.InexactFloat64()),
		Average:     Number(avg.InexactFloat64()),
		GeneratedAt: AuditTimestamp(now),
	}
}

// AuditTimestamp formats t as UTC with microseconds and a trailing Z.
func AuditTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000") + "Z"
}
