// Package report renders the PDF documents served by the backend: the audit
// report and the sample invoice used to exercise OCR.
package report

import (
	"bytes"
	"fmt"
	"time"

	"billtrack/internal/core"

	"github.com/jung-kurt/gofpdf"
)

const Title = "External Report (Generated)"

// FileName returns the attachment name for a report generated at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("report_%s.pdf", now.UTC().Format("20060102_150405"))
}

// Render draws the audit summary followed by a table of rows.
func Render(rows []core.Row, summary core.AuditSummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("External Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, Title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 9, "Audit Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range summaryLines(summary) {
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 9, "Table Data", "", 1, "L", false, 0, "")

	widths := []float64{10, 80, 25, 30, 30}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(211, 211, 211)
	for i, h := range []string{"#", "Description", "Quantity", "Unit Cost", "Total"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for i, r := range rows {
		cells := []string{
			fmt.Sprint(i + 1),
			tr(r.Description),
			r.Quantity.Decimal().String(),
			r.UnitCost.Decimal().String(),
			r.Total.Decimal().String(),
		}
		for j, c := range cells {
			align := "R"
			if j < 2 {
				align = "L"
			}
			pdf.CellFormat(widths[j], 7, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return out.Bytes(), nil
}

func summaryLines(s core.AuditSummary) []string {
	lines := []string{
		fmt.Sprintf("items: %d", s.Items),
		fmt.Sprintf("grandTotal: %s", s.GrandTotal.Decimal().String()),
		fmt.Sprintf("average: %s", s.Average.Decimal().String()),
	}
	if s.GeneratedAt != "" {
		lines = append(lines, "generatedAt: "+s.GeneratedAt)
	}
	return lines
}
