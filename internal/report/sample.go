package report

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// SampleFileName is the sample invoice served from the static directory.
const SampleFileName = "test.pdf"

// SampleLines are printed on the sample invoice in this order.
func SampleLines(now time.Time) []string {
	return []string{
		"Generated: " + now.UTC().Format("2006-01-02T15:04:05") + "Z",
		"Item: Widget A",
		"Quantity: 2",
		"Unit Cost: 123.45",
		"Total: 246.90",
		"Notes: This PDF is intended for OCR testing.",
	}
}

// SamplePDF renders a one-page invoice extract with a text layer.
func SamplePDF(now time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle("Invoice / Receipt Extract", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Text(72, 72, "Invoice / Receipt Extract")

	pdf.SetFont("Helvetica", "", 12)
	y := 108.0
	for _, line := range SampleLines(now) {
		pdf.Text(72, y, line)
		y += 18
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("render sample: %w", err)
	}
	return out.Bytes(), nil
}

// EnsureSample writes the sample invoice into dir unless it already exists.
// It reports whether a file was created.
func EnsureSample(dir string, now time.Time) (bool, error) {
	path := filepath.Join(dir, SampleFileName)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat sample: %w", err)
	}

	data, err := SamplePDF(now)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("create static directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("write sample: %w", err)
	}
	return true, nil
}
