package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"billtrack/internal/api"
	"billtrack/internal/core"
	apphttp "billtrack/internal/http"
	applog "billtrack/internal/log"
	"billtrack/internal/report"
	"billtrack/internal/rowsync"
	"billtrack/internal/services"
	"billtrack/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoiceText = "Item: Widget A\nQuantity: 2\nUnit Cost: 123.45\nVendor: ACME"

type harness struct {
	repl   *REPL
	out    *bytes.Buffer
	client *api.Client
	dir    string
}

// newHarness runs the REPL against the real server stack over HTTP.
func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	quiet := applog.NewText(&bytes.Buffer{}, slog.LevelError, applog.ComponentCLI)

	dir := t.TempDir()
	static := filepath.Join(dir, "static")
	files, err := storage.NewUploadDir(filepath.Join(static, "uploads"))
	require.NoError(t, err)
	_, err = report.EnsureSample(static, time.Now())
	require.NoError(t, err)

	svc := services.NewRowService(storage.NewMemoryRepository(), files,
		services.WithLogger(quiet),
		services.WithExtractor(func([]byte) (string, error) { return invoiceText, nil }))
	srv := apphttp.NewServer(":0", svc, apphttp.Options{StaticDir: static, Logger: quiet})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})

	client, err := api.New(api.Config{BaseURL: ts.URL, Logger: quiet})
	require.NoError(t, err)

	h := &harness{out: &bytes.Buffer{}, client: client, dir: dir}
	h.repl = NewREPL(rowsync.New(client, quiet), Options{
		Reports:    client,
		Activity:   client.Tracker(),
		ReportPath: filepath.Join(dir, "external_report.pdf"),
		In:         strings.NewReader(input),
		Out:        h.out,
		Logger:     quiet,
	})
	return h
}

func (h *harness) writePDF(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4 test"), 0o644))
	return p
}

func script(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestAddEditAndDelete(t *testing.T) {
	h := newHarness(t, "")
	pdf := h.writePDF(t, "chair.pdf")
	h.repl.in = bufio.NewScanner(strings.NewReader(script(
		"add",
		"Office Chair", "2", "10", "OfficeMax", "", "",
		pdf,
		"list",
		"edit 1 quantity=3 notes=urgent",
		"totals",
		"delete 1",
		"list",
		"exit",
	)))

	require.NoError(t, h.repl.Run(context.Background()))
	out := h.out.String()

	assert.Contains(t, out, "Loaded 0 rows.")
	assert.Contains(t, out, "Preview total: 20.00")
	// Typed values win over the fields extracted from the upload.
	assert.Contains(t, out, "Created row 1: Office Chair (20.00)")
	assert.NotContains(t, out, "Widget A (")
	assert.Contains(t, out, "Updated Office Chair: total 30.00")
	assert.Contains(t, out, "Grand total: 30.00")
	assert.Contains(t, out, "Deleted Office Chair")
	assert.Contains(t, out, "No rows.")
	assert.Contains(t, out, "... working")
}

func TestAddInvalidDraftReportsEveryProblem(t *testing.T) {
	h := newHarness(t, script("add", "", "0", "", "", "", "", "", "exit"))
	require.NoError(t, h.repl.Run(context.Background()))
	out := h.out.String()
	assert.Contains(t, out, "a PDF file is required")
	assert.Contains(t, out, "empty description")
	assert.Contains(t, out, "quantity must be greater than zero")
	assert.Contains(t, out, "empty vendor")
	assert.Equal(t, 0, h.repl.store.Len())
}

func TestRowsWithoutPDF(t *testing.T) {
	h := newHarness(t, script("edit 1 description=x", "ocr 1", "show 1", "exit"))
	_, err := h.client.CreateRow(context.Background(), core.RowPatch{})
	require.NoError(t, err)

	require.NoError(t, h.repl.Run(context.Background()))
	out := h.out.String()
	assert.Contains(t, out, "Error: "+rowsync.ErrNotEditable.Error())
	assert.Contains(t, out, "OCR failed: there is no stored pdf for this")
	assert.Contains(t, out, "file: none")
}

func TestUploadAndPrices(t *testing.T) {
	h := newHarness(t, "")
	pdf := h.writePDF(t, "bill.pdf")
	h.repl.in = bufio.NewScanner(strings.NewReader(script(
		"upload 1 "+pdf,
		"addprice 1 2024-01-01 9.99",
		"addprice 1 2024-02-01 12",
		"addprice 1 2024-03-01",
		"delprice 1 0",
		"prices 1",
		"exit",
	)))
	_, err := h.client.CreateRow(context.Background(), core.RowPatch{})
	require.NoError(t, err)

	require.NoError(t, h.repl.Run(context.Background()))
	out := h.out.String()
	assert.Contains(t, out, "== bill.pdf ==")
	assert.Contains(t, out, "Item: Widget A")
	assert.Contains(t, out, "usage: addprice N date price")
	assert.Contains(t, out, "2024-02-01")
	assert.Regexp(t, `0\s+2024-02-01\s+12\.00`, out)
}

func TestAuditReportAndSamples(t *testing.T) {
	h := newHarness(t, script("samples", "audit", "report", "exit"))
	require.NoError(t, h.repl.Run(context.Background()))
	out := h.out.String()

	assert.Contains(t, out, "Loaded 8 sample rows.")
	assert.Contains(t, out, "Items: 8. Grand Total:")
	assert.Contains(t, out, "Report saved to "+h.repl.reportPath)

	data, err := os.ReadFile(h.repl.reportPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestExecute(t *testing.T) {
	h := newHarness(t, "")
	var lines []string
	h.repl.printlnFn = func(a ...any) { lines = append(lines, fmt.Sprint(a...)) }
	ctx := context.Background()

	quit, err := h.repl.Execute(ctx, "help")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, "Commands:", lines[0])
	assert.Len(t, lines, len(commandOrder)+3)

	for _, blank := range []string{"", "   ", "\t"} {
		quit, err = h.repl.Execute(ctx, blank)
		assert.ErrorIs(t, err, ErrUsage, "line %q", blank)
		assert.False(t, quit)
	}

	_, err = h.repl.Execute(ctx, "frobnicate")
	assert.ErrorContains(t, err, "unknown command")

	_, err = h.repl.Execute(ctx, "show")
	assert.True(t, errors.Is(err, ErrUsage))

	_, err = h.repl.Execute(ctx, "show 3")
	assert.ErrorIs(t, err, rowsync.ErrUnknownRow)

	quit, err = h.repl.Execute(ctx, "EXIT")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestDescribe(t *testing.T) {
	err := fmt.Errorf("delete row: %w", &api.StatusError{Op: "delete row", StatusCode: 404, Message: "Row not found"})
	assert.Equal(t, "Row not found", describe(err))
	assert.Equal(t, "a; b", describe(errors.Join(errors.New("a"), errors.New("b"))))
}
