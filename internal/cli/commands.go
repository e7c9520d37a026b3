package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"billtrack/internal/core"
	applog "billtrack/internal/log"
	"billtrack/internal/rowsync"
)

type command struct {
	usage   string
	summary string
	minArgs int
	run     func(r *REPL, ctx context.Context, args []string) error
}

var commandOrder = []string{
	"list", "show", "add", "edit", "upload", "ocr", "delete",
	"prices", "addprice", "delprice", "totals", "audit", "report", "samples",
}

var commands = map[string]command{
	"list":     {"list", "list all rows", 0, (*REPL).cmdList},
	"show":     {"show N", "show every field of row N", 1, (*REPL).cmdShow},
	"add":      {"add", "create a row interactively", 0, (*REPL).cmdAdd},
	"edit":     {"edit N field=value...", "update fields of row N", 2, (*REPL).cmdEdit},
	"upload":   {"upload N path", "attach a PDF to row N", 2, (*REPL).cmdUpload},
	"ocr":      {"ocr N", "re-run OCR on row N", 1, (*REPL).cmdOCR},
	"delete":   {"delete N", "delete row N", 1, (*REPL).cmdDelete},
	"prices":   {"prices N", "show the price history of row N", 1, (*REPL).cmdPrices},
	"addprice": {"addprice N date price", "record a price for row N", 3, (*REPL).cmdAddPrice},
	"delprice": {"delprice N index", "remove a price entry of row N", 2, (*REPL).cmdDelPrice},
	"totals":   {"totals", "grand total and groupings", 0, (*REPL).cmdTotals},
	"audit":    {"audit", "fetch the audit summary", 0, (*REPL).cmdAudit},
	"report":   {"report [path]", "download the PDF report", 0, (*REPL).cmdReport},
	"samples":  {"samples", "load the demo rows", 0, (*REPL).cmdSamples},
}

func money(n core.Number) string {
	return core.FormatMoney(n.Decimal())
}

func (r *REPL) cmdList(_ context.Context, _ []string) error {
	rows := r.store.Rows()
	if len(rows) == 0 {
		r.println("No rows.")
		return nil
	}
	for i, row := range rows {
		marker := " "
		if row.Editable() {
			marker = "*"
		}
		r.printf("%3d.%s %-32s %-24s %12s", i+1, marker, trunc(row.Description, 32), trunc(row.Vendor, 24), money(row.Total))
	}
	r.printf("Grand total: %s   (* has a stored PDF)", r.store.Totals().GrandTotalString())
	return nil
}

func trunc(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "~"
}

func (r *REPL) cmdShow(_ context.Context, args []string) error {
	row, err := r.rowAt(args[0])
	if err != nil {
		return err
	}
	r.printf("id: %s", row.ID)
	for _, f := range core.EditableFields {
		if v, _ := row.Get(f); v != "" {
			r.printf("%s: %s", f, v)
		}
	}
	r.printf("total: %s", money(row.Total))
	if row.Editable() {
		r.printf("file: %s (%s)", row.FileName, row.FilePath)
	} else {
		r.println("file: none (upload a PDF to enable editing)")
	}
	if row.OCRText != "" {
		r.println("ocr text:")
		r.println(row.OCRText)
	}
	return nil
}

// cmdAdd stages a draft from prompts and creates it once it validates.
func (r *REPL) cmdAdd(ctx context.Context, _ []string) error {
	d := core.NewDraft()
	for _, f := range []string{"description", "quantity", "unitCost", "vendor", "category", "date"} {
		v, ok := r.prompt(f + ": ")
		if !ok {
			return fmt.Errorf("add cancelled")
		}
		if v != "" {
			if err := d.Set(f, v); err != nil {
				return err
			}
		}
	}
	if preview, ok := previewTotal(d); ok {
		r.printf("Preview total: %s", preview)
	}

	path, ok := r.prompt("pdf path: ")
	if !ok {
		return fmt.Errorf("add cancelled")
	}
	if path != "" {
		data, err := r.readFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		d.Attach(filepath.Base(path), data)
	}

	row, err := r.store.Create(ctx, d)
	if row.ID != "" {
		r.printf("Created row %d: %s (%s)", r.store.Len(), row.Description, money(row.Total))
	}
	return err
}

func previewTotal(d *core.Draft) (string, bool) {
	q, err1 := core.ParseNumber(d.Get("quantity"))
	c, err2 := core.ParseNumber(d.Get("unitCost"))
	if err1 != nil || err2 != nil {
		return "", false
	}
	return core.FormatMoney(core.Row{Quantity: q, UnitCost: c}.PreviewTotal()), true
}

func (r *REPL) cmdEdit(ctx context.Context, args []string) error {
	row, err := r.rowAt(args[0])
	if err != nil {
		return err
	}
	var p core.RowPatch
	for _, kv := range args[1:] {
		field, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("%w: expected field=value, got %q", ErrUsage, kv)
		}
		if err := p.Set(field, value); err != nil {
			return err
		}
	}
	updated, err := r.store.Update(ctx, row.ID, p)
	if err != nil {
		return err
	}
	r.printf("Updated %s: total %s", updated.Description, money(updated.Total))
	return nil
}

func (r *REPL) cmdUpload(ctx context.Context, args []string) error {
	row, err := r.rowAt(args[0])
	if err != nil {
		return err
	}
	data, err := r.readFile(args[1])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[1], err)
	}
	res, err := r.store.Upload(ctx, row.ID, filepath.Base(args[1]), data)
	if err != nil {
		return err
	}
	r.printOCR(res)
	return nil
}

func (r *REPL) cmdOCR(ctx context.Context, args []string) error {
	row, err := r.rowAt(args[0])
	if err != nil {
		return err
	}
	res, err := r.store.RunOCR(ctx, row.ID)
	if err != nil {
		return fmt.Errorf("OCR failed: %s", describe(err))
	}
	r.printOCR(res)
	return nil
}

func (r *REPL) printOCR(res rowsync.OCRResult) {
	r.printf("== %s ==", res.Title)
	r.println(res.Text)
}

func (r *REPL) cmdDelete(ctx context.Context, args []string) error {
	row, err := r.rowAt(args[0])
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, row.ID); err != nil {
		return err
	}
	r.printf("Deleted %s", row.Description)
	return nil
}

func (r *REPL) printPrices(entries []core.PriceEntry) {
	if len(entries) == 0 {
		r.println("No price history.")
		return
	}
	for i, e := range entries {
		r.printf("%3d  %-10s %12s", i, e.Date, money(e.Price))
	}
}

func (r *REPL) cmdPrices(ctx context.Context, args []string) error {
	row, err := r.rowAt(args[0])
	if err != nil {
		return err
	}
	entries, err := r.store.Prices(ctx, row.ID)
	if err != nil {
		return err
	}
	r.printPrices(entries)
	return nil
}

func (r *REPL) cmdAddPrice(ctx context.Context, args []string) error {
	row, err := r.rowAt(args[0])
	if err != nil {
		return err
	}
	entries, err := r.store.AddPrice(ctx, row.ID, args[1], args[2])
	if err != nil {
		return err
	}
	r.printPrices(entries)
	return nil
}

func (r *REPL) cmdDelPrice(ctx context.Context, args []string) error {
	row, err := r.rowAt(args[0])
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("price index expected, got %q", args[1])
	}
	entries, err := r.store.DeletePrice(ctx, row.ID, index)
	if err != nil {
		return err
	}
	r.printPrices(entries)
	return nil
}

func (r *REPL) cmdTotals(_ context.Context, _ []string) error {
	t := r.store.Totals()
	r.printf("Grand total: %s", t.GrandTotalString())
	for i, label := range t.Labels {
		r.printf("  %-8s %12s", label, core.FormatMoney(t.RowTotals[i]))
	}
	r.println("By category:")
	for _, c := range t.ByCategory {
		r.printf("  %-24s %12s", c.Name, core.FormatMoney(c.Amount))
	}
	r.println("By vendor:")
	for _, v := range t.ByVendor {
		r.printf("  %-24s %12s", v.Name, core.FormatMoney(v.Amount))
	}
	return nil
}

func (r *REPL) cmdAudit(ctx context.Context, _ []string) error {
	summary, err := r.store.Audit(ctx)
	if err != nil {
		return err
	}
	r.println(summary.Line())
	if summary.GeneratedAt != "" {
		r.printf("Generated at %s", summary.GeneratedAt)
	}
	return nil
}

func (r *REPL) cmdReport(ctx context.Context, args []string) error {
	if r.reports == nil {
		return fmt.Errorf("reports are not available")
	}
	path := r.reportPath
	if len(args) > 0 {
		path = args[0]
	}
	rep, err := r.reports.Report(ctx, nil)
	if err != nil {
		return err
	}
	if err := r.writeFile(path, rep.Data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	r.logger.InfoContext(ctx, "Report saved", "path", path, "name", rep.Name, "bytes", len(rep.Data))
	r.printf("Report saved to %s (%s)", path, rep.Name)
	return nil
}

func (r *REPL) cmdSamples(ctx context.Context, _ []string) error {
	n, err := r.store.LoadSamples(ctx)
	r.printf("Loaded %d sample rows.", n)
	if err != nil {
		r.logger.WarnContext(ctx, "Sample load incomplete", applog.FieldRowCount, n, applog.FieldError, err)
	}
	return err
}
