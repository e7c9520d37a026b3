package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func validDraft() *Draft {
	d := NewDraft()
	_ = d.Set("description", "HVAC Filter Replacement")
	_ = d.Set("quantity", "4")
	_ = d.Set("unitCost", "32.50")
	_ = d.Set("vendor", "Climate Control Inc")
	d.Attach("invoice.pdf", []byte("%PDF-1.4"))
	return d
}

func TestDraftDefaults(t *testing.T) {
	d := NewDraft()
	want := map[string]string{
		"currency":      "USD",
		"status":        "Pending",
		"priority":      "Normal",
		"paymentStatus": "Unpaid",
	}
	for k, v := range want {
		if got := d.Get(k); got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestDraftValidate(t *testing.T) {
	if err := validDraft().Validate(); err != nil {
		t.Fatalf("expected valid draft, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Draft)
		want   error
	}{
		{"no file", func(d *Draft) { d.File = nil }, ErrMissingFile},
		{"empty file", func(d *Draft) { d.Attach("x.pdf", nil) }, ErrMissingFile},
		{"blank description", func(d *Draft) { _ = d.Set("description", "  ") }, ErrEmptyDescription},
		{"zero quantity", func(d *Draft) { _ = d.Set("quantity", "0") }, ErrInvalidQuantity},
		{"bad quantity", func(d *Draft) { _ = d.Set("quantity", "two") }, ErrInvalidQuantity},
		{"negative unit cost", func(d *Draft) { _ = d.Set("unitCost", "-1") }, ErrInvalidUnitCost},
		{"blank vendor", func(d *Draft) { _ = d.Set("vendor", "") }, ErrEmptyVendor},
	}
	for _, tc := range cases {
		d := validDraft()
		tc.mutate(d)
		err := d.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDraftValidateReportsAll(t *testing.T) {
	err := NewDraft().Validate()
	for _, want := range []error{ErrMissingFile, ErrEmptyDescription, ErrInvalidQuantity, ErrInvalidUnitCost, ErrEmptyVendor} {
		if !errors.Is(err, want) {
			t.Fatalf("expected %v in %v", want, err)
		}
	}
}

func TestDraftUnknownField(t *testing.T) {
	if err := NewDraft().Set("total", "5"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestDraftPatchOmitsBlanks(t *testing.T) {
	d := validDraft()
	_ = d.Set("notes", "")
	p, err := d.Patch()
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	b, _ := json.Marshal(p)
	var got map[string]any
	_ = json.Unmarshal(b, &got)
	if _, ok := got["notes"]; ok {
		t.Fatalf("blank notes should be omitted: %s", b)
	}
	if got["description"] != "HVAC Filter Replacement" || got["quantity"] != 4.0 || got["unitCost"] != 32.5 {
		t.Fatalf("unexpected payload: %s", b)
	}
	if got["currency"] != "USD" {
		t.Fatalf("default currency missing: %s", b)
	}
}

func TestRowPatchSetAndApply(t *testing.T) {
	var p RowPatch
	if !p.Empty() {
		t.Fatalf("zero patch should be empty")
	}
	if err := p.Set("quantity", "3"); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if err := p.Set("vendor", "Bolt"); err != nil {
		t.Fatalf("set vendor: %v", err)
	}
	if err := p.Set("quantity", "x"); !errors.Is(err, ErrInvalidNumber) {
		t.Fatalf("expected ErrInvalidNumber, got %v", err)
	}
	if err := p.Set("id", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}

	r := Row{ID: "a", Description: "keep", Quantity: 1, Vendor: "Acme"}
	p.ApplyTo(&r)
	if r.Quantity != 3 || r.Vendor != "Bolt" || r.Description != "keep" || r.ID != "a" {
		t.Fatalf("unexpected row after apply: %+v", r)
	}
}

func TestRowGet(t *testing.T) {
	r := Row{Description: "Chair", UnitCost: 125.99}
	if v, ok := r.Get("description"); !ok || v != "Chair" {
		t.Fatalf("description = %q, %v", v, ok)
	}
	if v, ok := r.Get("unitCost"); !ok || v != "125.99" {
		t.Fatalf("unitCost = %q, %v", v, ok)
	}
	if _, ok := r.Get("storedFileName"); ok {
		t.Fatalf("storedFileName is not an editable field")
	}
}

func TestRowEditableAndOCR(t *testing.T) {
	r := Row{}
	if r.Editable() {
		t.Fatalf("row without stored file must not be editable")
	}
	if r.OCRDisplay() != "No OCR text recognized." || r.OCRTitle() != "OCR Result" {
		t.Fatalf("unexpected fallbacks: %q %q", r.OCRDisplay(), r.OCRTitle())
	}
	r.OCRWarning = "no text"
	if r.OCRDisplay() != "no text" {
		t.Fatalf("warning should be shown when text is empty")
	}
	r = Row{StoredFileName: "a_1.pdf", FileName: "a.pdf", OCRText: "Item: X", OCRWarning: "w"}
	if !r.Editable() || r.OCRDisplay() != "Item: X" || r.OCRTitle() != "a.pdf" {
		t.Fatalf("unexpected row helpers: %+v", r)
	}
}

func TestNewPriceEntry(t *testing.T) {
	e, err := NewPriceEntry("2024-01-01", "9.99")
	if err != nil || e.Date != "2024-01-01" || e.Price != 9.99 {
		t.Fatalf("unexpected entry %+v err=%v", e, err)
	}
	_, err = NewPriceEntry("", "")
	if !errors.Is(err, ErrDateRequired) || !errors.Is(err, ErrPriceRequired) {
		t.Fatalf("expected both required errors, got %v", err)
	}
	if _, err := NewPriceEntry("2024-01-01", "abc"); !errors.Is(err, ErrInvalidNumber) {
		t.Fatalf("expected ErrInvalidNumber, got %v", err)
	}
}
