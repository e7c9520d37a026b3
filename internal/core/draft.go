package core

import (
	"errors"
	"fmt"
	"strings"
)

// Attachment is a PDF held in memory until the draft is submitted.
type Attachment struct {
	Name string
	Data []byte
}

// Draft stages a new row. Nothing is sent until it validates.
type Draft struct {
	fields map[string]string
	File   *Attachment
}

// NewDraft returns a draft with the usual defaults filled in.
func NewDraft() *Draft {
	return &Draft{fields: map[string]string{
		"currency":      DefaultCurrency,
		"status":        DefaultStatus,
		"priority":      DefaultPriority,
		"paymentStatus": DefaultPaymentStatus,
	}}
}

// Set stores a field value by JSON name.
func (d *Draft) Set(field, value string) error {
	var p RowPatch
	if p.text(field) == nil && p.number(field) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if d.fields == nil {
		d.fields = map[string]string{}
	}
	d.fields[field] = value
	return nil
}

// Get returns the staged value of a field.
func (d *Draft) Get(field string) string {
	return d.fields[field]
}

// Attach sets the file to upload after the row is created.
func (d *Draft) Attach(name string, data []byte) {
	d.File = &Attachment{Name: name, Data: data}
}

// Validate reports every problem with the draft at once.
func (d *Draft) Validate() error {
	var errs []error
	if d.File == nil || len(d.File.Data) == 0 {
		errs = append(errs, ErrMissingFile)
	}
	if strings.TrimSpace(d.fields["description"]) == "" {
		errs = append(errs, ErrEmptyDescription)
	}
	if !positive(d.fields["quantity"]) {
		errs = append(errs, ErrInvalidQuantity)
	}
	if !positive(d.fields["unitCost"]) {
		errs = append(errs, ErrInvalidUnitCost)
	}
	if strings.TrimSpace(d.fields["vendor"]) == "" {
		errs = append(errs, ErrEmptyVendor)
	}
	return errors.Join(errs...)
}

// Patch converts the staged fields into a create payload, skipping blanks.
func (d *Draft) Patch() (RowPatch, error) {
	var p RowPatch
	for _, f := range EditableFields {
		v := strings.TrimSpace(d.fields[f])
		if v == "" {
			continue
		}
		if err := p.Set(f, v); err != nil {
			return RowPatch{}, err
		}
	}
	return p, nil
}

func positive(s string) bool {
	n, err := ParseNumber(s)
	return err == nil && n > 0
}
