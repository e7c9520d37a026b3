package core

import (
	"fmt"
	"strings"
)

// EditableFields lists the JSON names accepted by a row update, in the order
// they are shown to users.
var EditableFields = []string{
	"description", "quantity", "unitCost", "date", "category", "vendor",
	"currency", "taxRate", "discount", "status", "notes",
	"building", "floor", "room", "maintenanceType", "priority", "assignedTo",
	"dueDate", "serviceProvider", "invoiceNumber", "paymentStatus", "warrantyExpiry",
}

// RowPatch is a partial row. Nil fields are left untouched by the server.
type RowPatch struct {
	Description     *string `json:"description,omitempty"`
	Quantity        *Number `json:"quantity,omitempty"`
	UnitCost        *Number `json:"unitCost,omitempty"`
	Date            *string `json:"date,omitempty"`
	Category        *string `json:"category,omitempty"`
	Vendor          *string `json:"vendor,omitempty"`
	Currency        *string `json:"currency,omitempty"`
	TaxRate         *Number `json:"taxRate,omitempty"`
	Discount        *Number `json:"discount,omitempty"`
	Status          *string `json:"status,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	Building        *string `json:"building,omitempty"`
	Floor           *string `json:"floor,omitempty"`
	Room            *string `json:"room,omitempty"`
	MaintenanceType *string `json:"maintenanceType,omitempty"`
	Priority        *string `json:"priority,omitempty"`
	AssignedTo      *string `json:"assignedTo,omitempty"`
	DueDate         *string `json:"dueDate,omitempty"`
	ServiceProvider *string `json:"serviceProvider,omitempty"`
	InvoiceNumber   *string `json:"invoiceNumber,omitempty"`
	PaymentStatus   *string `json:"paymentStatus,omitempty"`
	WarrantyExpiry  *string `json:"warrantyExpiry,omitempty"`
}

func (p *RowPatch) text(field string) **string {
	switch field {
	case "description":
		return &p.Description
	case "date":
		return &p.Date
	case "category":
		return &p.Category
	case "vendor":
		return &p.Vendor
	case "currency":
		return &p.Currency
	case "status":
		return &p.Status
	case "notes":
		return &p.Notes
	case "building":
		return &p.Building
	case "floor":
		return &p.Floor
	case "room":
		return &p.Room
	case "maintenanceType":
		return &p.MaintenanceType
	case "priority":
		return &p.Priority
	case "assignedTo":
		return &p.AssignedTo
	case "dueDate":
		return &p.DueDate
	case "serviceProvider":
		return &p.ServiceProvider
	case "invoiceNumber":
		return &p.InvoiceNumber
	case "paymentStatus":
		return &p.PaymentStatus
	case "warrantyExpiry":
		return &p.WarrantyExpiry
	}
	return nil
}

func (p *RowPatch) number(field string) **Number {
	switch field {
	case "quantity":
		return &p.Quantity
	case "unitCost":
		return &p.UnitCost
	case "taxRate":
		return &p.TaxRate
	case "discount":
		return &p.Discount
	}
	return nil
}

// Set assigns a field by its JSON name. Numeric fields are parsed with
// ParseNumber; an empty numeric value sets zero.
func (p *RowPatch) Set(field, value string) error {
	if s := p.text(field); s != nil {
		v := value
		*s = &v
		return nil
	}
	if n := p.number(field); n != nil {
		var v Number
		if strings.TrimSpace(value) != "" {
			var err error
			if v, err = ParseNumber(value); err != nil {
				return fmt.Errorf("%s: %w", field, err)
			}
		}
		*n = &v
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// Empty reports whether no field is set.
func (p RowPatch) Empty() bool {
	for _, f := range EditableFields {
		if s := p.text(f); s != nil && *s != nil {
			return false
		}
		if n := p.number(f); n != nil && *n != nil {
			return false
		}
	}
	return true
}

// ApplyTo copies the set fields onto r.
func (p RowPatch) ApplyTo(r *Row) {
	setS := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setN := func(dst *Number, src *Number) {
		if src != nil {
			*dst = *src
		}
	}
	setS(&r.Description, p.Description)
	setN(&r.Quantity, p.Quantity)
	setN(&r.UnitCost, p.UnitCost)
	setS(&r.Date, p.Date)
	setS(&r.Category, p.Category)
	setS(&r.Vendor, p.Vendor)
	setS(&r.Currency, p.Currency)
	setN(&r.TaxRate, p.TaxRate)
	setN(&r.Discount, p.Discount)
	setS(&r.Status, p.Status)
	setS(&r.Notes, p.Notes)
	setS(&r.Building, p.Building)
	setS(&r.Floor, p.Floor)
	setS(&r.Room, p.Room)
	setS(&r.MaintenanceType, p.MaintenanceType)
	setS(&r.Priority, p.Priority)
	setS(&r.AssignedTo, p.AssignedTo)
	setS(&r.DueDate, p.DueDate)
	setS(&r.ServiceProvider, p.ServiceProvider)
	setS(&r.InvoiceNumber, p.InvoiceNumber)
	setS(&r.PaymentStatus, p.PaymentStatus)
	setS(&r.WarrantyExpiry, p.WarrantyExpiry)
}

// Get returns the display value of a row field by JSON name.
func (r Row) Get(field string) (string, bool) {
	var p RowPatch
	if p.text(field) == nil && p.number(field) == nil {
		return "", false
	}
	full := PatchFromRow(r)
	if s := full.text(field); s != nil {
		return **s, true
	}
	n := full.number(field)
	return (*n).Decimal().String(), true
}

// PatchFromRow returns a patch carrying every editable field of r.
func PatchFromRow(r Row) RowPatch {
	return RowPatch{
		Description: &r.Description, Quantity: &r.Quantity, UnitCost: &r.UnitCost,
		Date: &r.Date, Category: &r.Category, Vendor: &r.Vendor, Currency: &r.Currency,
		TaxRate: &r.TaxRate, Discount: &r.Discount, Status: &r.Status, Notes: &r.Notes,
		Building: &r.Building, Floor: &r.Floor, Room: &r.Room,
		MaintenanceType: &r.MaintenanceType, Priority: &r.Priority, AssignedTo: &r.AssignedTo,
		DueDate: &r.DueDate, ServiceProvider: &r.ServiceProvider, InvoiceNumber: &r.InvoiceNumber,
		PaymentStatus: &r.PaymentStatus, WarrantyExpiry: &r.WarrantyExpiry,
	}
}
