package rowsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"billtrack/internal/core"
	applog "billtrack/internal/log"
)

// Sample is a built-in demo row.
type Sample struct {
	Description string
	Quantity    float64
	UnitCost    float64
	Category    string
	Vendor      string
	Building    string
	Floor       string
	Room        string
}

// SampleFileName is the name under which the sample PDF is uploaded.
const SampleFileName = "sample.pdf"

// Samples are loaded in this order by LoadSamples.
var Samples = []Sample{
	{"Office Chair Replacement", 5, 125.99, "Furniture", "OfficeMax Solutions", "Main Building", "3rd Floor", "A301"},
	{"Network Switch Upgrade", 2, 450.00, "IT Equipment", "TechGear Inc", "Server Room", "Basement", "B001"},
	{"Window Cleaning Service", 1, 85.50, "Maintenance", "Crystal Clear Windows", "Main Building", "All Floors", "Exterior"},
	{"Fire Extinguisher Inspection", 8, 25.00, "Safety", "Safety First Corp", "All Buildings", "All Floors", "Various"},
	{"Coffee Machine Repair", 1, 150.00, "Appliances", "BrewMaster Services", "Main Building", "2nd Floor", "Break Room"},
	{"Carpet Cleaning", 1, 200.00, "Cleaning", "Fresh Clean Co", "Conference Center", "Ground Floor", "Main Hall"},
	{"Printer Toner Cartridges", 12, 45.75, "Office Supplies", "PrintPro Solutions", "Main Building", "2nd Floor", "Copy Room"},
	{"HVAC Filter Replacement", 4, 32.50, "HVAC", "Climate Control Inc", "Main Building", "All Floors", "Mechanical Room"},
}

// Patch returns the sample's fields as a row patch.
func (s Sample) Patch() core.RowPatch {
	var p core.RowPatch
	set := func(field, value string) { _ = p.Set(field, value) }
	set("description", s.Description)
	set("quantity", strconv.FormatFloat(s.Quantity, 'f', -1, 64))
	set("unitCost", strconv.FormatFloat(s.UnitCost, 'f', -1, 64))
	set("category", s.Category)
	set("vendor", s.Vendor)
	set("building", s.Building)
	set("floor", s.Floor)
	set("room", s.Room)
	return p
}

// LoadSamples creates the demo rows one at a time, each with the server's
// sample PDF attached. A failed create stops the run; a failed upload or
// update keeps the created row and moves on. It returns how many rows were
// created along with any errors met.
func (s *Store) LoadSamples(ctx context.Context) (int, error) {
	pdf, err := s.backend.SamplePDF(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not load sample PDF: %w", err)
	}

	var errs []error
	created := 0
	for _, sample := range Samples {
		if err := ctx.Err(); err != nil {
			return created, errors.Join(append(errs, err)...)
		}
		p := sample.Patch()
		row, err := s.backend.CreateRow(ctx, p)
		if err != nil {
			return created, errors.Join(append(errs, fmt.Errorf("sample %q: %w", sample.Description, err))...)
		}
		created++
		s.upsert(row)

		row, err = s.backend.UploadFile(ctx, row.ID, SampleFileName, pdf)
		if err != nil {
			errs = append(errs, fmt.Errorf("sample %q upload: %w", sample.Description, err))
			continue
		}
		s.upsert(row)

		// OCR on the sample PDF may have overwritten the fields.
		if upd, err := s.backend.UpdateRow(ctx, row.ID, p); err != nil {
			errs = append(errs, fmt.Errorf("sample %q update: %w", sample.Description, err))
		} else {
			s.upsert(upd)
		}
	}
	s.logger.InfoContext(ctx, "Samples loaded", applog.FieldRowCount, created)
	return created, errors.Join(errs...)
}
