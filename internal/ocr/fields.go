package ocr

import (
	"regexp"
	"strings"

	"billtrack/internal/core"
)

var (
	itemPattern     = regexp.MustCompile(`(?i)Item\s*[:\-]?\s*([^\n]+)`)
	quantityPattern = regexp.MustCompile(`(?i)Quantity\s*[:\-]?\s*(\d+(?:[\.,]\d+)?)`)
	unitCostPattern = regexp.MustCompile(`(?i)Unit\s*Cost\s*[:\-]?\s*(\d+[\.,]\d{2})`)
	vendorPattern   = regexp.MustCompile(`(?i)Vendor\s*[:\-]?\s*([^\n]+)`)
	datePattern     = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)
)

// ParseFields recognizes the labelled invoice fields in text and returns
// them as a patch. Fields that are absent stay unset.
func ParseFields(text string) core.RowPatch {
	var p core.RowPatch
	if m := itemPattern.FindStringSubmatch(text); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			_ = p.Set("description", v)
		}
	}
	if m := quantityPattern.FindStringSubmatch(text); m != nil {
		_ = p.Set("quantity", strings.ReplaceAll(m[1], ",", "."))
	}
	if m := unitCostPattern.FindStringSubmatch(text); m != nil {
		_ = p.Set("unitCost", strings.ReplaceAll(m[1], ",", "."))
	}
	if m := vendorPattern.FindStringSubmatch(text); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			_ = p.Set("vendor", v)
		}
	}
	if m := datePattern.FindStringSubmatch(text); m != nil {
		_ = p.Set("date", m[1])
	}
	return p
}
