// Package core provides money parsing and handling utilities.
//
// Amounts travel over the wire as JSON numbers but are summed and rounded
// with shopspring/decimal so that totals never drift.
package core

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var ErrInvalidNumber = errors.New("invalid number")

// Number is a JSON numeric that also accepts numeric strings, the empty
// string and null. Form inputs are posted as strings, so rows echoed by the
// server may carry either representation.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return ErrInvalidNumber
		}
		if strings.TrimSpace(unq) == "" {
			*n = 0
			return nil
		}
		v, err := ParseNumber(unq)
		if err != nil {
			return err
		}
		*n = v
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ErrInvalidNumber
	}
	*n = Number(f)
	return nil
}

// Decimal converts n using the shortest representation of the float.
func (n Number) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(float64(n))
}

// Float64 returns n as a float64.
func (n Number) Float64() float64 {
	return float64(n)
}

// ParseNumber parses user input such as "12.5", "12,5" or "1,234.50".
//
// Examples:
//
//	ParseNumber("9.99")     -> 9.99, nil
//	ParseNumber("9,99")     -> 9.99, nil
//	ParseNumber("1,234.50") -> 1234.5, nil
//	ParseNumber("abc")      -> 0, ErrInvalidNumber
func ParseNumber(s string) (Number, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidNumber
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		// Comma is a thousands separator
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidNumber
	}
	return Number(d.InexactFloat64()), nil
}

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatMoney renders d with two decimals and thousands grouping,
// e.g. 15.5 -> "15.50", 1234.5 -> "1,234.50".
func FormatMoney(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", RoundMoney(d).InexactFloat64())
}
