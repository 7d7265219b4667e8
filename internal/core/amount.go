// Package core provides the domain types of the rental-management engine.
//
// This file contains the lenient currency amount used by every monetary
// field. Records arrive from browser storage and older API versions, so a
// value may be a JSON number, a numeric string, or garbage.
package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Amount is a currency value in reais. NaN marks a non-numeric input.
type Amount float64

// NonNumeric is the Amount decoded from unusable input.
var NonNumeric = Amount(math.NaN())

// Numeric reports whether the amount holds a finite number.
func (a Amount) Numeric() bool {
	f := float64(a)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Value returns the amount as float64, coercing non-numeric values to zero.
func (a Amount) Value() float64 {
	if !a.Numeric() {
		return 0
	}
	return float64(a)
}

// ParseAmount converts a decimal string to an Amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. When both
// appear, the last one is the decimal separator and the other is a thousands
// separator ("1.234,56" and "1,234.56" are both 1234.56). A leading "R$" is
// ignored. Negative values are allowed; range checks belong to Validate.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return NonNumeric, ErrInvalidAmount
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return NonNumeric, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	}

	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || (i == 0 && (r == '-' || r == '+')) {
			continue
		}
		return NonNumeric, ErrInvalidAmount
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return NonNumeric, ErrInvalidAmount
	}
	return Amount(f), nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Numeric() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(a))
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*a = NonNumeric
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = NonNumeric
			return nil
		}
		v, err := ParseAmount(s)
		if err != nil {
			*a = NonNumeric
			return nil
		}
		*a = v
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			*a = NonNumeric
			return nil
		}
		*a = Amount(f)
	}
	return nil
}

// FormatBRL formats an amount for display, e.g. "R$ 1.234,56".
func FormatBRL(a Amount) string {
	v := a.Value()
	neg := v < 0
	if neg {
		v = -v
	}
	cents := int64(math.Round(v * 100))
	whole := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "R$ " + b.String() + "," + strconv.FormatInt(cents%100/10, 10) + strconv.FormatInt(cents%10, 10)
	if neg {
		return "-" + out
	}
	return out
}
