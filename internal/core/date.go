package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted when decoding a Date from JSON text.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Date wraps time.Time and tolerates malformed input.
// A date that cannot be parsed keeps its raw text and a zero time.
type Date struct {
	time.Time
	Raw string
}

// NewDate creates a new Date from year, month, day in UTC
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf wraps an existing time.
func DateOf(t time.Time) Date {
	return Date{Time: t}
}

// Valid reports whether the date holds a usable instant.
func (d Date) Valid() bool {
	return !d.Time.IsZero()
}

// UnixMilli returns milliseconds since epoch, or 0 for an invalid date.
func (d Date) UnixMilli() int64 {
	if !d.Valid() {
		return 0
	}
	return d.Time.UnixMilli()
}

// SameMonth reports whether d falls in the calendar month of ref. The date is
// read as a civil date in its own location, so "2024-03-01" stays in March for
// a caller west of UTC.
func (d Date) SameMonth(ref time.Time) bool {
	if !d.Valid() {
		return false
	}
	return d.Year() == ref.Year() && d.Month() == ref.Month()
}

// Civil returns midnight of d's calendar day in loc.
func (d Date) Civil(loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// ParseDate parses the layouts the stores and the API emit.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Date{Time: t}, nil
		}
		lastErr = err
	}
	return Date{Raw: s}, lastErr
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		if d.Raw == "" {
			return []byte("null"), nil
		}
		return json.Marshal(d.Raw)
	}
	return json.Marshal(d.Time.Format(time.RFC3339Nano))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*d = Date{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	// Unix milliseconds, as written by JavaScript clients
	if data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			d.Raw = string(data)
			return nil
		}
		d.Time = time.UnixMilli(ms).UTC()
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		d.Raw = string(data)
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		d.Raw = s
		return nil
	}
	*d = parsed
	return nil
}
