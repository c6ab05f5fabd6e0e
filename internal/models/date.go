package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DateLayout is the wire and display form of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String renders d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse(DateLayout, string(b))
	if err != nil {
		return fmt.Errorf("models.Date: %w", err)
	}
	*d = DateOf(t)
	return nil
}

// dateParser is shared by every ParseDate call.
var dateParser = newDateParser()

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseDate accepts YYYY-MM-DD or an English expression such as "tomorrow"
// or "next friday", resolved relative to now.
func ParseDate(text string, now time.Time) (Date, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Date{}, fmt.Errorf("models.ParseDate: empty date")
	}
	if t, err := time.Parse(DateLayout, text); err == nil {
		return DateOf(t), nil
	}
	r, err := dateParser.Parse(text, now)
	if err != nil {
		return Date{}, fmt.Errorf("models.ParseDate %q: %w", text, err)
	}
	if r == nil {
		return Date{}, fmt.Errorf("models.ParseDate: %q is not a date (use YYYY-MM-DD or e.g. \"next friday\")", text)
	}
	return DateOf(r.Time), nil
}
