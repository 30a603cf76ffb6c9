package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Extract timestamps are day-first ("31/01/2025 07:45"); ISO and month-first
// values are accepted after that.
var timestampLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// DefaultDatePart is used when an estimated time has no create date to attach to.
const DefaultDatePart = "01/01/2025"

// ParseTimestamp parses an extract timestamp. ok is false for blanks and unknown formats.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if IsBlank(value) {
		return time.Time{}, false
	}
	// pandas writes "2025-01-31 07:45:00.000"
	if i := strings.IndexByte(value, '.'); i > 0 && strings.Count(value, ":") >= 2 {
		value = value[:i]
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MinuteOfDay returns the wall-clock minute of t (0..1439).
func MinuteOfDay(t time.Time) float64 {
	return float64(t.Hour()*60 + t.Minute())
}

// DatePart returns the date portion of a create date ("31/01/2025 00:00" -> "31/01/2025").
func DatePart(createDate string) string {
	createDate = strings.TrimSpace(createDate)
	if IsBlank(createDate) {
		return DefaultDatePart
	}
	if i := strings.IndexByte(createDate, ' '); i > 0 {
		return createDate[:i]
	}
	return createDate
}

// FormatClock renders an estimated time of day on the row's date: "31/01/2025 07:45".
func FormatClock(createDate string, minutes float64) string {
	m := int(math.Floor(minutes))
	return fmt.Sprintf("%s %02d:%02d", DatePart(createDate), m/60, m%60)
}

// MonthOf returns the English month of a create date, or "" when it does not parse.
func MonthOf(createDate string) string {
	t, ok := ParseTimestamp(createDate)
	if !ok {
		return ""
	}
	return t.Month().String()
}

// MonthIndex orders month names; unknown names sort last.
func MonthIndex(name string) int {
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(m.String(), strings.TrimSpace(name)) {
			return int(m)
		}
	}
	return 99
}
