package domain

import (
	"math"
	"strconv"
	"strings"
)

// Load is one consolidated delivery row keyed by its load number.
// Values are kept as text so that source formatting survives the round trip to CSV.
type Load struct {
	Values [NumColumns]string
}

// NewLoad returns an empty row for the given load number.
func NewLoad(loadNumber string) *Load {
	l := &Load{}
	l.Values[LoadNumber] = strings.TrimSpace(loadNumber)
	return l
}

func (l *Load) Key() string { return strings.TrimSpace(l.Values[LoadNumber]) }

func (l *Load) Get(c Column) string { return strings.TrimSpace(l.Values[c]) }

func (l *Load) Set(c Column, v string) { l.Values[c] = strings.TrimSpace(v) }

// IsBlank reports whether the column holds no usable value.
func (l *Load) IsBlank(c Column) bool { return IsBlank(l.Values[c]) }

// SetIfBlank writes v only when the column is blank and v is not. It reports whether it wrote.
func (l *Load) SetIfBlank(c Column, v string) bool {
	if !l.IsBlank(c) || IsBlank(v) {
		return false
	}
	l.Set(c, v)
	return true
}

// Number parses the column as a float. ok is false for blanks and non-numeric text.
func (l *Load) Number(c Column) (float64, bool) {
	return ParseNumber(l.Values[c])
}

// Record returns the row values for cols in order.
func (l *Load) Record(cols []Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		v := l.Get(c)
		if IsBlank(v) {
			v = ""
		}
		out = append(out, v)
	}
	return out
}

// IsBlank treats spreadsheet placeholders the same as an empty cell.
func IsBlank(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "none", "nat", "null", "<na>":
		return true
	}
	return false
}

// ParseNumber accepts plain decimals and thousands separators ("1,234.5").
func ParseNumber(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if IsBlank(v) {
		return 0, false
	}
	v = strings.ReplaceAll(v, ",", "")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FormatNumber renders f with at most decimals fractional digits and no trailing zeros.
func FormatNumber(f float64, decimals int) string {
	s := strconv.FormatFloat(Round(f, decimals), 'f', decimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

// Round rounds half away from zero to the given number of decimals.
func Round(f float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(f*p) / p
}
