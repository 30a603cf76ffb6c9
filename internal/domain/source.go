package domain

import "strings"

// Source identifies one of the five extracts a load can appear in.
// The declaration order is the merge priority.
type Source int

const (
	SourceDepot Source = iota
	SourceCustomer
	SourceDistance
	SourceTimestamps
	SourceTimeRoute
)

var sourceNames = []string{"depot", "customer", "distance", "timestamps", "timeroute"}

// Sources lists every extract in merge priority order.
func Sources() []Source {
	return []Source{SourceDepot, SourceCustomer, SourceDistance, SourceTimestamps, SourceTimeRoute}
}

func (s Source) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return "unknown"
	}
	return sourceNames[s]
}

// ParseSource maps a profile key to a Source.
func ParseSource(name string) (Source, bool) {
	for i, n := range sourceNames {
		if n == name {
			return Source(i), true
		}
	}
	return 0, false
}

// Record is one row of an extract, keyed by the column each source field maps to.
type Record struct {
	Source Source
	Line   int
	Fields map[Column]string
}

// Value returns the trimmed field, or "" when it is absent or a placeholder.
func (r Record) Value(c Column) string {
	v := strings.TrimSpace(r.Fields[c])
	if IsBlank(v) {
		return ""
	}
	return v
}

// Extracts holds the loaded records of each source.
type Extracts map[Source][]Record

// All returns every record in merge priority order.
func (e Extracts) All() []Record {
	var out []Record
	for _, s := range Sources() {
		out = append(out, e[s]...)
	}
	return out
}
