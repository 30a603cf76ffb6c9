package extract

import (
	"load-consolidation-service/internal/domain"
)

// Bind resolves each column's aliases against a header row. For every column
// the first alias present in the header wins; columns with no match are absent.
func Bind(header []string, aliases map[domain.Column][]string) map[domain.Column]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := domain.NormalizeHeader(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	out := make(map[domain.Column]int, len(aliases))
	for c, names := range aliases {
		for _, name := range names {
			if i, ok := index[domain.NormalizeHeader(name)]; ok {
				out[c] = i
				break
			}
		}
	}
	return out
}

// Records turns table rows into column-keyed records for src.
func Records(src domain.Source, t *Table, binding map[domain.Column]int) []domain.Record {
	out := make([]domain.Record, 0, len(t.Rows))
	for n, row := range t.Rows {
		fields := make(map[domain.Column]string, len(binding))
		for c, i := range binding {
			if i < len(row) {
				fields[c] = row[i]
			}
		}
		line := n + 2
		if n < len(t.Lines) {
			line = t.Lines[n]
		}
		out = append(out, domain.Record{Source: src, Line: line, Fields: fields})
	}
	return out
}
