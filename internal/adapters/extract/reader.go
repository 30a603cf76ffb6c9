package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a raw extract: the header row and every non-empty data row, cells trimmed.
type Table struct {
	Header []string
	Rows   [][]string
	Lines  []int
	Comma  rune
}

// ReadTable parses a delimited extract. When comma is zero the delimiter is
// sniffed from the header line. Rows may be shorter or longer than the header.
func ReadTable(r io.Reader, comma rune) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if comma == 0 {
		comma = sniffDelimiter(data)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{Comma: comma}, nil
		}
		return nil, fmt.Errorf("read table: header: %w", err)
	}

	t := &Table{Header: trimAll(header), Comma: comma}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read table: %w", err)
		}

		rec = trimAll(rec)
		if emptyRow(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		t.Rows = append(t.Rows, rec)
		t.Lines = append(t.Lines, line)
	}

	return t, nil
}

// sniffDelimiter picks the most frequent of tab, comma and semicolon in the
// first line. Comma wins ties and lines with none of them.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestN := ',', bytes.Count(line, []byte{','})
	for _, c := range []rune{'\t', ';'} {
		if n := bytes.Count(line, []byte{byte(c)}); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func emptyRow(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}
