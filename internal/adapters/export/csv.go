package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"load-consolidation-service/internal/adapters/extract"
	"load-consolidation-service/internal/domain"
	"os"
)

var ErrNoLoadNumber = errors.New("csv has no Load Number column")

// WriteCSV writes every column, header first.
func WriteCSV(path string, loads []*domain.Load) error {
	return writeAtomic(path, func(w io.Writer) error {
		return EncodeCSV(w, loads)
	})
}

// EncodeCSV writes loads as CSV to w.
func EncodeCSV(w io.Writer, loads []*domain.Load) error {
	cols := domain.Columns()
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.Headers(cols...)); err != nil {
		return fmt.Errorf("encode csv: header: %w", err)
	}
	for _, l := range loads {
		if err := cw.Write(l.Record(cols)); err != nil {
			return fmt.Errorf("encode csv: load %s: %w", l.Key(), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("encode csv: flush: %w", err)
	}
	return nil
}

// ReadCSV loads a consolidated CSV back into rows. Headers that are not
// output columns are ignored; rows without a load number are skipped.
func ReadCSV(path string) ([]*domain.Load, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	defer f.Close()

	tbl, err := extract.ReadTable(f, 0)
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}

	index := map[domain.Column]int{}
	for i, h := range tbl.Header {
		if c, ok := domain.ColumnByName(h); ok {
			if _, seen := index[c]; !seen {
				index[c] = i
			}
		}
	}
	if _, ok := index[domain.LoadNumber]; !ok {
		return nil, fmt.Errorf("read csv %s: %w", path, ErrNoLoadNumber)
	}

	loads := make([]*domain.Load, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		l := &domain.Load{}
		for c, i := range index {
			if i < len(row) {
				l.Set(c, row[i])
			}
		}
		if l.IsBlank(domain.LoadNumber) {
			continue
		}
		loads = append(loads, l)
	}
	return loads, nil
}
