package export

import (
	"fmt"
	"io"
	"load-consolidation-service/internal/domain"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Consolidated"

// Internal bookkeeping columns left out of the workbook.
var xlsxDropped = map[domain.Column]bool{
	domain.CommentAveTir:     true,
	domain.ServiceTimeSource: true,
	domain.DataQuality:       true,
}

// Route durations are stored as numbers rounded to one decimal.
var xlsxNumeric = map[domain.Column]bool{
	domain.ActualDaysInRoute:    true,
	domain.BudDaysInRoute:       true,
	domain.DaysInRouteDeviation: true,
	domain.TotalHourRoute:       true,
}

// XLSXColumns returns the workbook columns in order.
func XLSXColumns() []domain.Column {
	var out []domain.Column
	for _, c := range domain.Columns() {
		if !xlsxDropped[c] {
			out = append(out, c)
		}
	}
	return out
}

// WriteXLSX writes the workbook to path.
func WriteXLSX(path string, loads []*domain.Load) error {
	return writeAtomic(path, func(w io.Writer) error {
		return EncodeXLSX(w, loads)
	})
}

// EncodeXLSX streams loads into a single-sheet workbook.
func EncodeXLSX(w io.Writer, loads []*domain.Load) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("encode xlsx: close: %w", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("encode xlsx: rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("encode xlsx: stream writer: %w", err)
	}

	cols := XLSXColumns()
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c.String()
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("encode xlsx: header: %w", err)
	}

	for i, l := range loads {
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			row[j] = xlsxCell(l, c)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("encode xlsx: row %d: %w", i+2, err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("encode xlsx: load %s: %w", l.Key(), err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("encode xlsx: flush: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("encode xlsx: write: %w", err)
	}
	return nil
}

func xlsxCell(l *domain.Load, c domain.Column) interface{} {
	if l.IsBlank(c) {
		return nil
	}
	if xlsxNumeric[c] {
		if f, ok := l.Number(c); ok {
			return domain.Round(f, 1)
		}
	}
	return l.Get(c)
}
