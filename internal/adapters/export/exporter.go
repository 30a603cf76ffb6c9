package export

import (
	"context"
	"fmt"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/platform/obs"
	"load-consolidation-service/internal/ports"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	DefaultCSVName  = "consolidated.csv"
	DefaultXLSXName = "consolidated.xlsx"
)

// Exporter writes the CSV and XLSX outputs of a run into one directory.
type Exporter struct {
	Log      *zap.Logger
	CSVName  string
	XLSXName string
}

func (e *Exporter) Export(ctx context.Context, dir string, loads []*domain.Load) (out ports.Outputs, err error) {
	defer obs.Time(ctx, e.Log, "export.Export")(&err)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ports.Outputs{}, fmt.Errorf("export: create %s: %w", dir, err)
	}

	csvPath := filepath.Join(dir, nameOr(e.CSVName, DefaultCSVName))
	if err := WriteCSV(csvPath, loads); err != nil {
		return ports.Outputs{}, fmt.Errorf("export: %w", err)
	}
	out.CSV = csvPath

	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("export: %w", err)
	}

	xlsxPath := filepath.Join(dir, nameOr(e.XLSXName, DefaultXLSXName))
	if err := WriteXLSX(xlsxPath, loads); err != nil {
		return out, fmt.Errorf("export: %w", err)
	}
	out.XLSX = xlsxPath

	return out, nil
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
