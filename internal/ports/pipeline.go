package ports

import (
	"context"
	"load-consolidation-service/internal/domain"
)

// Port: reads the source extracts. Each file is looked up in dirs in order.
type ExtractLoader interface {
	// Return the loaded records plus warnings for skipped sources.
	LoadAll(ctx context.Context, dirs ...string) (domain.Extracts, []string, error)
}

// Paths of the files one export produced.
type Outputs struct {
	CSV  string `json:"csv,omitempty"`
	XLSX string `json:"xlsx,omitempty"`
}

// Port: writes the consolidated table.
type Exporter interface {
	Export(ctx context.Context, dir string, loads []*domain.Load) (Outputs, error)
}
