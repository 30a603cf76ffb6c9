package api

import (
	"load-consolidation-service/internal/api/handlers"
	"net/http"

	"go.uber.org/zap"
)

// NewRouter wires HTTP handlers and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(h *handlers.ConsolidationHandler, log *zap.Logger) http.Handler {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/{$}", h.Index)
	mux.HandleFunc("/run", h.Run)
	mux.HandleFunc("/download/csv", h.DownloadCSV)
	mux.HandleFunc("/download/excel", h.DownloadExcel)
	mux.HandleFunc("/runs", h.ListRuns)
	mux.HandleFunc("/health", handlers.Health)

	return loggingMiddleware(log, mux)
}
