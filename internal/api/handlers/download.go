package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *ConsolidationHandler) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, h.CSVName, "text/csv; charset=utf-8")
}

func (h *ConsolidationHandler) DownloadExcel(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, h.XLSXName, xlsxContentType)
}

// download serves the latest output of a run as an attachment.
func (h *ConsolidationHandler) download(w http.ResponseWriter, r *http.Request, name, contentType string) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	path := filepath.Join(h.Dirs.Output, name)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, r, http.StatusNotFound, "no output yet: run a consolidation first")
		return
	}
	if err != nil {
		h.Log.Error("open output", zap.String("path", path), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to open output")
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		h.Log.Error("stat output", zap.String("path", path), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to open output")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, st.ModTime(), f)
}

func (h *ConsolidationHandler) outputExists(name string) bool {
	st, err := os.Stat(filepath.Join(h.Dirs.Output, name))
	return err == nil && !st.IsDir()
}
