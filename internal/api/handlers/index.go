package handlers

import (
	"embed"
	"html/template"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/services"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"pct": func(f float64) string { return domain.FormatNumber(f, 1) + "%" },
}).ParseFS(templateFS, "templates/index.html"))

type slot struct {
	Field string
	File  string
}

type indexPage struct {
	Slots   []slot
	Report  *services.Report
	Error   string
	HasCSV  bool
	HasXLSX bool
}

// Index renders the upload form with the latest run summary.
func (h *ConsolidationHandler) Index(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	h.render(w, r, http.StatusOK, h.page(h.Latest(r.Context()), ""))
}

func (h *ConsolidationHandler) page(rep *services.Report, errMsg string) indexPage {
	p := indexPage{
		Report:  rep,
		Error:   errMsg,
		HasCSV:  h.outputExists(h.CSVName),
		HasXLSX: h.outputExists(h.XLSXName),
	}
	for _, s := range domain.Sources() {
		if spec, ok := h.Profile.Source(s); ok {
			p.Slots = append(p.Slots, slot{Field: s.String(), File: spec.File})
		}
	}
	return p
}

func (h *ConsolidationHandler) render(w http.ResponseWriter, r *http.Request, status int, p indexPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, p); err != nil {
		h.Log.Warn("render index", zap.String("path", r.URL.Path), zap.Error(err))
	}
}
