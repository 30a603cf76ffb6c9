package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"load-consolidation-service/internal/api/dto"
	"load-consolidation-service/internal/config"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/ports"
	"load-consolidation-service/internal/services"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

// PipelineRunner runs one consolidation.
type PipelineRunner interface {
	Run(ctx context.Context, in services.Input) (*services.Report, error)
}

// Dirs are the filesystem locations the web front end works in.
type Dirs struct {
	// Input holds extracts used when a slot is not uploaded.
	Input string
	// Uploads receives one work directory per run.
	Uploads string
	Output  string
}

// ConsolidationHandler serves the upload form, runs the pipeline and hands out its outputs.
// Runs are serialized so that the shared output files are written by one run at a time.
type ConsolidationHandler struct {
	Pipeline PipelineRunner
	Runs     ports.RunRepository
	Profile  *config.Profile
	Dirs     Dirs
	CSVName  string
	XLSXName string
	Log      *zap.Logger

	runMu  sync.Mutex
	mu     sync.RWMutex
	latest *services.Report
}

// Run accepts the uploaded extracts and consolidates them.
func (h *ConsolidationHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.fail(w, r, http.StatusRequestEntityTooLarge, "upload exceeds 32 MiB")
			return
		}
		h.fail(w, r, http.StatusBadRequest, "invalid upload")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	workDir := filepath.Join(h.Dirs.Uploads, uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		h.Log.Error("create upload dir", zap.String("dir", workDir), zap.Error(err))
		h.fail(w, r, http.StatusInternalServerError, "could not store uploads")
		return
	}
	defer os.RemoveAll(workDir)

	saved, err := h.saveUploads(r, workDir)
	if err != nil {
		h.Log.Error("store uploads", zap.Error(err))
		h.fail(w, r, http.StatusInternalServerError, "could not store uploads")
		return
	}
	h.Log.Info("run requested", zap.Strings("uploaded", saved))

	h.runMu.Lock()
	rep, err := h.Pipeline.Run(r.Context(), services.Input{
		Dirs:      []string{workDir, h.Dirs.Input},
		OutputDir: h.Dirs.Output,
	})
	h.runMu.Unlock()
	if err == nil {
		h.mu.Lock()
		h.latest = rep
		h.mu.Unlock()
	}

	if err != nil {
		if errors.Is(err, services.ErrNoSources) {
			h.fail(w, r, http.StatusUnprocessableEntity, "no source extracts found: upload at least one file")
			return
		}
		h.Log.Error("run failed", zap.Error(err))
		h.fail(w, r, http.StatusInternalServerError, "consolidation failed")
		return
	}

	if wantsJSON(r) {
		writeJSON(w, r, http.StatusOK, rep)
		return
	}
	h.render(w, r, http.StatusOK, h.page(rep, ""))
}

// saveUploads stores each uploaded slot under the file name the profile expects,
// so the loader finds it before the one in the input directory.
func (h *ConsolidationHandler) saveUploads(r *http.Request, dir string) ([]string, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	var saved []string
	for _, s := range domain.Sources() {
		spec, ok := h.Profile.Source(s)
		if !ok {
			continue
		}
		files := r.MultipartForm.File[s.String()]
		if len(files) == 0 || files[0].Size == 0 {
			continue
		}
		dst := filepath.Join(dir, filepath.Base(spec.File))
		if err := saveFile(files[0], dst); err != nil {
			return saved, fmt.Errorf("save %s upload: %w", s, err)
		}
		saved = append(saved, s.String())
	}
	return saved, nil
}

func saveFile(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (h *ConsolidationHandler) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if wantsJSON(r) {
		writeError(w, r, status, msg)
		return
	}
	h.render(w, r, status, h.page(nil, msg))
}

// Latest returns the newest report: the last run of this process, else the
// last successful run recorded in history.
func (h *ConsolidationHandler) Latest(ctx context.Context) *services.Report {
	h.mu.RLock()
	rep := h.latest
	h.mu.RUnlock()
	if rep != nil || h.Runs == nil {
		return rep
	}

	runs, err := h.Runs.List(ctx, 20)
	if err != nil {
		h.Log.Warn("list runs", zap.Error(err))
		return nil
	}
	for _, run := range runs {
		if run.Status != domain.RunSucceeded {
			continue
		}
		full, err := h.Runs.Get(ctx, run.ID)
		if err != nil {
			h.Log.Warn("get run", zap.String("run_id", run.ID), zap.Error(err))
			continue
		}
		if len(full.Report) == 0 {
			continue
		}
		var out services.Report
		if err := json.Unmarshal(full.Report, &out); err != nil {
			h.Log.Warn("decode stored report", zap.String("run_id", run.ID), zap.Error(err))
			continue
		}
		return &out
	}
	return nil
}

// ListRuns returns the run history as JSON.
func (h *ConsolidationHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res := dto.ListRunsResponse{Runs: []dto.RunResponse{}}
	if h.Runs != nil {
		runs, err := h.Runs.List(r.Context(), limit)
		if err != nil {
			h.Log.Error("list runs", zap.Error(err))
			writeError(w, r, http.StatusInternalServerError, "failed to list runs")
			return
		}
		for _, run := range runs {
			res.Runs = append(res.Runs, dto.NewRunResponse(run))
		}
	}
	writeJSON(w, r, http.StatusOK, res)
}

func parseLimit(v string) (int, error) {
	if v == "" {
		return 50, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 500 {
		return 0, errors.New("limit must be between 1 and 500")
	}
	return n, nil
}
