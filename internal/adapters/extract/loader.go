package extract

import (
	"context"
	"errors"
	"fmt"
	"load-consolidation-service/internal/config"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/platform/obs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSourceMissing = errors.New("source file missing")
	ErrNoLoadColumn  = errors.New("no load number column")
)

// Extract is one source after loading.
type Extract struct {
	Source   domain.Source
	Path     string
	Records  []domain.Record
	Unmapped []domain.Column
}

// Result holds every usable extract plus the warnings for the ones that were skipped.
type Result struct {
	Sets     map[domain.Source]*Extract
	Warnings []string
}

// Records returns the records of s, or nil when it was not loaded.
func (r *Result) Records(s domain.Source) []domain.Record {
	if e, ok := r.Sets[s]; ok {
		return e.Records
	}
	return nil
}

// Extracts returns the loaded records keyed by source.
func (r *Result) Extracts() domain.Extracts {
	out := make(domain.Extracts, len(r.Sets))
	for s, e := range r.Sets {
		out[s] = e.Records
	}
	return out
}

// Loader adapts LoadAll to the pipeline's extract port.
type Loader struct {
	Profile *config.Profile
	Log     *zap.Logger
}

func (l *Loader) LoadAll(ctx context.Context, dirs ...string) (domain.Extracts, []string, error) {
	res, err := LoadAll(ctx, l.Log, l.Profile, dirs...)
	if err != nil {
		return nil, nil, err
	}
	return res.Extracts(), res.Warnings, nil
}

// Locate returns the first dir holding file.
func Locate(file string, dirs ...string) (string, error) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, file)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("locate %q: %w", path, err)
		}
	}
	return "", fmt.Errorf("locate %q: %w", file, ErrSourceMissing)
}

// Load reads one extract, looking for its file in dirs in order.
func Load(ctx context.Context, spec config.SourceSpec, dirs ...string) (*Extract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := Locate(spec.File, dirs...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", spec.Source, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: open %q: %w", spec.Source, path, err)
	}
	defer f.Close()

	t, err := ReadTable(f, spec.Comma)
	if err != nil {
		return nil, fmt.Errorf("load %s: %q: %w", spec.Source, path, err)
	}

	binding := Bind(t.Header, spec.Columns)
	if _, ok := binding[domain.LoadNumber]; !ok {
		return nil, fmt.Errorf("load %s: %q: %w", spec.Source, path, ErrNoLoadColumn)
	}

	e := &Extract{
		Source:  spec.Source,
		Path:    path,
		Records: Records(spec.Source, t, binding),
	}
	for _, c := range domain.Columns() {
		if _, want := spec.Columns[c]; !want {
			continue
		}
		if _, ok := binding[c]; !ok {
			e.Unmapped = append(e.Unmapped, c)
		}
	}

	return e, nil
}

// LoadAll reads every extract the profile configures, concurrently.
// Missing files and files without a load number column become warnings.
func LoadAll(ctx context.Context, log *zap.Logger, p *config.Profile, dirs ...string) (_ *Result, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	defer obs.Time(ctx, log, "extract.LoadAll")(&err)

	sources := domain.Sources()
	loaded := make([]*Extract, len(sources))
	skipped := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sources {
		spec, ok := p.Source(s)
		if !ok {
			continue
		}

		g.Go(func() error {
			e, err := Load(gctx, spec, dirs...)
			switch {
			case errors.Is(err, ErrSourceMissing), errors.Is(err, ErrNoLoadColumn):
				skipped[i] = err
				return nil
			case err != nil:
				return err
			}
			loaded[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load extracts: %w", err)
	}

	res := &Result{Sets: make(map[domain.Source]*Extract, len(sources))}
	for i, s := range sources {
		if err := skipped[i]; err != nil {
			log.Warn("skipping source", zap.String("source", s.String()), zap.Error(err))
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}

		e := loaded[i]
		if e == nil {
			continue
		}
		res.Sets[s] = e

		fields := []zap.Field{
			zap.String("source", s.String()),
			zap.String("path", e.Path),
			zap.Int("rows", len(e.Records)),
		}
		if len(e.Unmapped) > 0 {
			fields = append(fields, zap.Strings("unmapped", domain.Headers(e.Unmapped...)))
		}
		log.Info("source loaded", fields...)
	}

	return res, nil
}
