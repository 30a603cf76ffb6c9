package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"load-consolidation-service/internal/adapters/cache"
	"load-consolidation-service/internal/adapters/distance"
	"load-consolidation-service/internal/adapters/export"
	"load-consolidation-service/internal/adapters/extract"
	"load-consolidation-service/internal/adapters/repositories"
	"load-consolidation-service/internal/config"
	"load-consolidation-service/internal/platform/db"
	"load-consolidation-service/internal/ports"
	"load-consolidation-service/internal/services"
	"strings"

	"go.uber.org/zap"
)

// Options select the adapters a pipeline is wired with. Empty fields switch
// the matching optional component off.
type Options struct {
	ProfilePath string
	// HistoryDB is the SQLite file for run history and the routing caches.
	HistoryDB string
	// ORSKey enables the routing-service distance estimate; Depot is its origin.
	ORSKey      string
	Depot       string
	DatabaseURL string
}

// App is a wired pipeline plus the handles that must be closed with it.
type App struct {
	Profile  *config.Profile
	Pipeline *services.Pipeline
	// Runs is nil when no history database is configured.
	Runs     ports.RunRepository
	Exporter *export.Exporter

	closers []func() error
}

// Build wires the pipeline. Callers must Close the result.
func Build(ctx context.Context, opts Options, log *zap.Logger) (_ *App, err error) {
	if log == nil {
		log = zap.NewNop()
	}

	profile, err := config.LoadProfile(opts.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}

	a := &App{
		Profile:  profile,
		Exporter: &export.Exporter{Log: log, CSVName: export.DefaultCSVName, XLSXName: export.DefaultXLSXName},
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Pipeline = &services.Pipeline{
		Profile:  profile,
		Loader:   &extract.Loader{Profile: profile, Log: log},
		Exporter: a.Exporter,
		Log:      log,
	}

	var history *sql.DB
	if opts.HistoryDB != "" {
		history, err = db.OpenSQLite(ctx, opts.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("build app: %w", err)
		}
		a.closers = append(a.closers, history.Close)

		if err := repositories.InitSchema(ctx, history); err != nil {
			return nil, fmt.Errorf("build app: %w", err)
		}
		a.Runs = repositories.NewSqliteRunRepository(history)
		a.Pipeline.Runs = a.Runs
	}

	if strings.TrimSpace(opts.ORSKey) != "" {
		est, err := newEstimator(opts, profile, history, log)
		if err != nil {
			return nil, fmt.Errorf("build app: %w", err)
		}
		a.Pipeline.Estimator = est
	}

	if opts.DatabaseURL != "" {
		pg, err := db.Open(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("build app: %w", err)
		}
		a.closers = append(a.closers, pg.Close)

		store := repositories.NewPostgresLoadStore(pg, log)
		if err := store.InitSchema(ctx); err != nil {
			return nil, fmt.Errorf("build app: %w", err)
		}
		a.Pipeline.Store = store
	}

	return a, nil
}

// newEstimator wires OpenRouteService behind the SQLite caches when a
// history database is open.
func newEstimator(opts Options, profile *config.Profile, history *sql.DB, log *zap.Logger) (*services.RouteEstimator, error) {
	if strings.TrimSpace(opts.Depot) == "" {
		return nil, errors.New("depot address is required for distance estimates")
	}

	var (
		routes distance.RouteCache
		places distance.PlaceCache
	)
	if history != nil {
		routes = cache.NewSqliteRouteCache(history, log)
		places = cache.NewSqlitePlaceCache(history, log)
	}

	provider, err := distance.NewORSDistanceProvider(distance.ORSConfig{
		APIKey:          opts.ORSKey,
		Profile:         profile.Estimator.Profile,
		BoundaryCountry: profile.Estimator.BoundaryCountry,
	}, routes, places, log)
	if err != nil {
		return nil, err
	}
	return services.NewRouteEstimator(provider, opts.Depot, profile.Estimator.Country, log)
}

// Close releases every database handle, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
