package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"load-consolidation-service/internal/platform/obs"
	"load-consolidation-service/internal/ports"
	"strings"

	"go.uber.org/zap"
)

// SqliteRouteCache persists depot->customer routing results between runs.
// Keys are expected to be normalized by the caller.
type SqliteRouteCache struct {
	DB  *sql.DB
	Log *zap.Logger
}

func NewSqliteRouteCache(db *sql.DB, log *zap.Logger) *SqliteRouteCache {
	return &SqliteRouteCache{DB: db, Log: log}
}

// Fetch cached results for one origin and many destinations. Misses are absent from the map.
func (s *SqliteRouteCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, s.Log, "cache.route.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("route cache: db is nil")
	}
	if origin == "" {
		return nil, errors.New("get route cache: origin must not be empty")
	}

	uniq, ph := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	args := make([]any, 0, 1+len(uniq))
	args = append(args, origin)
	for _, d := range uniq {
		args = append(args, d)
	}

	// Only the placeholder list is interpolated; values stay parameterized.
	q := fmt.Sprintf(`
	SELECT
		destination,
		distance_meters,
		duration_seconds
	FROM route_cache
	WHERE origin = ?
		AND destination IN (%s);
	`, ph)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ports.DistanceResult, len(uniq))
	for rows.Next() {
		var dest string
		var meters, seconds int
		if err := rows.Scan(&dest, &meters, &seconds); err != nil {
			return nil, fmt.Errorf("get route cache: scan rows: %w", err)
		}
		out[dest] = ports.DistanceResult{DistanceMeters: meters, DurationSeconds: seconds}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get route cache: row iteration: %w", err)
	}

	return out, nil
}

// Store results for a single origin, replacing older entries.
func (s *SqliteRouteCache) PutMany(ctx context.Context, origin string, results map[string]ports.DistanceResult) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}
	if origin == "" {
		return errors.New("insert route cache: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert route cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO route_cache (
		origin,
		destination,
		distance_meters,
		duration_seconds
	)
	VALUES (?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("insert route cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("insert route cache: empty destination key")
		}
		if _, err := stmt.ExecContext(ctx, origin, dest, r.DistanceMeters, r.DurationSeconds); err != nil {
			return fmt.Errorf("insert route cache dest=%q: %w", dest, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert route cache commit: %w", err)
	}
	return nil
}

// uniqueKeys trims and dedupes keys and returns them with a matching "?,?" list.
func uniqueKeys(keys []string) ([]string, string) {
	seen := map[string]struct{}{}
	uniq := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	return uniq, strings.TrimSuffix(strings.Repeat("?,", len(uniq)), ",")
}
