package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/platform/obs"
	"strings"

	"go.uber.org/zap"
)

// SqlitePlaceCache maps geocoded place names (depot, customers) to coordinates.
type SqlitePlaceCache struct {
	DB  *sql.DB
	Log *zap.Logger
}

func NewSqlitePlaceCache(db *sql.DB, log *zap.Logger) *SqlitePlaceCache {
	return &SqlitePlaceCache{DB: db, Log: log}
}

// Fetch cached coordinates for the given places. Misses are absent from the map.
func (s *SqlitePlaceCache) GetMany(ctx context.Context, places []string) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, s.Log, "cache.place.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("place cache: db is nil")
	}

	uniq, ph := uniqueKeys(places)
	if len(uniq) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	args := make([]any, 0, len(uniq))
	for _, p := range uniq {
		args = append(args, p)
	}

	q := fmt.Sprintf(`
	SELECT
		place,
		lon,
		lat
	FROM place_cache
	WHERE place IN (%s);
	`, ph)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get place cache: query place_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Coordinates, len(uniq))
	for rows.Next() {
		var place string
		var lon, lat float64
		if err := rows.Scan(&place, &lon, &lat); err != nil {
			return nil, fmt.Errorf("get place cache: scan rows: %w", err)
		}
		out[place] = domain.Coordinates{Lon: lon, Lat: lat}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get place cache: row iteration: %w", err)
	}

	return out, nil
}

func (s *SqlitePlaceCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) error {
	if s.DB == nil {
		return errors.New("place cache: db is nil")
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert place cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO place_cache (
		place,
		lon,
		lat
	)
	VALUES (?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("insert place cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for place, c := range results {
		if strings.TrimSpace(place) == "" {
			return errors.New("insert place cache: empty place key")
		}
		if _, err := stmt.ExecContext(ctx, place, c.Lon, c.Lat); err != nil {
			return fmt.Errorf("insert place cache place=%q: %w", place, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert place cache commit: %w", err)
	}
	return nil
}
