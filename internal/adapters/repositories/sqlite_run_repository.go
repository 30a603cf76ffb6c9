package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"load-consolidation-service/internal/domain"
	"time"
)

var ErrRunNotFound = errors.New("run not found")

const defaultRunListLimit = 50

// Fixed width so that timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite-backed implementation of the RunRepository port.
type SqliteRunRepository struct{ DB *sql.DB }

func NewSqliteRunRepository(db *sql.DB) *SqliteRunRepository {
	return &SqliteRunRepository{DB: db}
}

func (s *SqliteRunRepository) Create(ctx context.Context, run *domain.Run) error {
	if s.DB == nil {
		return errors.New("sqlite run repository: DB is nil")
	}

	query := `
	INSERT INTO runs (
		id,
		started_at,
		status,
		row_count,
		error
	)
	VALUES (?, ?, ?, ?, ?);
	`
	_, err := s.DB.ExecContext(ctx, query,
		run.ID, formatTime(run.StartedAt), string(run.Status), run.Rows, run.Error)
	if err != nil {
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SqliteRunRepository) Finish(ctx context.Context, run *domain.Run) error {
	if s.DB == nil {
		return errors.New("sqlite run repository: DB is nil")
	}

	query := `
	UPDATE runs
	SET finished_at = ?,
		status = ?,
		row_count = ?,
		error = ?,
		report_json = ?
	WHERE id = ?;
	`
	res, err := s.DB.ExecContext(ctx, query,
		formatTime(run.FinishedAt), string(run.Status), run.Rows, run.Error, run.Report, run.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: rows affected: %w", run.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

// List returns the most recent runs first. Reports are not loaded.
func (s *SqliteRunRepository) List(ctx context.Context, limit int) ([]domain.Run, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite run repository: DB is nil")
	}
	if limit <= 0 {
		limit = defaultRunListLimit
	}

	query := `
	SELECT
		id,
		started_at,
		finished_at,
		status,
		row_count,
		error
	FROM runs
	ORDER BY started_at DESC, id
	LIMIT ?;
	`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: query runs table: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.Run, 0, limit)
	for rows.Next() {
		var r domain.Run
		var started string
		var finished sql.NullString
		var status string
		if err := rows.Scan(&r.ID, &started, &finished, &status, &r.Rows, &r.Error); err != nil {
			return nil, fmt.Errorf("list runs: scan row: %w", err)
		}
		if err := parseRunTimes(&r, started, finished); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		r.Status = domain.RunStatus(status)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: row iteration: %w", err)
	}

	return runs, nil
}

func (s *SqliteRunRepository) Get(ctx context.Context, id string) (*domain.Run, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite run repository: DB is nil")
	}

	query := `
	SELECT
		id,
		started_at,
		finished_at,
		status,
		row_count,
		error,
		report_json
	FROM runs
	WHERE id = ?;
	`
	var r domain.Run
	var started string
	var finished sql.NullString
	var status string
	err := s.DB.QueryRowContext(ctx, query, id).
		Scan(&r.ID, &started, &finished, &status, &r.Rows, &r.Error, &r.Report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	if err := parseRunTimes(&r, started, finished); err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	r.Status = domain.RunStatus(status)
	return &r, nil
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseRunTimes(r *domain.Run, started string, finished sql.NullString) error {
	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return fmt.Errorf("parse started_at %q: %w", started, err)
	}
	r.StartedAt = t

	if finished.Valid && finished.String != "" {
		t, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return fmt.Errorf("parse finished_at %q: %w", finished.String, err)
		}
		r.FinishedAt = t
	}
	return nil
}
