package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/platform/obs"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// PostgresLoadStore upserts consolidated loads into the reporting warehouse.
// One row per load number; a later run overwrites an earlier one.
type PostgresLoadStore struct {
	DB  *sql.DB
	Log *zap.Logger
}

func NewPostgresLoadStore(db *sql.DB, log *zap.Logger) *PostgresLoadStore {
	return &PostgresLoadStore{DB: db, Log: log}
}

// InitSchema creates the loads table.
func (s *PostgresLoadStore) InitSchema(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("init load schema: DB is nil")
	}

	if _, err := s.DB.ExecContext(ctx, createLoadsQuery()); err != nil {
		return fmt.Errorf("init load schema: create loads table: %w", err)
	}
	if _, err := s.DB.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_loads_run_id ON loads(run_id);`); err != nil {
		return fmt.Errorf("init load schema: create index: %w", err)
	}
	return nil
}

// SaveLoads writes every load in one transaction. Blank cells are stored as NULL.
func (s *PostgresLoadStore) SaveLoads(ctx context.Context, runID string, loads []*domain.Load) (err error) {
	defer obs.Time(ctx, s.Log, "repositories.SaveLoads")(&err)

	if s.DB == nil {
		return errors.New("save loads: DB is nil")
	}
	if len(loads) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save loads: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertLoadQuery())
	if err != nil {
		return fmt.Errorf("save loads: prepare upsert: %w", err)
	}
	defer stmt.Close()

	cols := domain.Columns()
	for _, l := range loads {
		if l.Key() == "" {
			continue
		}
		args := make([]any, 0, len(cols)+1)
		for _, v := range l.Record(cols) {
			args = append(args, sql.NullString{String: v, Valid: v != ""})
		}
		args = append(args, runID)

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("save loads: upsert load %q: %w", l.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save loads: commit tx: %w", err)
	}
	return nil
}

func createLoadsQuery() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS loads (\n")
	for _, c := range domain.Columns() {
		if c == domain.LoadNumber {
			fmt.Fprintf(&b, "\t%s TEXT PRIMARY KEY,\n", sqlName(c))
			continue
		}
		fmt.Fprintf(&b, "\t%s TEXT,\n", sqlName(c))
	}
	b.WriteString("\trun_id TEXT NOT NULL,\n")
	b.WriteString("\tupdated_at TIMESTAMPTZ NOT NULL DEFAULT now()\n);")
	return b.String()
}

func upsertLoadQuery() string {
	cols := domain.Columns()
	names := make([]string, 0, len(cols)+1)
	params := make([]string, 0, len(cols)+1)
	updates := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		n := sqlName(c)
		names = append(names, n)
		params = append(params, fmt.Sprintf("$%d", i+1))
		if c != domain.LoadNumber {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", n, n))
		}
	}
	names = append(names, "run_id")
	params = append(params, fmt.Sprintf("$%d", len(cols)+1))
	updates = append(updates, "run_id = EXCLUDED.run_id", "updated_at = now()")

	return fmt.Sprintf(
		"INSERT INTO loads (%s)\nVALUES (%s)\nON CONFLICT (%s) DO UPDATE\nSET %s;",
		strings.Join(names, ", "),
		strings.Join(params, ", "),
		sqlName(domain.LoadNumber),
		strings.Join(updates, ",\n\t"),
	)
}

// sqlName turns an output column name into snake case:
// "PlannedDistanceToCustomer" -> "planned_distance_to_customer".
func sqlName(c domain.Column) string {
	var b strings.Builder
	prevLower := false
	for _, r := range c.String() {
		switch {
		case r == ' ':
			b.WriteByte('_')
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = true
		}
	}
	return b.String()
}
