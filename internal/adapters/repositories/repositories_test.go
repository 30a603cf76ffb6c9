package repositories

import (
	"context"
	"database/sql"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/platform/db"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, InitSchema(ctx, conn))
	// Idempotent.
	require.NoError(t, InitSchema(ctx, conn))
	return conn
}

func TestRunRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewSqliteRunRepository(openTestDB(t))

	start := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	older := &domain.Run{ID: "run-old", StartedAt: start.Add(-time.Hour), Status: domain.RunRunning}
	newer := &domain.Run{ID: "run-new", StartedAt: start, Status: domain.RunRunning}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	newer.Status = domain.RunSucceeded
	newer.FinishedAt = start.Add(1500 * time.Millisecond)
	newer.Rows = 42
	newer.Report = []byte(`{"rows":42}`)
	require.NoError(t, repo.Finish(ctx, newer))

	got, err := repo.Get(ctx, "run-new")
	require.NoError(t, err)
	assert.Equal(t, domain.RunSucceeded, got.Status)
	assert.Equal(t, 42, got.Rows)
	assert.True(t, got.StartedAt.Equal(start))
	assert.True(t, got.FinishedAt.Equal(newer.FinishedAt))
	assert.JSONEq(t, `{"rows":42}`, string(got.Report))

	runs, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, "run-old", runs[1].ID)
	assert.True(t, runs[1].FinishedAt.IsZero())
	assert.Nil(t, runs[0].Report)

	runs, err = repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewSqliteRunRepository(openTestDB(t))

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = repo.Finish(ctx, &domain.Run{ID: "missing", Status: domain.RunFailed})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLNames(t *testing.T) {
	assert.Equal(t, "create_date", sqlName(domain.CreateDate))
	assert.Equal(t, "planned_distance_to_customer", sqlName(domain.PlannedDistanceToCustomer))
	assert.Equal(t, "dj_departure_time", sqlName(domain.DjDepartureTime))
	assert.Equal(t, "d1", sqlName(domain.D1))

	seen := map[string]bool{}
	for _, c := range domain.Columns() {
		n := sqlName(c)
		require.False(t, seen[n], "duplicate column %s", n)
		seen[n] = true
	}
}

func TestLoadQueries(t *testing.T) {
	create := createLoadsQuery()
	assert.Contains(t, create, "load_number TEXT PRIMARY KEY")
	assert.Contains(t, create, "run_id TEXT NOT NULL")

	upsert := upsertLoadQuery()
	n := int(domain.NumColumns) + 1
	assert.Contains(t, upsert, "$1, $2")
	assert.Contains(t, upsert, "$"+strconv.Itoa(n)+")")
	assert.Contains(t, upsert, "ON CONFLICT (load_number) DO UPDATE")
	assert.NotContains(t, upsert, "load_number = EXCLUDED")
	assert.Equal(t, n, strings.Count(upsert, "$"))
}

func TestSaveLoadsRequiresDB(t *testing.T) {
	s := NewPostgresLoadStore(nil, nil)
	assert.Error(t, s.SaveLoads(context.Background(), "run", []*domain.Load{domain.NewLoad("L1")}))
	assert.Error(t, s.InitSchema(context.Background()))
}
