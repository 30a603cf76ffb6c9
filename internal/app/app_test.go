package app

import (
	"context"
	"load-consolidation-service/internal/adapters/export"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/services"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildMinimal(t *testing.T) {
	a, err := Build(context.Background(), Options{}, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Profile)
	assert.NotNil(t, a.Pipeline.Loader)
	assert.NotNil(t, a.Pipeline.Exporter)
	assert.Nil(t, a.Runs)
	assert.Nil(t, a.Pipeline.Runs)
	assert.Nil(t, a.Pipeline.Estimator)
	assert.Nil(t, a.Pipeline.Store)
}

func TestBuildWithHistoryAndEstimator(t *testing.T) {
	a, err := Build(context.Background(), Options{
		HistoryDB: ":memory:",
		ORSKey:    "key",
		Depot:     "Jinja Depot",
	}, zap.NewNop())
	require.NoError(t, err)

	require.NotNil(t, a.Runs)
	runs, err := a.Runs.List(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NotNil(t, a.Pipeline.Estimator)

	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}

func TestBuildNeedsDepotForEstimates(t *testing.T) {
	_, err := Build(context.Background(), Options{ORSKey: "key"}, zap.NewNop())
	require.ErrorContains(t, err, "depot address is required")
}

func TestBuildBadProfile(t *testing.T) {
	_, err := Build(context.Background(), Options{ProfilePath: "does/not/exist.yaml"}, zap.NewNop())
	require.Error(t, err)
}

func TestRunMapsRouteAndCustomerTimes(t *testing.T) {
	in := t.TempDir()
	files := map[string]string{
		"5.Time_in_Route_Information.csv": "Schedule Date,Load,Time in Route (min),Planned Time in Route (min),Time In Route Difference ( DJ - Planned)\n" +
			"06/01/2025,L1,2880,1440,1440\n",
		"2.Customer_Timestamps.csv": "schedule_date,load_name,customer_name,ArrivedAtCustomer(Odo),Offloading\n" +
			"06/01/2025,L1,Shop A,2025-01-06 11:20:00,2025-01-06 12:05:00\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(in, name), []byte(content), 0o644))
	}

	a, err := Build(context.Background(), Options{}, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	out := t.TempDir()
	rep, err := a.Pipeline.Run(context.Background(), services.Input{Dirs: []string{in}, OutputDir: out})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Rows)

	loads, err := export.ReadCSV(filepath.Join(out, export.DefaultCSVName))
	require.NoError(t, err)
	require.Len(t, loads, 1)

	l := loads[0]
	assert.Equal(t, "2", l.Get(domain.ActualDaysInRoute))
	assert.Equal(t, "1", l.Get(domain.BudDaysInRoute))
	assert.Equal(t, "1", l.Get(domain.DaysInRouteDeviation))
	assert.Equal(t, "48", l.Get(domain.TotalHourRoute))
	assert.Equal(t, "2025-01-06 11:20:00", l.Get(domain.AveArrivalTime))
	assert.Equal(t, "2025-01-06 12:05:00", l.Get(domain.ClockOut))
	assert.Equal(t, l.Get(domain.ArrivalAtCustomer), l.Get(domain.AveArrivalTime))
}
