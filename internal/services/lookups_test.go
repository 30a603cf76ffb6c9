package services

import (
	"load-consolidation-service/internal/domain"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupExtracts() domain.Extracts {
	return domain.Extracts{
		domain.SourceDepot: {
			rec(domain.SourceDepot, fields{domain.LoadNumber: "L1", domain.DriverName: "Mukasa", domain.VehicleReg: "UAX 1", domain.Transporter: "Own"}),
			rec(domain.SourceDepot, fields{domain.LoadNumber: "L3", domain.DriverName: "mukasa ", domain.VehicleReg: "UAX 1"}),
			rec(domain.SourceDepot, fields{domain.LoadNumber: "L4", domain.PlannedDepartureTime: "01/02/2025 07:30", domain.DjDepartureTime: "01/02/2025 07:45"}),
		},
		domain.SourceCustomer: {
			rec(domain.SourceCustomer, fields{domain.LoadNumber: "L1", domain.CustomerName: "Shop A", domain.DriverName: "Other", domain.ServiceTimeAtCustomer: "01:30"}),
			rec(domain.SourceCustomer, fields{domain.LoadNumber: "L1", domain.ServiceTimeAtCustomer: "5"}),
			rec(domain.SourceCustomer, fields{domain.LoadNumber: "L2", domain.ServiceTimeAtCustomer: "-3"}),
		},
		domain.SourceDistance: {
			rec(domain.SourceDistance, fields{domain.LoadNumber: "L1", domain.CustomerName: "Shop B", domain.PlannedDistanceToCustomer: "12", domain.BudgetedKms: "40"}),
			rec(domain.SourceDistance, fields{domain.LoadNumber: "L1", domain.ActualKm: "45", domain.BudgetedKms: "41"}),
			rec(domain.SourceDistance, fields{domain.LoadNumber: "L2", domain.CustomerName: "shop a", domain.PlannedDistanceToCustomer: "20", domain.BudgetedKms: "50", domain.ActualKm: "55", domain.KmDeviation: "5"}),
		},
		domain.SourceTimestamps: {
			rec(domain.SourceTimestamps, fields{domain.LoadNumber: "L1", domain.ClockinTime: "31/01/2025 06:10", domain.CreateDate: "31/01/2025"}),
			rec(domain.SourceTimestamps, fields{domain.LoadNumber: "L1", domain.ArrivalAtDepot: "31/01/2025 18:00"}),
		},
	}
}

func TestBuildLookups(t *testing.T) {
	lk := BuildLookups(lookupExtracts())

	assert.Equal(t, "Shop A", lk.Customer["L1"], "customer extract outranks distance")
	assert.Equal(t, "shop a", lk.Customer["L2"])
	assert.Equal(t, "Mukasa", lk.Driver["L1"], "depot outranks customer")

	require.Contains(t, lk.Distance, "L1")
	want := map[domain.Column]string{
		domain.PlannedDistanceToCustomer: "12",
		domain.BudgetedKms:               "40",
		domain.ActualKm:                  "45",
	}
	if diff := cmp.Diff(want, lk.Distance["L1"].Values); diff != "" {
		t.Fatalf("distance values mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Shop B", lk.Distance["L1"].Customer)

	assert.Equal(t, "UAX 1", lk.Vehicle["L1"])
	assert.Equal(t, "Own", lk.VehicleTransporter["UAX 1"])
	assert.Equal(t, 2, lk.DriverVehicles["MUKASA"]["UAX 1"])
	assert.Equal(t, "Own", lk.Transporter["L1"])

	require.Contains(t, lk.Clockin, "L1")
	assert.Equal(t, TimeFacts{Primary: "31/01/2025 06:10", Secondary: "31/01/2025 18:00", Date: "31/01/2025"}, *lk.Clockin["L1"])
	assert.Equal(t, "01/02/2025 07:30", lk.Departure["L4"].Primary)
	assert.Equal(t, "01/02/2025 07:45", lk.Departure["L4"].Secondary)

	assert.Equal(t, 90.0, lk.ServiceTime["L1"])
	assert.NotContains(t, lk.ServiceTime, "L2", "negative service times are not measurements")
}

func TestLookupDistanceGroups(t *testing.T) {
	lk := BuildLookups(lookupExtracts())

	assert.Equal(t, []float64{20}, lk.CustomerDistances(" SHOP A", domain.PlannedDistanceToCustomer))
	assert.Empty(t, lk.CustomerDistances("", domain.PlannedDistanceToCustomer))
	// L1 has no Km Deviation, so only L2 is complete.
	assert.Equal(t, []float64{55}, lk.CompleteDistances(domain.ActualKm))
}

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42.5", 42.5, true},
		{"01:30", 90, true},
		{"00:01:30", 1.5, true},
		{"abc", 0, false},
		{"1:2:3:4", 0, false},
		{"1:-2", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseMinutes(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
