package config

import (
	"load-consolidation-service/internal/domain"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile(t *testing.T) {
	p, err := DefaultProfile()
	require.NoError(t, err)

	assert.Equal(t, "jinja", p.Warehouse)
	assert.Equal(t, "DJ", p.ModeOfCapture)
	assert.Len(t, p.Sources, len(domain.Sources()))

	for _, s := range domain.Sources() {
		spec, ok := p.Source(s)
		require.True(t, ok, "source %s", s)
		assert.Equal(t, s, spec.Source)
		assert.Contains(t, spec.Columns, domain.LoadNumber)
		assert.Equal(t, rune(0), spec.Comma)
	}

	tr, _ := p.Source(domain.SourceTimeRoute)
	assert.Equal(t, ConvertMinutesToHours, tr.Conversions[domain.TotalHourRoute])
	assert.Equal(t, ConvertMinutesToDays, tr.Conversions[domain.DaysInRouteDeviation])
	assert.Equal(t, ConvertMinutesToDays, tr.Conversions[domain.ActualDaysInRoute])
	assert.Equal(t, ConvertMinutesToDays, tr.Conversions[domain.BudDaysInRoute])
	assert.Equal(t, []string{"Planned Time in Route (min)"}, tr.Columns[domain.BudDaysInRoute])

	cust, _ := p.Source(domain.SourceCustomer)
	assert.Equal(t, cust.Columns[domain.ArrivalAtCustomer], cust.Columns[domain.AveArrivalTime])
	assert.Equal(t, cust.Columns[domain.DepartureTimeFromCustomer], cust.Columns[domain.ClockOut])

	dist, _ := p.Source(domain.SourceDistance)
	assert.Equal(t, []string{"Planned Load Distance"}, dist.Columns[domain.BudgetedKms])

	assert.Equal(t, MinSamples{Driver: 2, Customer: 3, Weekday: 10, Prefix: 5}, p.Fill.MinSamples)
	assert.False(t, p.Fill.DistanceGlobalMedian)
	assert.Equal(t, []KeywordRule{{Match: "KESHWALA", Value: "Hired"}}, p.Fill.Transporter.Keywords)
}

func TestParseProfileDefaultsAndDelimiter(t *testing.T) {
	p, err := ParseProfile([]byte(`
sources:
  depot:
    file: depot.tsv
    delimiter: tab
    fields:
      Load Number: [Load Name]
`))
	require.NoError(t, err)

	spec, ok := p.Source(domain.SourceDepot)
	require.True(t, ok)
	assert.Equal(t, '\t', spec.Comma)

	_, ok = p.Source(domain.SourceCustomer)
	assert.False(t, ok)

	assert.Equal(t, "jinja", p.Warehouse)
	assert.Equal(t, 600.0, p.Fill.ServiceTime.MaxMinutes)
	assert.Equal(t, "driving-car", p.Estimator.Profile)
}

func TestParseProfileRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key": `
colour: blue
sources:
  depot: {file: a.csv, fields: {Load Number: [Load]}}
`,
		"unknown source": `
sources:
  fuel: {file: a.csv, fields: {Load Number: [Load]}}
`,
		"unknown column": `
sources:
  depot: {file: a.csv, fields: {Load Number: [Load], Fuel Litres: [Fuel]}}
`,
		"no load number": `
sources:
  depot: {file: a.csv, fields: {Driver Name: [Driver]}}
`,
		"bad conversion": `
sources:
  depot: {file: a.csv, fields: {Load Number: [Load]}, convert: {Total Hour Route: furlongs}}
`,
		"bad delimiter": `
sources:
  depot: {file: a.csv, delimiter: "#", fields: {Load Number: [Load]}}
`,
		"bad clock": `
sources:
  depot: {file: a.csv, fields: {Load Number: [Load]}}
fill:
  default_clockin: "25:00"
`,
		"no sources": `warehouse: kampala`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfile([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadProfileFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
warehouse: mbale
sources:
  customer: {file: c.csv, delimiter: ";", fields: {Load Number: [load_name]}}
`), 0o644))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "mbale", p.Warehouse)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, 510.0, m)

	for _, bad := range []string{"8", "24:00", "10:61", "aa:bb"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("CONSOLIDATE_TEST_PORT", " 9090 ")
	assert.Equal(t, "9090", Get("CONSOLIDATE_TEST_PORT", "8080"))
	assert.Equal(t, "8080", Get("CONSOLIDATE_TEST_UNSET", "8080"))

	t.Setenv("CONSOLIDATE_TEST_FLAG", "yes")
	assert.True(t, GetBool("CONSOLIDATE_TEST_FLAG", false))
	t.Setenv("CONSOLIDATE_TEST_FLAG", "garbage")
	assert.True(t, GetBool("CONSOLIDATE_TEST_FLAG", true))
}
