package domain

import "strings"

// Column identifies one field of a consolidated load row.
// The declaration order is the output column order.
type Column int

const (
	CreateDate Column = iota
	MonthName
	Transporter
	LoadNumber
	ModeOfCapture
	DriverName
	VehicleReg
	CustomerName
	VolHl
	InvoiceNumber
	Mwarehouse
	BudgetedKms
	PlannedDistanceToCustomer
	ActualKm
	KmDeviation
	Comment
	ClockinTime
	PlannedDepartureTime
	DjDepartureTime
	DepartureDeviationMin
	AveDeparture
	CommentAveDeparture
	ArrivalAtCustomer
	DepartureTimeFromCustomer
	ServiceTimeAtCustomer
	CommentTat
	ArrivalAtDepot
	ClockOut
	AveArrivalTime
	CommentAveArrivalTime
	ActualDaysInRoute
	BudDaysInRoute
	DaysInRouteDeviation
	TotalHourRoute
	DriverRestHoursInRoute
	TotalWh
	Tlp
	D1
	D2
	D3
	D4
	CommentAveTir
	ServiceTimeSource
	DataQuality

	NumColumns
)

var columnNames = [NumColumns]string{
	"Create Date", "Month Name", "Transporter", "Load Number", "Mode Of Capture", "Driver Name",
	"Vehicle Reg", "Customer Name", "Vol Hl", "Invoice Number", "Mwarehouse", "Budgeted Kms",
	"PlannedDistanceToCustomer", "Actual Km", "Km Deviation", "Comment", "Clockin Time",
	"Planned Departure Time", "Dj Departure Time", "Departure Deviation Min", "Ave Departure",
	"Comment Ave Departure", "Arrival At Customer", "Departure Time From Customer",
	"Service Time At Customer", "Comment Tat", "Arrival At Depot", "Clock Out", "Ave Arrival Time",
	"Comment Ave Arrival Time", "Actual Days In Route", "Bud Days In Route", "Days In Route Deviation",
	"Total Hour Route", "Driver Rest Hours In Route", "Total Wh", "Tlp", "D1", "D2", "D3", "D4",
	"Comment Ave Tir", "Service Time Source", "Data Quality",
}

var columnsByKey = func() map[string]Column {
	m := make(map[string]Column, NumColumns)
	for c := Column(0); c < NumColumns; c++ {
		m[NormalizeHeader(columnNames[c])] = c
	}
	return m
}()

func (c Column) String() string {
	if c < 0 || c >= NumColumns {
		return "Column(?)"
	}
	return columnNames[c]
}

// Columns returns every column in output order.
func Columns() []Column {
	out := make([]Column, 0, NumColumns)
	for c := Column(0); c < NumColumns; c++ {
		out = append(out, c)
	}
	return out
}

// Headers returns the display names of cols, or of every column when cols is empty.
func Headers(cols ...Column) []string {
	if len(cols) == 0 {
		cols = Columns()
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.String())
	}
	return out
}

// ColumnByName resolves a header to a column, ignoring case, spacing and punctuation.
func ColumnByName(name string) (Column, bool) {
	c, ok := columnsByKey[NormalizeHeader(name)]
	return c, ok
}

// NormalizeHeader folds a header for alias matching:
// "Load StartTime (Pre-Trip Start)" and "load_starttime_pretrip_start" compare equal.
func NormalizeHeader(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.TrimPrefix(value, "\ufeff")
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch r {
		case ' ', '\t', '_', '-', '.', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
