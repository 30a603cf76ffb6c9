package services

import (
	"load-consolidation-service/internal/domain"
	"strings"
)

// distanceColumns are filled together from the distance extract.
var distanceColumns = []domain.Column{
	domain.PlannedDistanceToCustomer,
	domain.BudgetedKms,
	domain.ActualKm,
	domain.KmDeviation,
}

// DistanceFacts are the distance figures reported for one load.
type DistanceFacts struct {
	Values   map[domain.Column]string
	Customer string
}

// TimeFacts are the raw time values reported for one load.
type TimeFacts struct {
	Primary   string
	Secondary string
	Date      string
}

// Lookups index the raw extracts by load number (and a few other keys) so
// that gaps in the merged rows can be filled from any source. Every map is
// first-wins in merge priority order.
type Lookups struct {
	Customer           map[string]string
	Distance           map[string]*DistanceFacts
	Driver             map[string]string
	Vehicle            map[string]string
	DriverVehicles     tallies
	VehicleTransporter map[string]string
	DriverTransporters tallies
	Transporter        map[string]string
	Clockin            map[string]*TimeFacts
	Departure          map[string]*TimeFacts
	ServiceTime        map[string]float64

	// distanceOrder keeps customer medians independent of map iteration.
	distanceOrder []string
}

// BuildLookups indexes ex.
func BuildLookups(ex domain.Extracts) *Lookups {
	lk := &Lookups{
		Customer:           map[string]string{},
		Distance:           map[string]*DistanceFacts{},
		Driver:             map[string]string{},
		Vehicle:            map[string]string{},
		DriverVehicles:     tallies{},
		VehicleTransporter: map[string]string{},
		DriverTransporters: tallies{},
		Transporter:        map[string]string{},
		Clockin:            map[string]*TimeFacts{},
		Departure:          map[string]*TimeFacts{},
		ServiceTime:        map[string]float64{},
	}

	for _, s := range []domain.Source{domain.SourceCustomer, domain.SourceDistance, domain.SourceTimeRoute} {
		for _, r := range ex[s] {
			firstWins(lk.Customer, r.Value(domain.LoadNumber), r.Value(domain.CustomerName))
		}
	}

	for _, r := range ex[domain.SourceDistance] {
		load := r.Value(domain.LoadNumber)
		if load == "" {
			continue
		}
		f, ok := lk.Distance[load]
		if !ok {
			f = &DistanceFacts{Values: map[domain.Column]string{}}
			lk.Distance[load] = f
			lk.distanceOrder = append(lk.distanceOrder, load)
		}
		for _, c := range distanceColumns {
			if _, ok := f.Values[c]; !ok && r.Value(c) != "" {
				f.Values[c] = r.Value(c)
			}
		}
		if f.Customer == "" {
			f.Customer = r.Value(domain.CustomerName)
		}
	}

	for _, s := range []domain.Source{domain.SourceDepot, domain.SourceCustomer, domain.SourceDistance, domain.SourceTimeRoute} {
		for _, r := range ex[s] {
			firstWins(lk.Driver, r.Value(domain.LoadNumber), r.Value(domain.DriverName))
		}
	}

	for _, s := range []domain.Source{domain.SourceDepot, domain.SourceDistance} {
		for _, r := range ex[s] {
			load := r.Value(domain.LoadNumber)
			driver := r.Value(domain.DriverName)
			vehicle := r.Value(domain.VehicleReg)
			transporter := r.Value(domain.Transporter)

			firstWins(lk.Vehicle, load, vehicle)
			firstWins(lk.Transporter, load, transporter)
			lk.DriverVehicles.add(fold(driver), vehicle)
			if transporter != "" {
				lk.DriverTransporters.add(fold(driver), transporter)
				firstWins(lk.VehicleTransporter, fold(vehicle), transporter)
			}
		}
	}

	for _, r := range ex[domain.SourceTimestamps] {
		load := r.Value(domain.LoadNumber)
		if load == "" {
			continue
		}
		mergeTimes(lk.Clockin, load, r.Value(domain.ClockinTime), r.Value(domain.ArrivalAtDepot), r.Value(domain.CreateDate))
	}

	for _, r := range ex[domain.SourceDepot] {
		load := r.Value(domain.LoadNumber)
		if load == "" {
			continue
		}
		mergeTimes(lk.Departure, load, r.Value(domain.PlannedDepartureTime), r.Value(domain.DjDepartureTime), r.Value(domain.CreateDate))
	}

	for _, r := range ex[domain.SourceCustomer] {
		load := r.Value(domain.LoadNumber)
		if load == "" {
			continue
		}
		if _, seen := lk.ServiceTime[load]; seen {
			continue
		}
		if m, ok := parseMinutes(r.Value(domain.ServiceTimeAtCustomer)); ok && m >= 0 {
			lk.ServiceTime[load] = m
		}
	}

	return lk
}

// CustomerDistances returns the numeric values of c reported for loads
// delivered to customer (case-insensitive).
func (lk *Lookups) CustomerDistances(customer string, c domain.Column) []float64 {
	key := fold(customer)
	if key == "" {
		return nil
	}
	var out []float64
	for _, load := range lk.distanceOrder {
		f := lk.Distance[load]
		if fold(f.Customer) != key {
			continue
		}
		if v, ok := domain.ParseNumber(f.Values[c]); ok {
			out = append(out, v)
		}
	}
	return out
}

// CompleteDistances returns the values of c across loads that report all four distance figures.
func (lk *Lookups) CompleteDistances(c domain.Column) []float64 {
	var out []float64
	for _, load := range lk.distanceOrder {
		f := lk.Distance[load]
		complete := true
		for _, dc := range distanceColumns {
			if _, ok := domain.ParseNumber(f.Values[dc]); !ok {
				complete = false
				break
			}
		}
		if complete {
			v, _ := domain.ParseNumber(f.Values[c])
			out = append(out, v)
		}
	}
	return out
}

func firstWins(m map[string]string, key, v string) {
	if key == "" || v == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = v
	}
}

func mergeTimes(m map[string]*TimeFacts, load, primary, secondary, date string) {
	f, ok := m[load]
	if !ok {
		f = &TimeFacts{}
		m[load] = f
	}
	if f.Primary == "" {
		f.Primary = primary
	}
	if f.Secondary == "" {
		f.Secondary = secondary
	}
	if f.Date == "" {
		f.Date = date
	}
}

// parseMinutes accepts plain minutes ("42.5") or a clock duration ("01:05:30").
func parseMinutes(v string) (float64, bool) {
	if f, ok := domain.ParseNumber(v); ok {
		return f, true
	}
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var total float64
	scale := []float64{60, 1, 1.0 / 60}
	for i, p := range parts {
		n, ok := domain.ParseNumber(p)
		if !ok || n < 0 {
			return 0, false
		}
		total += n * scale[i]
	}
	return total, true
}
