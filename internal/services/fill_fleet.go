package services

import (
	"context"
	"load-consolidation-service/internal/domain"
	"strings"
)

func (f *Filler) fillVehicle(ctx context.Context, loads []*domain.Load) error {
	return f.apply(ctx, loads, Chain{Column: domain.VehicleReg, Strategies: []Strategy{
		fromMap("load", f.Lookups.Vehicle),
		{Name: "driver_most_common", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			v, _, ok := f.Lookups.DriverVehicles[fold(l.Get(domain.DriverName))].top()
			return v, ok
		}},
	}})
}

func (f *Filler) fillDriver(ctx context.Context, loads []*domain.Load) error {
	return f.apply(ctx, loads, Chain{Column: domain.DriverName, Strategies: []Strategy{
		fromMap("load", f.Lookups.Driver),
	}})
}

func (f *Filler) fillTransporter(ctx context.Context, loads []*domain.Load) error {
	ts := f.Settings.Transporter
	lk := f.Lookups

	byCustomer := tallies{}
	byPrefix := tallies{}
	company := tally{}
	for load, t := range lk.Transporter {
		byCustomer.add(fold(lk.Customer[load]), t)
		byPrefix.add(prefix(load, f.Settings.PrefixLength), t)
		company.add(t)
	}

	companyDefault := ts.Default
	if v, n, ok := company.top(); ok {
		tied := false
		for other, m := range company {
			if other != v && m == n {
				tied = true
			}
		}
		if !tied {
			companyDefault = v
		}
	}

	return f.apply(ctx, loads, Chain{Column: domain.Transporter, Strategies: []Strategy{
		fromMap("load", lk.Transporter),
		{Name: "vehicle", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			v, ok := lk.VehicleTransporter[fold(l.Get(domain.VehicleReg))]
			return v, ok
		}},
		{Name: "driver_majority", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			return lk.DriverTransporters.majority(fold(l.Get(domain.DriverName)), ts.DriverMinCount)
		}},
		{Name: "customer_majority", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			return byCustomer.majority(fold(l.Get(domain.CustomerName)), ts.CustomerMinCount)
		}},
		{Name: "driver_keyword", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			driver := fold(l.Get(domain.DriverName))
			if driver == "" {
				return "", false
			}
			for _, k := range ts.Keywords {
				if strings.Contains(driver, fold(k.Match)) {
					return k.Value, true
				}
			}
			return "", false
		}},
		{Name: "prefix_majority", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			g := byPrefix[prefix(l.Key(), f.Settings.PrefixLength)]
			total := g.total()
			if total < ts.PrefixMinSamples {
				return "", false
			}
			v, n, _ := g.top()
			if float64(n)/float64(total) < ts.PrefixMinShare {
				return "", false
			}
			return v, true
		}},
		{Name: "company_majority", Fill: func(context.Context, *domain.Load) (string, bool) {
			return companyDefault, true
		}},
	}})
}
