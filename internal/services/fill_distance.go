package services

import (
	"context"
	"load-consolidation-service/internal/domain"

	"go.uber.org/zap"
)

// DistanceWarmer is implemented by estimators that can resolve many customers in one call.
type DistanceWarmer interface {
	Warm(ctx context.Context, customers []string) error
}

func (f *Filler) fillDistance(ctx context.Context, loads []*domain.Load) error {
	if w, ok := f.Estimator.(DistanceWarmer); ok {
		if customers := f.unresolvedCustomers(loads); len(customers) > 0 {
			if err := w.Warm(ctx, customers); err != nil {
				f.Log.Warn("route estimate warm-up failed", zap.Error(err))
			}
		}
	}

	for _, c := range distanceColumns {
		ch := Chain{Column: c, Strategies: []Strategy{
			{Name: "load", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
				d, ok := f.Lookups.Distance[l.Key()]
				if !ok {
					return "", false
				}
				v := d.Values[c]
				return v, v != ""
			}},
			f.customerDistanceMedian(c),
		}}

		if c == domain.PlannedDistanceToCustomer && f.Estimator != nil {
			ch.Strategies = append(ch.Strategies, f.routeEstimate())
		}

		if f.Settings.DistanceGlobalMedian {
			if m, ok := median(f.Lookups.CompleteDistances(c)); ok {
				v := domain.FormatNumber(m, 1)
				ch.Strategies = append(ch.Strategies, Strategy{Name: "global_median", Fill: func(context.Context, *domain.Load) (string, bool) {
					return v, true
				}})
			}
		}

		if err := ch.Apply(ctx, loads, f.Counts); err != nil {
			return err
		}
	}

	// A missing deviation follows from the other two figures.
	for _, l := range loads {
		if !l.IsBlank(domain.KmDeviation) {
			continue
		}
		budgeted, ok1 := l.Number(domain.BudgetedKms)
		actual, ok2 := l.Number(domain.ActualKm)
		if ok1 && ok2 {
			l.Set(domain.KmDeviation, domain.FormatNumber(actual-budgeted, 1))
			f.Counts.add(domain.KmDeviation, "actual_minus_budgeted")
		}
	}

	return nil
}

// unresolvedCustomers lists customers of loads whose planned distance neither
// the distance extract nor a customer median can supply.
func (f *Filler) unresolvedCustomers(loads []*domain.Load) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range loads {
		if !l.IsBlank(domain.PlannedDistanceToCustomer) {
			continue
		}
		if d, ok := f.Lookups.Distance[l.Key()]; ok && d.Values[domain.PlannedDistanceToCustomer] != "" {
			continue
		}
		customer := fold(l.Get(domain.CustomerName))
		if customer == "" || seen[customer] {
			continue
		}
		seen[customer] = true
		if len(f.Lookups.CustomerDistances(customer, domain.PlannedDistanceToCustomer)) > 0 {
			continue
		}
		out = append(out, l.Get(domain.CustomerName))
	}
	return out
}

func (f *Filler) customerDistanceMedian(c domain.Column) Strategy {
	memo := map[string]string{}
	return Strategy{Name: "customer_median", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
		customer := fold(l.Get(domain.CustomerName))
		if customer == "" {
			return "", false
		}
		v, seen := memo[customer]
		if !seen {
			if m, ok := median(f.Lookups.CustomerDistances(customer, c)); ok {
				v = domain.FormatNumber(m, 1)
			}
			memo[customer] = v
		}
		return v, v != ""
	}}
}

func (f *Filler) routeEstimate() Strategy {
	return Strategy{Name: "route_estimate", Fill: func(ctx context.Context, l *domain.Load) (string, bool) {
		customer := l.Get(domain.CustomerName)
		if domain.IsBlank(customer) {
			return "", false
		}
		km, err := f.Estimator.EstimateKm(ctx, customer)
		if err != nil {
			f.Log.Debug("route estimate unavailable", zap.String("customer", customer), zap.Error(err))
			return "", false
		}
		return domain.FormatNumber(km, 1), true
	}}
}
