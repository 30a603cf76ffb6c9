package services

import (
	"context"
	"load-consolidation-service/internal/domain"
	"time"
)

// span answers with the time from one timestamp column to another, scaled by unit.
func span(name string, from, to domain.Column, unit time.Duration) Strategy {
	return Strategy{Name: name, Fill: func(_ context.Context, l *domain.Load) (string, bool) {
		start, ok1 := domain.ParseTimestamp(l.Get(from))
		end, ok2 := domain.ParseTimestamp(l.Get(to))
		if !ok1 || !ok2 {
			return "", false
		}
		return domain.FormatNumber(float64(end.Sub(start))/float64(unit), 2), true
	}}
}

func (f *Filler) fillRouteMetrics(ctx context.Context, loads []*domain.Load) error {
	day := 24 * time.Hour

	return f.apply(ctx, loads,
		Chain{Column: domain.ActualDaysInRoute, Strategies: []Strategy{
			span("depot_arrival_minus_dj_departure", domain.DjDepartureTime, domain.ArrivalAtDepot, day),
		}},
		Chain{Column: domain.BudDaysInRoute, Strategies: []Strategy{
			span("depot_arrival_minus_planned_departure", domain.PlannedDepartureTime, domain.ArrivalAtDepot, day),
		}},
		Chain{Column: domain.TotalHourRoute, Strategies: []Strategy{
			span("depot_arrival_minus_dj_departure", domain.DjDepartureTime, domain.ArrivalAtDepot, time.Hour),
		}},
		Chain{Column: domain.DaysInRouteDeviation, Strategies: []Strategy{
			{Name: "actual_minus_budgeted", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
				actual, ok1 := l.Number(domain.ActualDaysInRoute)
				budgeted, ok2 := l.Number(domain.BudDaysInRoute)
				if !ok1 || !ok2 {
					return "", false
				}
				return domain.FormatNumber(actual-budgeted, 2), true
			}},
		}},
	)
}
