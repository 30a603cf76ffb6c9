package services

import (
	"context"
	"load-consolidation-service/internal/config"
	"load-consolidation-service/internal/domain"
	"math"
	"strconv"
)

// clockSamples are observed times of day (minutes after midnight) grouped
// the ways the time-of-day fallbacks look them up.
type clockSamples struct {
	driver   samples
	customer samples
	weekday  samples
	prefix   samples
	all      []float64
}

func newClockSamples() *clockSamples {
	return &clockSamples{driver: samples{}, customer: samples{}, weekday: samples{}, prefix: samples{}}
}

func (s *clockSamples) add(l *domain.Load, minute float64, date string, prefixLen int) {
	s.driver.add(fold(l.Get(domain.DriverName)), minute)
	s.customer.add(fold(l.Get(domain.CustomerName)), minute)
	s.weekday.add(weekday(date), minute)
	s.prefix.add(prefix(l.Key(), prefixLen), minute)
	s.all = append(s.all, minute)
}

func weekday(date string) string {
	t, ok := domain.ParseTimestamp(date)
	if !ok {
		return ""
	}
	return t.Weekday().String()
}

// clockStrategy turns a grouped median into a "<create date> HH:MM" estimate.
func clockStrategy(name string, group func(l *domain.Load) (float64, bool)) Strategy {
	return Strategy{Name: name, Fill: func(_ context.Context, l *domain.Load) (string, bool) {
		m, ok := group(l)
		if !ok {
			return "", false
		}
		return domain.FormatClock(l.Get(domain.CreateDate), m), true
	}}
}

// timeOfDayChain fills col from the per-load lookup, then from driver,
// customer, weekday and load-prefix medians of the looked-up times, then from
// the overall median (or fallback when nothing parsed).
func (f *Filler) timeOfDayChain(col domain.Column, facts map[string]*TimeFacts, fallback string, loads []*domain.Load) Chain {
	ms := f.Settings.MinSamples
	s := newClockSamples()
	for _, l := range loads {
		tf, ok := facts[l.Key()]
		if !ok {
			continue
		}
		if t, ok := domain.ParseTimestamp(tf.Primary); ok {
			s.add(l, domain.MinuteOfDay(t), tf.Date, f.Settings.PrefixLength)
		}
	}

	overall, ok := median(s.all)
	if !ok {
		// validated when the profile was parsed
		overall, _ = config.ParseClock(fallback)
	}

	return Chain{Column: col, Strategies: []Strategy{
		{Name: "load", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			tf, ok := facts[l.Key()]
			if !ok {
				return "", false
			}
			return tf.Primary, tf.Primary != ""
		}},
		clockStrategy("driver_median", func(l *domain.Load) (float64, bool) {
			return s.driver.median(fold(l.Get(domain.DriverName)), ms.Driver)
		}),
		clockStrategy("customer_median", func(l *domain.Load) (float64, bool) {
			return s.customer.median(fold(l.Get(domain.CustomerName)), ms.Customer)
		}),
		clockStrategy("weekday_median", func(l *domain.Load) (float64, bool) {
			return s.weekday.median(weekday(l.Get(domain.CreateDate)), ms.Weekday)
		}),
		clockStrategy("prefix_median", func(l *domain.Load) (float64, bool) {
			return s.prefix.median(prefix(l.Key(), f.Settings.PrefixLength), ms.Prefix)
		}),
		clockStrategy("overall_median", func(*domain.Load) (float64, bool) {
			return overall, true
		}),
	}}
}

func (f *Filler) fillClockin(ctx context.Context, loads []*domain.Load) error {
	clockin := f.timeOfDayChain(domain.ClockinTime, f.Lookups.Clockin, f.Settings.DefaultClockin, loads)
	arrival := Chain{Column: domain.ArrivalAtDepot, Strategies: []Strategy{
		{Name: "load", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			tf, ok := f.Lookups.Clockin[l.Key()]
			if !ok {
				return "", false
			}
			return tf.Secondary, tf.Secondary != ""
		}},
	}}
	return f.apply(ctx, loads, clockin, arrival)
}

func (f *Filler) fillPlannedDeparture(ctx context.Context, loads []*domain.Load) error {
	return f.apply(ctx, loads,
		f.timeOfDayChain(domain.PlannedDepartureTime, f.Lookups.Departure, f.Settings.DefaultPlannedDeparture, loads))
}

// fillDepartureDeviation recomputes the deviation wherever both departure
// times parse, replacing the extract's value, then estimates the rest.
func (f *Filler) fillDepartureDeviation(ctx context.Context, loads []*domain.Load) error {
	computed := Chain{Column: domain.DepartureDeviationMin, Overwrite: true, Strategies: []Strategy{
		{Name: "dj_minus_planned", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			planned, ok1 := domain.ParseTimestamp(l.Get(domain.PlannedDepartureTime))
			dj, ok2 := domain.ParseTimestamp(l.Get(domain.DjDepartureTime))
			if !ok1 || !ok2 {
				return "", false
			}
			return strconv.Itoa(int(math.Round(dj.Sub(planned).Minutes()))), true
		}},
	}}
	if err := f.apply(ctx, loads, computed); err != nil {
		return err
	}

	ms := f.Settings.MinSamples
	byDriver, byCustomer := samples{}, samples{}
	var all []float64
	for _, l := range loads {
		d, ok := l.Number(domain.DepartureDeviationMin)
		if !ok {
			continue
		}
		byDriver.add(fold(l.Get(domain.DriverName)), d)
		byCustomer.add(fold(l.Get(domain.CustomerName)), d)
		all = append(all, d)
	}

	rounded := func(m float64, ok bool) (string, bool) {
		if !ok {
			return "", false
		}
		return strconv.Itoa(int(math.Round(m))), true
	}

	return f.apply(ctx, loads, Chain{Column: domain.DepartureDeviationMin, Strategies: []Strategy{
		{Name: "driver_median", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			return rounded(byDriver.median(fold(l.Get(domain.DriverName)), ms.Driver))
		}},
		{Name: "customer_median", Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			return rounded(byCustomer.median(fold(l.Get(domain.CustomerName)), ms.Customer))
		}},
		{Name: "overall_median", Fill: func(context.Context, *domain.Load) (string, bool) {
			return rounded(median(all))
		}},
	}})
}

func (f *Filler) fillAveDeparture(ctx context.Context, loads []*domain.Load) error {
	ms := f.Settings.MinSamples
	s := newClockSamples()
	for _, l := range loads {
		if t, ok := domain.ParseTimestamp(l.Get(domain.DjDepartureTime)); ok {
			s.add(l, domain.MinuteOfDay(t), l.Get(domain.CreateDate), f.Settings.PrefixLength)
		}
	}

	overall, ok := median(s.all)
	if !ok {
		overall, _ = config.ParseClock(f.Settings.DefaultAveDeparture)
	}

	return f.apply(ctx, loads, Chain{Column: domain.AveDeparture, Overwrite: true, Strategies: []Strategy{
		clockStrategy("driver_median", func(l *domain.Load) (float64, bool) {
			return s.driver.median(fold(l.Get(domain.DriverName)), ms.Driver)
		}),
		clockStrategy("customer_median", func(l *domain.Load) (float64, bool) {
			return s.customer.median(fold(l.Get(domain.CustomerName)), ms.Customer)
		}),
		clockStrategy("prefix_median", func(l *domain.Load) (float64, bool) {
			return s.prefix.median(prefix(l.Key(), f.Settings.PrefixLength), ms.Prefix)
		}),
		clockStrategy("overall_median", func(*domain.Load) (float64, bool) {
			return overall, true
		}),
	}})
}
