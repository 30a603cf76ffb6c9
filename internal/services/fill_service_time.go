package services

import (
	"context"
	"load-consolidation-service/internal/domain"
	"math"
	"strings"
)

// Service time provenance written to Service Time Source.
const (
	ServiceMeasured   = "Customer_Timestamps_Measured"
	ServiceTimestamps = "Calculated_Reliable_Timestamps"
	ServiceCustomer   = "Customer_Median"
	ServiceVolume     = "Volume_Rate_Estimate"
	ServiceMinimum    = "Minimum_Default"
)

// Data Quality grades.
const (
	QualityHigh   = "HIGH_ACCURACY"
	QualityMedium = "MEDIUM_ACCURACY"
	QualityLow    = "LOW_ACCURACY"
)

func serviceTags(source, quality string) map[domain.Column]string {
	return map[domain.Column]string{
		domain.ServiceTimeSource: source,
		domain.DataQuality:       quality,
	}
}

func formatMinutes(m float64) string { return domain.FormatNumber(m, 1) }

func (f *Filler) fillServiceTime(ctx context.Context, loads []*domain.Load) error {
	st := f.Settings.ServiceTime

	// Values that arrived with the row are measurements.
	for _, l := range loads {
		if l.IsBlank(domain.ServiceTimeAtCustomer) {
			continue
		}
		m, ok := parseMinutes(l.Get(domain.ServiceTimeAtCustomer))
		if !ok || m < 0 {
			l.Set(domain.ServiceTimeAtCustomer, "")
			continue
		}
		l.Set(domain.ServiceTimeAtCustomer, formatMinutes(m))
		l.SetIfBlank(domain.ServiceTimeSource, ServiceMeasured)
		l.SetIfBlank(domain.DataQuality, QualityHigh)
	}

	measured := Chain{Column: domain.ServiceTimeAtCustomer, Strategies: []Strategy{
		{Name: ServiceMeasured, Tags: serviceTags(ServiceMeasured, QualityHigh), Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			m, ok := f.Lookups.ServiceTime[l.Key()]
			return formatMinutes(m), ok
		}},
	}}
	if err := f.apply(ctx, loads, measured); err != nil {
		return err
	}

	byCustomer := samples{}
	var rates []float64
	for _, l := range loads {
		if l.Get(domain.DataQuality) != QualityHigh {
			continue
		}
		m, ok := l.Number(domain.ServiceTimeAtCustomer)
		if !ok {
			continue
		}
		byCustomer.add(fold(l.Get(domain.CustomerName)), m)
		if vol, ok := l.Number(domain.VolHl); ok && vol > 0 {
			rates = append(rates, m/vol)
		}
	}
	rate, haveRate := median(rates)

	return f.apply(ctx, loads, Chain{Column: domain.ServiceTimeAtCustomer, Strategies: []Strategy{
		{Name: ServiceTimestamps, Tags: serviceTags(ServiceTimestamps, QualityMedium), Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			m, ok := timestampServiceMinutes(l.Get(domain.ArrivalAtCustomer), l.Get(domain.DepartureTimeFromCustomer))
			return formatMinutes(m), ok
		}},
		{Name: ServiceCustomer, Tags: serviceTags(ServiceCustomer, QualityMedium), Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			m, ok := byCustomer.median(fold(l.Get(domain.CustomerName)), st.CustomerMinSamples)
			return formatMinutes(m), ok
		}},
		{Name: ServiceVolume, Tags: serviceTags(ServiceVolume, QualityMedium), Fill: func(_ context.Context, l *domain.Load) (string, bool) {
			vol, ok := l.Number(domain.VolHl)
			if !ok || vol <= 0 || !haveRate {
				return "", false
			}
			m := math.Min(math.Max(vol*rate, st.MinMinutes), st.MaxMinutes)
			return formatMinutes(m), true
		}},
		{Name: ServiceMinimum, Tags: serviceTags(ServiceMinimum, QualityLow), Fill: func(context.Context, *domain.Load) (string, bool) {
			return formatMinutes(st.FloorMinutes), true
		}},
	}})
}

// timestampServiceMinutes is the time between arrival and departure at the
// customer. A negative span wraps past midnight. Identical stamps and spans
// over a day are not trusted.
func timestampServiceMinutes(arrival, departure string) (float64, bool) {
	if domain.IsBlank(arrival) || domain.IsBlank(departure) {
		return 0, false
	}
	if strings.TrimSpace(arrival) == strings.TrimSpace(departure) {
		return 0, false
	}

	a, ok1 := domain.ParseTimestamp(arrival)
	d, ok2 := domain.ParseTimestamp(departure)
	if !ok1 || !ok2 {
		return 0, false
	}

	m := d.Sub(a).Minutes()
	if m < 0 {
		m += 24 * 60
	}
	if m < 0 || m > 24*60 {
		return 0, false
	}
	return m, true
}
