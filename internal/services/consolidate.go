package services

import (
	"load-consolidation-service/internal/config"
	"load-consolidation-service/internal/domain"
)

// Consolidation is the merged table before any gap filling.
type Consolidation struct {
	Loads   []*domain.Load
	Records int
	// Dropped counts records without a load number.
	Dropped int
}

// Consolidate maps every extract record onto the output columns and merges
// records sharing a load number. For each column the first non-blank value in
// merge priority order wins; rows keep the order their load first appeared in.
func Consolidate(ex domain.Extracts, lk *Lookups, p *config.Profile) *Consolidation {
	out := &Consolidation{}
	byLoad := map[string]*domain.Load{}

	for _, s := range domain.Sources() {
		spec, _ := p.Source(s)

		for _, r := range ex[s] {
			out.Records++

			row := mapRecord(r, spec, lk, p)
			key := row.Key()
			if key == "" {
				out.Dropped++
				continue
			}

			merged, ok := byLoad[key]
			if !ok {
				byLoad[key] = row
				out.Loads = append(out.Loads, row)
				continue
			}
			for _, c := range domain.Columns() {
				merged.SetIfBlank(c, row.Get(c))
			}
		}
	}

	return out
}

// mapRecord builds the partial row one record contributes.
func mapRecord(r domain.Record, spec config.SourceSpec, lk *Lookups, p *config.Profile) *domain.Load {
	row := domain.NewLoad(r.Value(domain.LoadNumber))

	for c := range r.Fields {
		v := r.Value(c)
		if v == "" {
			continue
		}
		row.Set(c, convert(v, spec.Conversions[c]))
	}

	row.Set(domain.Mwarehouse, p.Warehouse)
	row.Set(domain.ModeOfCapture, p.ModeOfCapture)
	if m := domain.MonthOf(row.Get(domain.CreateDate)); m != "" {
		row.Set(domain.MonthName, m)
	}

	key := row.Key()
	row.SetIfBlank(domain.CustomerName, lk.Customer[key])
	row.SetIfBlank(domain.DriverName, lk.Driver[key])

	return row
}

// convert applies a unit conversion; non-numeric values pass through untouched.
func convert(v string, conv config.Conversion) string {
	if conv == config.ConvertNone {
		return v
	}
	f, ok := domain.ParseNumber(v)
	if !ok {
		return v
	}
	switch conv {
	case config.ConvertMinutesToHours:
		return domain.FormatNumber(f/60, 2)
	case config.ConvertMinutesToDays:
		return domain.FormatNumber(f/1440, 2)
	}
	return v
}
