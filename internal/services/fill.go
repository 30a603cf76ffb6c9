package services

import (
	"context"
	"fmt"
	"load-consolidation-service/internal/config"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/platform/obs"
	"sort"

	"go.uber.org/zap"
)

// Strategy proposes a value for a blank cell. Tags are written to their
// columns alongside the value when the strategy wins.
type Strategy struct {
	Name string
	Tags map[domain.Column]string
	Fill func(ctx context.Context, l *domain.Load) (string, bool)
}

// Chain fills one column by trying its strategies in order.
type Chain struct {
	Column     domain.Column
	Strategies []Strategy
	// Overwrite lets the winning strategy replace a value already present.
	Overwrite bool
}

// FillCounts records how many cells each strategy filled, per column name.
type FillCounts map[string]map[string]int

func (fc FillCounts) add(c domain.Column, strategy string) {
	name := c.String()
	if fc[name] == nil {
		fc[name] = map[string]int{}
	}
	fc[name][strategy]++
}

// Apply fills every blank cell of the chain's column that some strategy can
// answer. Only changed cells are counted.
func (ch Chain) Apply(ctx context.Context, loads []*domain.Load, counts FillCounts) error {
	for _, l := range loads {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !ch.Overwrite && !l.IsBlank(ch.Column) {
			continue
		}

		for _, s := range ch.Strategies {
			v, ok := s.Fill(ctx, l)
			if !ok || domain.IsBlank(v) {
				continue
			}
			if v == l.Get(ch.Column) {
				break
			}
			l.Set(ch.Column, v)
			for c, tag := range s.Tags {
				l.Set(c, tag)
			}
			counts.add(ch.Column, s.Name)
			break
		}
	}
	return nil
}

// DistanceEstimator estimates the planned distance from the depot to a customer.
type DistanceEstimator interface {
	EstimateKm(ctx context.Context, customer string) (float64, error)
}

// Filler runs the gap-filling stages over a consolidated table.
type Filler struct {
	Settings  config.FillSettings
	Lookups   *Lookups
	Estimator DistanceEstimator
	Log       *zap.Logger
	Counts    FillCounts
}

func NewFiller(settings config.FillSettings, lk *Lookups, est DistanceEstimator, log *zap.Logger) *Filler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Filler{
		Settings:  settings,
		Lookups:   lk,
		Estimator: est,
		Log:       log,
		Counts:    FillCounts{},
	}
}

type stage struct {
	name string
	run  func(ctx context.Context, loads []*domain.Load) error
}

// Run fills loads in place and then orders them by month.
func (f *Filler) Run(ctx context.Context, loads []*domain.Load) (err error) {
	defer obs.Time(ctx, f.Log, "services.Fill")(&err)

	stages := []stage{
		{"distance", f.fillDistance},
		{"vehicle", f.fillVehicle},
		{"transporter", f.fillTransporter},
		{"driver", f.fillDriver},
		{"clockin", f.fillClockin},
		{"planned_departure", f.fillPlannedDeparture},
		{"departure_deviation", f.fillDepartureDeviation},
		{"ave_departure", f.fillAveDeparture},
		{"service_time", f.fillServiceTime},
		{"route_metrics", f.fillRouteMetrics},
	}
	for _, s := range stages {
		if err := s.run(ctx, loads); err != nil {
			return fmt.Errorf("fill %s: %w", s.name, err)
		}
		f.Log.Debug("fill stage done", zap.String("run_id", obs.RunID(ctx)), zap.String("stage", s.name))
	}

	SortByMonth(loads)
	return nil
}

func (f *Filler) apply(ctx context.Context, loads []*domain.Load, chains ...Chain) error {
	for _, ch := range chains {
		if err := ch.Apply(ctx, loads, f.Counts); err != nil {
			return err
		}
	}
	return nil
}

// SortByMonth orders rows January to December, keeping the merge order within
// a month. Rows without a month go last.
func SortByMonth(loads []*domain.Load) {
	sort.SliceStable(loads, func(i, j int) bool {
		return domain.MonthIndex(loads[i].Get(domain.MonthName)) < domain.MonthIndex(loads[j].Get(domain.MonthName))
	})
}

// fromMap answers with m[load number].
func fromMap(name string, m map[string]string) Strategy {
	return Strategy{Name: name, Fill: func(_ context.Context, l *domain.Load) (string, bool) {
		v, ok := m[l.Key()]
		return v, ok
	}}
}
