package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"load-consolidation-service/internal/config"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/platform/obs"
	"load-consolidation-service/internal/ports"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoSources is returned when none of the extracts could be read.
var ErrNoSources = errors.New("no usable source extracts")

// Input says where one run reads extracts from and writes outputs to.
// Each extract is looked up in Dirs in order.
type Input struct {
	Dirs      []string
	OutputDir string
}

// Pipeline wires the consolidation steps to their adapters.
// Estimator, Runs and Store are optional.
type Pipeline struct {
	Profile   *config.Profile
	Loader    ports.ExtractLoader
	Exporter  ports.Exporter
	Estimator DistanceEstimator
	Runs      ports.RunRepository
	Store     ports.LoadStore
	Log       *zap.Logger
}

// Run loads, consolidates, fills and exports one batch of extracts.
func (p *Pipeline) Run(ctx context.Context, in Input) (_ *Report, err error) {
	if p.Log == nil {
		p.Log = zap.NewNop()
	}

	runID := uuid.NewString()
	ctx = obs.WithRunID(ctx, runID)
	defer obs.Time(ctx, p.Log, "services.Pipeline.Run")(&err)

	rep := &Report{RunID: runID, StartedAt: time.Now().UTC()}
	run := &domain.Run{ID: runID, StartedAt: rep.StartedAt, Status: domain.RunRunning}
	if p.Runs != nil {
		if err := p.Runs.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("run pipeline: record start: %w", err)
		}
	}

	runErr := p.run(ctx, in, rep)
	rep.FinishedAt = time.Now().UTC()
	p.finish(ctx, run, rep, runErr)

	if runErr != nil {
		return nil, runErr
	}
	return rep, nil
}

func (p *Pipeline) run(ctx context.Context, in Input, rep *Report) error {
	ex, warnings, err := p.Loader.LoadAll(ctx, in.Dirs...)
	if err != nil {
		return fmt.Errorf("run pipeline: load extracts: %w", err)
	}
	rep.Warnings = warnings
	for _, w := range warnings {
		p.Log.Warn("source skipped", zap.String("run_id", obs.RunID(ctx)), zap.String("reason", w))
	}
	if len(ex) == 0 {
		return fmt.Errorf("run pipeline: %w", ErrNoSources)
	}

	lk := BuildLookups(ex)
	cons := Consolidate(ex, lk, p.Profile)
	rep.Records = cons.Records
	rep.Rows = len(cons.Loads)
	rep.DroppedRows = cons.Dropped
	rep.ParseIssues = CountParseIssues(cons.Loads)

	filler := NewFiller(p.Profile.Fill, lk, p.Estimator, p.Log)
	if err := filler.Run(ctx, cons.Loads); err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}
	rep.FillCounts = filler.Counts
	rep.Completion = Completion(cons.Loads)
	rep.Repeated = RepeatedDistances(cons.Loads, p.Profile.Fill.RepeatedValue)
	for _, rv := range rep.Repeated {
		p.Log.Warn("repeated distance values",
			zap.String("run_id", obs.RunID(ctx)),
			zap.Strings("values", rv.Values),
			zap.Int("rows", rv.Rows),
		)
	}

	out, err := p.Exporter.Export(ctx, in.OutputDir, cons.Loads)
	if err != nil {
		return fmt.Errorf("run pipeline: export: %w", err)
	}
	rep.Outputs = out

	if p.Store != nil {
		if err := p.Store.SaveLoads(ctx, rep.RunID, cons.Loads); err != nil {
			return fmt.Errorf("run pipeline: save loads: %w", err)
		}
	}
	return nil
}

// finish records the outcome. A cancelled run is still recorded as failed.
func (p *Pipeline) finish(ctx context.Context, run *domain.Run, rep *Report, runErr error) {
	if p.Runs == nil {
		return
	}

	run.FinishedAt = rep.FinishedAt
	run.Rows = rep.Rows
	run.Status = domain.RunSucceeded
	if runErr != nil {
		run.Status = domain.RunFailed
		run.Error = runErr.Error()
	}
	if b, err := json.Marshal(rep); err == nil {
		run.Report = b
	}

	if err := p.Runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		p.Log.Error("record run outcome failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}
