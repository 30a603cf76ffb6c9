package ports

import (
	"context"
	"load-consolidation-service/internal/domain"
)

// Port: run history storage.
type RunRepository interface {
	// Record a run that has just started.
	Create(ctx context.Context, run *domain.Run) error
	// Record the outcome of a finished run.
	Finish(ctx context.Context, run *domain.Run) error
	// Return the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]domain.Run, error)
	Get(ctx context.Context, id string) (*domain.Run, error)
}

// Port: reporting warehouse that receives consolidated loads.
type LoadStore interface {
	SaveLoads(ctx context.Context, runID string, loads []*domain.Load) error
}
