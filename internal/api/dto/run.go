package dto

import (
	"load-consolidation-service/internal/domain"
	"time"
)

type RunResponse struct {
	ID         string           `json:"id"`
	Status     domain.RunStatus `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Rows       int              `json:"rows"`
	Error      string           `json:"error,omitempty"`
}

type ListRunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

func NewRunResponse(r domain.Run) RunResponse {
	out := RunResponse{
		ID:        r.ID,
		Status:    r.Status,
		StartedAt: r.StartedAt,
		Rows:      r.Rows,
		Error:     r.Error,
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		out.FinishedAt = &finished
	}
	return out
}
