package ports

import (
	"context"
	"errors"
)

// ErrNoRoute means the provider answered and there is no route: the place is
// unknown or unreachable. Other errors are transient.
var ErrNoRoute = errors.New("no route")

// Road distance and travel duration between two places.
type DistanceResult struct {
	DistanceMeters  int
	DurationSeconds int
}

// Contract for retrieving travel distance between two addresses.
type DistanceProvider interface {
	GetDistance(ctx context.Context, origin string, destination string) (DistanceResult, error)
}
