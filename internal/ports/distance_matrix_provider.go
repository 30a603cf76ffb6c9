package ports

import "context"

// Optional extension of DistanceProvider for one origin and many destinations.
type DistanceMatrixProvider interface {
	DistanceProvider
	GetDistances(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
}
