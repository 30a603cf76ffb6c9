package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/ports"
	"math"
	"net/http"

	"go.uber.org/zap"
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// stop is a geocoded destination awaiting a matrix answer.
type stop struct {
	name  string
	coord domain.Coordinates
}

// routeFrom asks /v2/matrix for one origin to every stop. Stops the router
// cannot reach come back as null cells; they are logged and left out.
func (o *ORSDistanceProvider) routeFrom(ctx context.Context, origin domain.Coordinates, stops []stop) (map[string]ports.DistanceResult, error) {
	if len(stops) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	req := matrixRequest{
		Locations:    [][]float64{origin.LonLat()},
		Sources:      []int{0},
		Destinations: make([]int, len(stops)),
		Metrics:      []string{"distance", "duration"},
	}
	for i, s := range stops {
		req.Locations = append(req.Locations, s.coord.LonLat())
		req.Destinations[i] = i + 1
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.call(ctx, http.MethodPost, "/v2/matrix/"+o.profile, nil, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}
	distances, durations, err := mr.row(len(stops))
	if err != nil {
		return nil, err
	}

	out := make(map[string]ports.DistanceResult, len(stops))
	var unroutable []string
	for i, s := range stops {
		if distances[i] == nil || durations[i] == nil {
			unroutable = append(unroutable, s.name)
			continue
		}
		out[s.name] = ports.DistanceResult{
			DistanceMeters:  int(math.Round(*distances[i])),
			DurationSeconds: int(math.Round(*durations[i])),
		}
	}
	if len(unroutable) > 0 {
		o.log.Debug("no route to destinations", zap.Strings("destinations", unroutable))
	}
	return out, nil
}

// row returns the single source row, checked against the number of stops.
func (mr matrixResponse) row(n int) (distances, durations []*float64, err error) {
	if len(mr.Distances) != 1 || len(mr.Durations) != 1 {
		return nil, nil, fmt.Errorf("matrix response: want 1 source row, got distances=%d durations=%d",
			len(mr.Distances), len(mr.Durations))
	}
	distances, durations = mr.Distances[0], mr.Durations[0]
	if len(distances) != n || len(durations) != n {
		return nil, nil, fmt.Errorf("matrix response: want %d cells, got distances=%d durations=%d",
			n, len(distances), len(durations))
	}
	return distances, durations, nil
}
