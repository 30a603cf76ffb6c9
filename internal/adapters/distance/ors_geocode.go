package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/platform/obs"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// geocodeMany resolves places one by one using /geocode/search.
// Places with no result are logged and left out; transport failures abort.
func (o *ORSDistanceProvider) geocodeMany(ctx context.Context, places []string) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, o.log, "ors.geocodeMany")(&err)

	out := make(map[string]domain.Coordinates, len(places))
	for _, p := range places {
		if _, ok := out[p]; ok {
			continue
		}

		c, found, err := o.geocode(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", p, err)
		}
		if !found {
			o.log.Debug("place not found", zap.String("place", p))
			continue
		}
		out[p] = c
	}
	return out, nil
}

func (o *ORSDistanceProvider) geocode(ctx context.Context, place string) (domain.Coordinates, bool, error) {
	q := url.Values{}
	q.Set("text", place)
	if o.boundaryCountry != "" {
		q.Set("boundary.country", o.boundaryCountry)
	}
	q.Set("size", "1")

	resp, err := o.call(ctx, http.MethodGet, "/geocode/search", q, nil)
	if err != nil {
		return domain.Coordinates{}, false, err
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, false, nil
	}

	c, err := domain.CoordinatesFromLonLat(decoded.Features[0].Geometry.Coordinates)
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("geocode %q: %w", place, err)
	}
	return c, true, nil
}
