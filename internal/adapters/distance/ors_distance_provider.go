package distance

import (
	"context"
	"errors"
	"fmt"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/platform/obs"
	"load-consolidation-service/internal/ports"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultORSBaseURL = "https://api.openrouteservice.org"

// RouteCache persists origin->destination results.
type RouteCache interface {
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]ports.DistanceResult, error)
	PutMany(ctx context.Context, origin string, results map[string]ports.DistanceResult) error
}

// PlaceCache persists geocoded coordinates.
type PlaceCache interface {
	GetMany(ctx context.Context, places []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}

// ORSConfig configures the OpenRouteService client. Empty fields take defaults.
type ORSConfig struct {
	APIKey          string
	BaseURL         string
	Profile         string
	BoundaryCountry string
	Timeout         time.Duration
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
}

// ORSDistanceProvider implements DistanceMatrixProvider using OpenRouteService.
//
// It coordinates:
//   - Place name normalization
//   - Persistent geocode and route caching
//   - External API calls with retry/backoff
//
// The provider is safe for concurrent use.
type ORSDistanceProvider struct {
	session         *http.Client
	apiKey          string
	baseURL         string
	profile         string
	boundaryCountry string
	backoff         time.Duration
	routes          RouteCache
	places          PlaceCache
	log             *zap.Logger
}

// NewORSDistanceProvider builds a provider. Either cache may be nil.
func NewORSDistanceProvider(cfg ORSConfig, routes RouteCache, places PlaceCache, log *zap.Logger) (*ORSDistanceProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultORSBaseURL
	}
	if cfg.Profile == "" {
		cfg.Profile = "driving-car"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &ORSDistanceProvider{
		session:         &http.Client{Timeout: cfg.Timeout},
		apiKey:          cfg.APIKey,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		profile:         cfg.Profile,
		boundaryCountry: cfg.BoundaryCountry,
		backoff:         cfg.Backoff,
		routes:          routes,
		places:          places,
		log:             log,
	}, nil
}

// normalize ensures consistent cache keys by collapsing whitespace.
func (o *ORSDistanceProvider) normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Delegate to the batched path to reuse caching and matrix logic.
func (o *ORSDistanceProvider) GetDistance(ctx context.Context, origin, destination string) (ports.DistanceResult, error) {
	normOrigin := o.normalize(origin)
	normDestination := o.normalize(destination)
	if normOrigin == "" || normDestination == "" {
		return ports.DistanceResult{}, errors.New("get ORS distance: origin and destination must be non-empty")
	}

	results, err := o.GetDistances(ctx, normOrigin, []string{normDestination})
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("get distances %q -> %q: %w", normOrigin, normDestination, err)
	}

	result, ok := results[normDestination]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("%q -> %q: %w", normOrigin, normDestination, ports.ErrNoRoute)
	}
	return result, nil
}

// Compute distances from a single origin to many destinations. Keys of the
// result are the normalized destinations.
func (o *ORSDistanceProvider) GetDistances(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, o.log, "ors.GetDistances")(&err)

	normOrigin := o.normalize(origin)
	if normOrigin == "" {
		return nil, errors.New("origin must be non-empty")
	}

	seen := make(map[string]struct{}, len(destinations))
	destList := make([]string, 0, len(destinations))
	for _, d := range destinations {
		nd := o.normalize(d)
		if nd == "" || nd == normOrigin {
			continue
		}
		if _, ok := seen[nd]; ok {
			continue
		}
		seen[nd] = struct{}{}
		destList = append(destList, nd)
	}
	if len(destList) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	routeHits := map[string]ports.DistanceResult{}
	// Check the persistent route cache before issuing external API calls.
	if o.routes != nil {
		routeHits, err = o.routes.GetMany(ctx, normOrigin, destList)
		if err != nil {
			return nil, fmt.Errorf("ORS get route cache: %w", err)
		}
	}

	routeMisses := make([]string, 0, len(destList))
	for _, d := range destList {
		if _, ok := routeHits[d]; !ok {
			routeMisses = append(routeMisses, d)
		}
	}
	if len(routeMisses) == 0 {
		return routeHits, nil
	}

	coords, err := o.coordinates(ctx, append([]string{normOrigin}, routeMisses...))
	if err != nil {
		return nil, fmt.Errorf("retrieving coordinates: %w", err)
	}

	originCoord, ok := coords[normOrigin]
	if !ok {
		return nil, fmt.Errorf("missing coordinate for origin %q", normOrigin)
	}

	// Customers the geocoder could not place are left out of the result.
	stops := make([]stop, 0, len(routeMisses))
	for _, d := range routeMisses {
		if c, ok := coords[d]; ok {
			stops = append(stops, stop{name: d, coord: c})
		}
	}

	fetched, err := o.routeFrom(ctx, originCoord, stops)
	if err != nil {
		return nil, fmt.Errorf("route from %q: %w", normOrigin, err)
	}

	if o.routes != nil && len(fetched) > 0 {
		if err := o.routes.PutMany(ctx, normOrigin, fetched); err != nil {
			o.log.Warn("route cache write failed", zap.Error(err))
		}
	}

	out := make(map[string]ports.DistanceResult, len(routeHits)+len(fetched))
	for k, v := range routeHits {
		out[k] = v
	}
	for k, v := range fetched {
		out[k] = v
	}
	return out, nil
}

// coordinates resolves places through the place cache, then the geocoder.
func (o *ORSDistanceProvider) coordinates(ctx context.Context, places []string) (map[string]domain.Coordinates, error) {
	hits := map[string]domain.Coordinates{}
	if o.places != nil {
		var err error
		hits, err = o.places.GetMany(ctx, places)
		if err != nil {
			return nil, fmt.Errorf("ORS get place cache: %w", err)
		}
	}

	misses := make([]string, 0, len(places))
	for _, p := range places {
		if _, ok := hits[p]; !ok {
			misses = append(misses, p)
		}
	}
	if len(misses) == 0 {
		return hits, nil
	}

	fresh, err := o.geocodeMany(ctx, misses)
	if err != nil {
		return nil, err
	}

	if o.places != nil && len(fresh) > 0 {
		if err := o.places.PutMany(ctx, fresh); err != nil {
			o.log.Warn("place cache write failed", zap.Error(err))
		}
	}

	out := make(map[string]domain.Coordinates, len(hits)+len(fresh))
	for k, v := range hits {
		out[k] = v
	}
	for k, v := range fresh {
		out[k] = v
	}
	return out, nil
}
