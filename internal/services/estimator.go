package services

import (
	"context"
	"errors"
	"fmt"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/ports"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"go.uber.org/zap"
)

const (
	estimateCacheSize = 10000
	estimateCacheTTL  = 24 * time.Hour
	// Transient failures (outages, rate limits) are retried much sooner.
	estimateFailureTTL = 5 * time.Minute
)

// estimate is a cached lookup result. A customer the routing service has no
// route to is remembered for the full TTL, other failures for estimateFailureTTL.
type estimate struct {
	km  float64
	err error
}

// RouteEstimator answers planned depot-to-customer distances from a routing
// service, with an in-memory LRU in front of it.
//
// RouteEstimator is safe for concurrent use.
type RouteEstimator struct {
	provider ports.DistanceProvider
	depot    string
	country  string
	cache    gcache.Cache
	log      *zap.Logger
}

func NewRouteEstimator(provider ports.DistanceProvider, depot, country string, log *zap.Logger) (*RouteEstimator, error) {
	return newRouteEstimator(provider, depot, country, log, gcache.NewRealClock())
}

func newRouteEstimator(provider ports.DistanceProvider, depot, country string, log *zap.Logger, clock gcache.Clock) (*RouteEstimator, error) {
	if provider == nil {
		return nil, errors.New("new route estimator: provider is nil")
	}
	depot = strings.Join(strings.Fields(depot), " ")
	if depot == "" {
		return nil, errors.New("new route estimator: depot address is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &RouteEstimator{
		provider: provider,
		depot:    depot,
		country:  strings.TrimSpace(country),
		cache: gcache.New(estimateCacheSize).
			LRU().
			Expiration(estimateCacheTTL).
			Clock(clock).
			Build(),
		log: log,
	}, nil
}

// Destination is the address the routing service is asked about for customer.
func (e *RouteEstimator) Destination(customer string) string {
	d := strings.Join(strings.Fields(customer), " ")
	if d == "" || e.country == "" {
		return d
	}
	if strings.Contains(strings.ToLower(d), strings.ToLower(e.country)) {
		return d
	}
	return d + ", " + e.country
}

// EstimateKm returns the road distance from the depot to customer in km, to one decimal.
func (e *RouteEstimator) EstimateKm(ctx context.Context, customer string) (float64, error) {
	dest := e.Destination(customer)
	if dest == "" {
		return 0, errors.New("estimate distance: customer is empty")
	}

	if cached, err := e.cache.Get(dest); err == nil {
		if est, ok := cached.(estimate); ok {
			return est.km, est.err
		}
	}

	res, err := e.provider.GetDistance(ctx, e.depot, dest)
	if err != nil {
		err = fmt.Errorf("estimate distance to %q: %w", dest, err)
		switch {
		case errors.Is(err, ports.ErrNoRoute):
			_ = e.cache.Set(dest, estimate{err: err})
		case ctx.Err() == nil:
			// Cancellation says nothing about the customer.
			_ = e.cache.SetWithExpire(dest, estimate{err: err}, estimateFailureTTL)
		}
		return 0, err
	}

	km := metersToKm(res.DistanceMeters)
	_ = e.cache.Set(dest, estimate{km: km})
	return km, nil
}

// Warm resolves many customers in one batch when the provider supports it.
// Customers missing from the batch result are cached as having no route.
func (e *RouteEstimator) Warm(ctx context.Context, customers []string) error {
	mp, ok := e.provider.(ports.DistanceMatrixProvider)
	if !ok {
		return nil
	}

	seen := map[string]struct{}{}
	var dests []string
	for _, c := range customers {
		d := e.Destination(c)
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		if _, err := e.cache.Get(d); err == nil {
			continue
		}
		dests = append(dests, d)
	}
	if len(dests) == 0 {
		return nil
	}

	results, err := mp.GetDistances(ctx, e.depot, dests)
	if err != nil {
		return fmt.Errorf("warm route estimates: %w", err)
	}
	for _, d := range dests {
		if r, ok := results[d]; ok {
			_ = e.cache.Set(d, estimate{km: metersToKm(r.DistanceMeters)})
			continue
		}
		_ = e.cache.Set(d, estimate{err: fmt.Errorf("estimate distance to %q: %w", d, ports.ErrNoRoute)})
	}

	e.log.Debug("route estimates warmed", zap.Int("requested", len(dests)), zap.Int("resolved", len(results)))
	return nil
}

func metersToKm(m int) float64 {
	return domain.Round(float64(m)/1000, 1)
}
