package distance

import (
	"context"
	"encoding/json"
	"errors"
	"load-consolidation-service/internal/domain"
	"load-consolidation-service/internal/ports"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeORS geocodes from a fixed table and answers matrix requests with
// distance = 1000 x destination longitude.
type fakeORS struct {
	places        map[string][]float64
	geocodeCalls  atomic.Int32
	matrixCalls   atomic.Int32
	failGeocodes  atomic.Int32
	lastBoundary  atomic.Value
	unroutableLon float64
}

func (f *fakeORS) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode/search", func(w http.ResponseWriter, r *http.Request) {
		f.geocodeCalls.Add(1)
		if r.Header.Get("Authorization") != "key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if f.failGeocodes.Load() > 0 {
			f.failGeocodes.Add(-1)
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		f.lastBoundary.Store(r.URL.Query().Get("boundary.country"))

		features := []any{}
		if c := f.places[r.URL.Query().Get("text")]; c != nil {
			features = append(features, map[string]any{"geometry": map[string]any{"coordinates": c}})
		}
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{"features": features}))
	})
	mux.HandleFunc("/v2/matrix/driving-car", func(w http.ResponseWriter, r *http.Request) {
		f.matrixCalls.Add(1)
		var req matrixRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []int{0}, req.Sources)

		row := make([]*float64, 0, len(req.Destinations))
		dur := make([]*float64, 0, len(req.Destinations))
		for _, i := range req.Destinations {
			lon := req.Locations[i][0]
			if lon == f.unroutableLon {
				row = append(row, nil)
				dur = append(dur, nil)
				continue
			}
			d, s := lon*1000, lon*60
			row = append(row, &d)
			dur = append(dur, &s)
		}
		assert.NoError(t, json.NewEncoder(w).Encode(matrixResponse{
			Distances: [][]*float64{row},
			Durations: [][]*float64{dur},
		}))
	})
	return mux
}

type memRouteCache struct {
	mu sync.Mutex
	m  map[string]ports.DistanceResult
}

func (c *memRouteCache) GetMany(_ context.Context, origin string, dests []string) (map[string]ports.DistanceResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]ports.DistanceResult{}
	for _, d := range dests {
		if r, ok := c.m[origin+"|"+d]; ok {
			out[d] = r
		}
	}
	return out, nil
}

func (c *memRouteCache) PutMany(_ context.Context, origin string, results map[string]ports.DistanceResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string]ports.DistanceResult{}
	}
	for d, r := range results {
		c.m[origin+"|"+d] = r
	}
	return nil
}

type memPlaceCache struct {
	mu sync.Mutex
	m  map[string]domain.Coordinates
}

func (c *memPlaceCache) GetMany(_ context.Context, places []string) (map[string]domain.Coordinates, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]domain.Coordinates{}
	for _, p := range places {
		if v, ok := c.m[p]; ok {
			out[p] = v
		}
	}
	return out, nil
}

func (c *memPlaceCache) PutMany(_ context.Context, results map[string]domain.Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string]domain.Coordinates{}
	}
	for k, v := range results {
		c.m[k] = v
	}
	return nil
}

func newTestProvider(t *testing.T, f *fakeORS, routes RouteCache, places PlaceCache) *ORSDistanceProvider {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	p, err := NewORSDistanceProvider(ORSConfig{
		APIKey:          "key",
		BaseURL:         srv.URL + "/",
		BoundaryCountry: "UG",
		Backoff:         time.Millisecond,
	}, routes, places, nil)
	require.NoError(t, err)
	return p
}

func testPlaces() map[string][]float64 {
	return map[string][]float64{
		"Jinja Depot":     {33.2, 0.4},
		"Shop A, Uganda":  {12.5, 0.3},
		"Shop B, Uganda":  {20, 0.1},
		"Island, Uganda":  {99, 0.0},
		"Nowhere, Uganda": nil,
	}
}

func TestGetDistancesUsesCaches(t *testing.T) {
	f := &fakeORS{places: testPlaces()}
	routes, places := &memRouteCache{}, &memPlaceCache{}
	p := newTestProvider(t, f, routes, places)

	ctx := context.Background()
	got, err := p.GetDistances(ctx, " Jinja  Depot", []string{"Shop A, Uganda", "Shop B,  Uganda", "Shop A, Uganda", "Jinja Depot"})
	require.NoError(t, err)
	assert.Equal(t, map[string]ports.DistanceResult{
		"Shop A, Uganda": {DistanceMeters: 12500, DurationSeconds: 750},
		"Shop B, Uganda": {DistanceMeters: 20000, DurationSeconds: 1200},
	}, got)
	assert.Equal(t, int32(3), f.geocodeCalls.Load())
	assert.Equal(t, int32(1), f.matrixCalls.Load())
	assert.Equal(t, "UG", f.lastBoundary.Load())

	// Everything is cached now.
	r, err := p.GetDistance(ctx, "Jinja Depot", "Shop B, Uganda")
	require.NoError(t, err)
	assert.Equal(t, 20000, r.DistanceMeters)
	assert.Equal(t, int32(3), f.geocodeCalls.Load())
	assert.Equal(t, int32(1), f.matrixCalls.Load())
	assert.Len(t, places.m, 3)
}

func TestGetDistancesSkipsUnknownPlaces(t *testing.T) {
	f := &fakeORS{places: testPlaces(), unroutableLon: 99}
	p := newTestProvider(t, f, nil, nil)

	ctx := context.Background()
	got, err := p.GetDistances(ctx, "Jinja Depot", []string{"Shop A, Uganda", "Nowhere, Uganda", "Island, Uganda"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "Shop A, Uganda")

	_, err = p.GetDistance(ctx, "Jinja Depot", "Nowhere, Uganda")
	assert.ErrorIs(t, err, ports.ErrNoRoute)
	_, err = p.GetDistance(ctx, "Jinja Depot", "Island, Uganda")
	assert.ErrorIs(t, err, ports.ErrNoRoute)
}

func TestGeocodeRetriesTransientErrors(t *testing.T) {
	f := &fakeORS{places: testPlaces()}
	f.failGeocodes.Store(2)
	p := newTestProvider(t, f, nil, nil)

	r, err := p.GetDistance(context.Background(), "Jinja Depot", "Shop A, Uganda")
	require.NoError(t, err)
	assert.Equal(t, 12500, r.DistanceMeters)
	assert.Equal(t, int32(4), f.geocodeCalls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	f := &fakeORS{places: testPlaces()}
	p := newTestProvider(t, f, nil, nil)
	p.apiKey = "wrong"

	_, err := p.GetDistance(context.Background(), "Jinja Depot", "Shop A, Uganda")
	require.Error(t, err)

	var he *statusError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusUnauthorized, he.Code)
	assert.Equal(t, int32(1), f.geocodeCalls.Load())
}

func TestNewORSDistanceProviderRequiresKey(t *testing.T) {
	_, err := NewORSDistanceProvider(ORSConfig{APIKey: " "}, nil, nil, nil)
	assert.Error(t, err)
}

func TestMockDistanceProvider(t *testing.T) {
	m := NewMockDistanceProvider([]MockPair{{From: "A", To: "B", Meters: 10, Seconds: 2}})

	r, err := m.GetDistance(context.Background(), "A", "B")
	require.NoError(t, err)
	assert.Equal(t, ports.DistanceResult{DistanceMeters: 10, DurationSeconds: 2}, r)

	_, err = m.GetDistance(context.Background(), "B", "A")
	assert.ErrorIs(t, err, ports.ErrNoRoute)
}

func TestRetryDelay(t *testing.T) {
	backoff := 200 * time.Millisecond
	tests := []struct {
		name  string
		err   error
		wait  time.Duration
		retry bool
	}{
		{"unavailable", &statusError{Code: 503}, backoff, true},
		{"rate limited with header", &statusError{Code: 429, RetryAfter: 3 * time.Second}, 3 * time.Second, true},
		{"header capped", &statusError{Code: 429, RetryAfter: time.Minute}, maxRetryDelay, true},
		{"header shorter than backoff", &statusError{Code: 502, RetryAfter: time.Millisecond}, backoff, true},
		{"bad request", &statusError{Code: 400}, 0, false},
		{"not implemented", &statusError{Code: 501}, 0, false},
		{"network", &net.DNSError{Err: "timeout", IsTimeout: true}, backoff, true},
		{"other", errors.New("decode"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wait, retry := retryDelay(tt.err, backoff)
			assert.Equal(t, tt.retry, retry)
			assert.Equal(t, tt.wait, wait)
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRetryAfter(" 2 "))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("-1"))
	assert.Zero(t, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}
