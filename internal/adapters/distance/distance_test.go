package distance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/retry"
	"tour-routing-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	phoenix = domain.Coordinates{Lon: -112.074, Lat: 33.4484}
	tucson  = domain.Coordinates{Lon: -110.9747, Lat: 32.2226}
	flagst  = domain.Coordinates{Lon: -111.6513, Lat: 35.1983}
)

func TestHaversineProvider(t *testing.T) {
	p := NewHaversineProvider()

	r, err := p.GetDistance(context.Background(), phoenix, tucson)
	require.NoError(t, err)

	straight := phoenix.HaversineMiles(tucson)
	assert.InDelta(t, straight*defaultRoadFactor, r.Distance, 1e-9)
	assert.InDelta(t, r.Distance/defaultSpeedMPH, r.Duration.Hours(), 0.001)

	same, err := p.GetDistance(context.Background(), phoenix, phoenix)
	require.NoError(t, err)
	assert.Zero(t, same.Distance)
	assert.Zero(t, same.Duration)
}

func TestHaversineProviderRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHaversineProvider().GetDistance(ctx, phoenix, tucson)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMockDistanceProvider(t *testing.T) {
	p := NewMockDistanceProvider([]MockPair{
		{From: phoenix, To: tucson, Distance: 116, Duration: 2 * time.Hour},
	})

	r, err := p.GetDistance(context.Background(), phoenix, tucson)
	require.NoError(t, err)
	assert.Equal(t, 116.0, r.Distance)

	_, err = p.GetDistance(context.Background(), tucson, phoenix)
	require.Error(t, err)
	assert.EqualValues(t, 2, p.Calls())
}

type mapCache struct {
	mu      sync.Mutex
	m       map[string]ports.DistanceResult
	getErr  error
	putCall int
}

func (c *mapCache) GetMany(_ context.Context, origin string, dests []string) (map[string]ports.DistanceResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	out := map[string]ports.DistanceResult{}
	for _, d := range dests {
		if r, ok := c.m[origin+"|"+d]; ok {
			out[d] = r
		}
	}
	return out, nil
}

func (c *mapCache) PutMany(_ context.Context, origin string, results map[string]ports.DistanceResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putCall++
	for d, r := range results {
		c.m[origin+"|"+d] = r
	}
	return nil
}

func TestCachedProviderServesRepeatsFromCache(t *testing.T) {
	inner := NewMockDistanceProvider([]MockPair{
		{From: phoenix, To: tucson, Distance: 116, Duration: 2 * time.Hour},
		{From: phoenix, To: flagst, Distance: 145, Duration: 150 * time.Minute},
	})
	cache := &mapCache{m: map[string]ports.DistanceResult{}}
	p := NewCachedProvider(inner, cache, nil)

	first, err := p.GetDistances(context.Background(), phoenix, []domain.Coordinates{tucson, flagst, tucson})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.EqualValues(t, 2, inner.Calls())

	again, err := p.GetDistance(context.Background(), phoenix, flagst)
	require.NoError(t, err)
	assert.Equal(t, 145.0, again.Distance)
	assert.EqualValues(t, 2, inner.Calls(), "second lookup must hit the cache")
	assert.Equal(t, 1, cache.putCall)
}

func TestCachedProviderFallsThroughOnCacheError(t *testing.T) {
	inner := NewMockDistanceProvider([]MockPair{
		{From: phoenix, To: tucson, Distance: 116, Duration: 2 * time.Hour},
	})
	cache := &mapCache{m: map[string]ports.DistanceResult{}, getErr: errors.New("cache down")}
	p := NewCachedProvider(inner, cache, nil)

	r, err := p.GetDistance(context.Background(), phoenix, tucson)
	require.NoError(t, err)
	assert.Equal(t, 116.0, r.Distance)
}

func orsServer(t *testing.T, handler func(w http.ResponseWriter, req matrixRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/matrix/driving-car" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req matrixRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestORSDistanceProviderConvertsUnits(t *testing.T) {
	srv := orsServer(t, func(w http.ResponseWriter, req matrixRequest) {
		if len(req.Locations) != 3 || len(req.Destinations) != 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		d1, d2, s1, s2 := 160934.4, 321868.8, 7200.0, 14400.0
		_ = json.NewEncoder(w).Encode(matrixResponse{
			Distances: [][]*float64{{&d1, &d2}},
			Durations: [][]*float64{{&s1, &s2}},
		})
	})

	p, err := NewORSDistanceProvider("test-key", WithBaseURL(srv.URL), WithRetry(retry.NoWait(1)))
	require.NoError(t, err)

	out, err := p.GetDistances(context.Background(), phoenix, []domain.Coordinates{tucson, flagst})
	require.NoError(t, err)

	require.Contains(t, out, tucson.Key())
	assert.InDelta(t, 100, out[tucson.Key()].Distance, 1e-6)
	assert.Equal(t, 2*time.Hour, out[tucson.Key()].Duration)
	assert.InDelta(t, 200, out[flagst.Key()].Distance, 1e-6)
}

func TestORSDistanceProviderRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := orsServer(t, func(w http.ResponseWriter, _ matrixRequest) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		d, s := 1609.344, 60.0
		_ = json.NewEncoder(w).Encode(matrixResponse{
			Distances: [][]*float64{{&d}},
			Durations: [][]*float64{{&s}},
		})
	})

	p, err := NewORSDistanceProvider("test-key", WithBaseURL(srv.URL), WithRetry(retry.NoWait(4)))
	require.NoError(t, err)

	r, err := p.GetDistance(context.Background(), phoenix, tucson)
	require.NoError(t, err)
	assert.InDelta(t, 1, r.Distance, 1e-9)
	assert.EqualValues(t, 3, calls.Load())
}

func TestORSDistanceProviderDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := orsServer(t, func(w http.ResponseWriter, _ matrixRequest) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	p, err := NewORSDistanceProvider("test-key", WithBaseURL(srv.URL), WithRetry(retry.NoWait(4)))
	require.NoError(t, err)

	_, err = p.GetDistance(context.Background(), phoenix, tucson)
	require.Error(t, err)

	var he *httpStatusError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.EqualValues(t, 1, calls.Load())
}

func TestORSDistanceProviderSkipsUnroutablePairs(t *testing.T) {
	srv := orsServer(t, func(w http.ResponseWriter, _ matrixRequest) {
		d, s := 1609.344, 60.0
		_ = json.NewEncoder(w).Encode(matrixResponse{
			Distances: [][]*float64{{&d, nil}},
			Durations: [][]*float64{{&s, nil}},
		})
	})

	p, err := NewORSDistanceProvider("test-key", WithBaseURL(srv.URL), WithRetry(retry.NoWait(1)))
	require.NoError(t, err)

	out, err := p.GetDistances(context.Background(), phoenix, []domain.Coordinates{tucson, flagst, phoenix})
	require.NoError(t, err)
	assert.Contains(t, out, tucson.Key())
	assert.NotContains(t, out, flagst.Key())
	assert.Equal(t, ports.DistanceResult{}, out[phoenix.Key()])

	_, err = p.GetDistance(context.Background(), phoenix, flagst)
	require.Error(t, err)
}

func TestNewORSDistanceProviderRequiresKey(t *testing.T) {
	_, err := NewORSDistanceProvider("  ")
	require.Error(t, err)
}
