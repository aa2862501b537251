package distance

import (
	"context"
	"fmt"

	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/ports"

	"go.uber.org/zap"
)

// CachedProvider puts a persistent cache in front of any estimator. Cache
// read failures fall through to the estimator; write failures are logged.
type CachedProvider struct {
	Provider ports.DistanceProvider
	Cache    ports.DistanceCache
	Logger   *zap.Logger
}

func NewCachedProvider(p ports.DistanceProvider, c ports.DistanceCache, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{Provider: p, Cache: c, Logger: logger}
}

func (c *CachedProvider) GetDistance(ctx context.Context, origin, destination domain.Coordinates) (ports.DistanceResult, error) {
	results, err := c.GetDistances(ctx, origin, []domain.Coordinates{destination})
	if err != nil {
		return ports.DistanceResult{}, err
	}
	r, ok := results[destination.Key()]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("no distance result for %s -> %s", origin.Key(), destination.Key())
	}
	return r, nil
}

func (c *CachedProvider) GetDistances(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (map[string]ports.DistanceResult, error) {
	log := logging.OrNop(c.Logger)
	originKey := origin.Key()

	keys := make([]string, 0, len(destinations))
	byKey := make(map[string]domain.Coordinates, len(destinations))
	for _, d := range destinations {
		k := d.Key()
		if _, ok := byKey[k]; ok {
			continue
		}
		byKey[k] = d
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	hits, err := c.Cache.GetMany(ctx, originKey, keys)
	if err != nil {
		log.Warn("distance cache read failed", zap.String("origin", originKey), zap.Error(err))
		hits = map[string]ports.DistanceResult{}
	}

	misses := make([]domain.Coordinates, 0, len(keys))
	for _, k := range keys {
		if _, ok := hits[k]; !ok {
			misses = append(misses, byKey[k])
		}
	}
	if len(misses) == 0 {
		return hits, nil
	}

	fetched := make(map[string]ports.DistanceResult, len(misses))
	if mp, ok := c.Provider.(ports.DistanceMatrixProvider); ok {
		fetched, err = mp.GetDistances(ctx, origin, misses)
		if err != nil {
			return nil, err
		}
	} else {
		for _, d := range misses {
			r, err := c.Provider.GetDistance(ctx, origin, d)
			if err != nil {
				return nil, err
			}
			fetched[d.Key()] = r
		}
	}

	if err := c.Cache.PutMany(ctx, originKey, fetched); err != nil {
		log.Warn("distance cache write failed", zap.String("origin", originKey), zap.Error(err))
	}

	out := make(map[string]ports.DistanceResult, len(hits)+len(fetched))
	for k, v := range hits {
		out[k] = v
	}
	for k, v := range fetched {
		out[k] = v
	}
	return out, nil
}
