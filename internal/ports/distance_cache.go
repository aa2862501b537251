package ports

import "context"

// Persistent cache of origin->destination estimates. Keys are Coordinates.Key values.
type DistanceCache interface {
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
	PutMany(ctx context.Context, origin string, results map[string]DistanceResult) error
}
