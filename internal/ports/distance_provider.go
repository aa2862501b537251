package ports

import (
	"context"
	"time"

	"tour-routing-service/internal/domain"
)

// Driving distance and travel duration between two locations.
// Distance is in the same units as the tour's daily distance cap.
type DistanceResult struct {
	Distance float64
	Duration time.Duration
}

// Contract for the Distance/Time Estimator.
// Implementations must be idempotent and side-effect free from the caller's view.
type DistanceProvider interface {
	// Return travel distance and estimated duration between two locations.
	GetDistance(ctx context.Context, origin, destination domain.Coordinates) (DistanceResult, error)
}
