package distance

import (
	"context"
	"time"

	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/ports"
)

const (
	defaultRoadFactor = 1.25
	defaultSpeedMPH   = 55
)

// HaversineProvider estimates road travel from great-circle distance. It needs
// no network and answers deterministically, which makes it the offline
// default for the CLI and local runs.
type HaversineProvider struct {
	// RoadFactor scales straight-line miles to road miles.
	RoadFactor float64
	SpeedMPH   float64
}

func NewHaversineProvider() *HaversineProvider {
	return &HaversineProvider{RoadFactor: defaultRoadFactor, SpeedMPH: defaultSpeedMPH}
}

func (p *HaversineProvider) GetDistance(ctx context.Context, origin, destination domain.Coordinates) (ports.DistanceResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.DistanceResult{}, err
	}

	factor := p.RoadFactor
	if factor <= 0 {
		factor = defaultRoadFactor
	}
	speed := p.SpeedMPH
	if speed <= 0 {
		speed = defaultSpeedMPH
	}

	miles := origin.HaversineMiles(destination) * factor
	hours := miles / speed
	return ports.DistanceResult{
		Distance: miles,
		Duration: time.Duration(hours * float64(time.Hour)).Round(time.Second),
	}, nil
}

// GetDistances answers a whole row at once.
func (p *HaversineProvider) GetDistances(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (map[string]ports.DistanceResult, error) {
	out := make(map[string]ports.DistanceResult, len(destinations))
	for _, d := range destinations {
		r, err := p.GetDistance(ctx, origin, d)
		if err != nil {
			return nil, err
		}
		out[d.Key()] = r
	}
	return out, nil
}
