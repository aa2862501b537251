package distance

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/ports"
)

type MockPair struct {
	From, To domain.Coordinates
	Distance float64
	Duration time.Duration
}

// MockDistanceProvider answers from an explicit pair table, or from Func when
// set. Unknown pairs fail so tests notice missing fixtures.
type MockDistanceProvider struct {
	m     map[string]ports.DistanceResult
	Func  func(origin, destination domain.Coordinates) (ports.DistanceResult, error)
	calls atomic.Int64
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[string]ports.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[p.From.Key()+"|"+p.To.Key()] = ports.DistanceResult{Distance: p.Distance, Duration: p.Duration}
	}
	return &MockDistanceProvider{m: m}
}

func (p *MockDistanceProvider) GetDistance(ctx context.Context, origin, destination domain.Coordinates) (ports.DistanceResult, error) {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return ports.DistanceResult{}, err
	}
	if p.Func != nil {
		return p.Func(origin, destination)
	}

	r, ok := p.m[origin.Key()+"|"+destination.Key()]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("missing pair %q -> %q", origin.Key(), destination.Key())
	}
	return r, nil
}

// Calls reports how many estimates were requested.
func (p *MockDistanceProvider) Calls() int64 { return p.calls.Load() }
