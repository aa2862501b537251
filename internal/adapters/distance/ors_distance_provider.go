package distance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/platform/obs"
	"tour-routing-service/internal/platform/retry"
	"tour-routing-service/internal/ports"

	"go.uber.org/zap"
)

const defaultORSBaseURL = "https://api.openrouteservice.org"

// ORSDistanceProvider implements DistanceProvider using the OpenRouteService
// matrix endpoint. Distances come back in miles. Wrap it in a CachedProvider
// to avoid repeated matrix calls.
//
// The provider is safe for concurrent use.
type ORSDistanceProvider struct {
	session *http.Client
	apiKey  string
	baseURL string
	profile string
	retry   retry.Policy
	logger  *zap.Logger
}

type ORSOption func(*ORSDistanceProvider)

// WithBaseURL points the provider at another ORS deployment.
func WithBaseURL(u string) ORSOption {
	return func(o *ORSDistanceProvider) { o.baseURL = strings.TrimRight(u, "/") }
}

func WithRetry(p retry.Policy) ORSOption {
	return func(o *ORSDistanceProvider) { o.retry = p }
}

func WithLogger(l *zap.Logger) ORSOption {
	return func(o *ORSDistanceProvider) { o.logger = l }
}

func WithHTTPClient(c *http.Client) ORSOption {
	return func(o *ORSDistanceProvider) { o.session = c }
}

func NewORSDistanceProvider(apiKey string, opts ...ORSOption) (*ORSDistanceProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}

	provider := &ORSDistanceProvider{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: defaultORSBaseURL,
		profile: "driving-car",
		retry:   retry.Default(),
	}
	for _, opt := range opts {
		opt(provider)
	}
	provider.logger = logging.OrNop(provider.logger)

	return provider, nil
}

// Delegate to batched path to reuse the matrix logic.
func (o *ORSDistanceProvider) GetDistance(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (ports.DistanceResult, error) {
	results, err := o.GetDistances(ctx, origin, []domain.Coordinates{destination})
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf(
			"get distances %s -> %s: %w",
			origin.Key(), destination.Key(), err,
		)
	}

	result, ok := results[destination.Key()]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("no distance result for %s -> %s", origin.Key(), destination.Key())
	}

	return result, nil
}

// Compute distances from a single origin to many destinations.
func (o *ORSDistanceProvider) GetDistances(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.GetDistances")(&err)

	originKey := origin.Key()
	seen := make(map[string]struct{}, len(destinations))
	destList := make([]domain.Coordinates, 0, len(destinations))
	out := make(map[string]ports.DistanceResult, len(destinations))
	for _, d := range destinations {
		k := d.Key()
		if k == originKey {
			out[k] = ports.DistanceResult{}
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		destList = append(destList, d)
	}

	if len(destList) == 0 {
		return out, nil
	}

	// Fetch a single origin->many matrix row.
	fetched, err := o.fetchMatrixRow(ctx, origin, destList)
	if err != nil {
		return nil, fmt.Errorf("fetching matrix row: %w", err)
	}

	missing := make([]string, 0)
	for _, d := range destList {
		r, ok := fetched[d.Key()]
		if !ok {
			missing = append(missing, d.Key())
			continue
		}
		out[d.Key()] = r
	}

	if len(missing) > 0 {
		o.logger.Warn("ORS matrix row incomplete",
			zap.String("origin", originKey),
			zap.Strings("missing", missing),
		)
	}

	return out, nil
}
