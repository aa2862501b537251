package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/platform/obs"
	"tour-routing-service/internal/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultMatrixConcurrency = 5

// DistanceMatrix holds precomputed origin->destination estimates.
// Pairs the estimator could not answer are absent and counted in Skipped.
type DistanceMatrix struct {
	entries map[string]ports.DistanceResult
	Skipped int
}

func pairKey(from, to string) string { return from + "|" + to }

// Get returns the estimate for a pair. Identical locations are always zero.
func (m *DistanceMatrix) Get(from, to domain.Coordinates) (ports.DistanceResult, bool) {
	fk, tk := from.Key(), to.Key()
	if fk == tk {
		return ports.DistanceResult{}, true
	}
	r, ok := m.entries[pairKey(fk, tk)]
	return r, ok
}

// MatrixBuilder precomputes a distance matrix through a bounded number of
// concurrent estimator calls, each under its own timeout.
type MatrixBuilder struct {
	Provider    ports.DistanceProvider
	Concurrency int
	Timeout     time.Duration
	Logger      *zap.Logger
}

type matrixRow struct {
	results map[string]ports.DistanceResult
	skipped int
}

// Build fetches every origin->destination pair. Estimator failures are
// skipped; only cancellation of ctx aborts the build.
func (b MatrixBuilder) Build(
	ctx context.Context,
	origins []domain.Coordinates,
	destinations []domain.Coordinates,
) (_ *DistanceMatrix, err error) {
	defer obs.Time(ctx, "planner.BuildDistanceMatrix")(&err)

	if b.Provider == nil {
		return nil, errors.New("build distance matrix: provider is nil")
	}
	log := logging.OrNop(b.Logger)

	uniqOrigins := uniqueCoordinates(origins)
	uniqDests := uniqueCoordinates(destinations)

	limit := b.Concurrency
	if limit < 1 {
		limit = defaultMatrixConcurrency
	}

	rows := make([]matrixRow, len(uniqOrigins))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, origin := range uniqOrigins {
		targets := make([]domain.Coordinates, 0, len(uniqDests))
		for _, d := range uniqDests {
			if d.Key() != origin.Key() {
				targets = append(targets, d)
			}
		}
		if len(targets) == 0 {
			continue
		}

		g.Go(func() error {
			row, err := b.fetchRow(gctx, origin, targets, log)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build distance matrix: %w", err)
	}

	m := &DistanceMatrix{entries: make(map[string]ports.DistanceResult)}
	for i, row := range rows {
		ok := uniqOrigins[i].Key()
		for dk, r := range row.results {
			m.entries[pairKey(ok, dk)] = r
		}
		m.Skipped += row.skipped
	}

	if m.Skipped > 0 {
		log.Warn("distance matrix incomplete",
			zap.Int("skipped_pairs", m.Skipped),
			zap.Int("fetched_pairs", len(m.entries)),
		)
	}

	return m, nil
}

// fetchRow returns an error only when ctx itself is done.
func (b MatrixBuilder) fetchRow(
	ctx context.Context,
	origin domain.Coordinates,
	targets []domain.Coordinates,
	log *zap.Logger,
) (matrixRow, error) {
	row := matrixRow{results: make(map[string]ports.DistanceResult, len(targets))}

	// Prefer a single origin->many lookup when supported to reduce external API calls.
	if mp, ok := b.Provider.(ports.DistanceMatrixProvider); ok {
		callCtx, cancel := b.callContext(ctx)
		res, err := mp.GetDistances(callCtx, origin, targets)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return matrixRow{}, ctx.Err()
			}
			log.Warn("skipping origin row",
				zap.String("origin", origin.Key()),
				zap.Int("pairs", len(targets)),
				zap.Error(fmt.Errorf("%w: %v", domain.ErrEstimatorUnavailable, err)),
			)
			row.skipped = len(targets)
			return row, nil
		}

		for _, t := range targets {
			r, ok := res[t.Key()]
			if !ok {
				row.skipped++
				continue
			}
			row.results[t.Key()] = r
		}
		return row, nil
	}

	for _, t := range targets {
		callCtx, cancel := b.callContext(ctx)
		r, err := b.Provider.GetDistance(callCtx, origin, t)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return matrixRow{}, ctx.Err()
			}
			log.Warn("skipping pair",
				zap.String("origin", origin.Key()),
				zap.String("destination", t.Key()),
				zap.Error(fmt.Errorf("%w: %v", domain.ErrEstimatorUnavailable, err)),
			)
			row.skipped++
			continue
		}
		row.results[t.Key()] = r
	}

	return row, nil
}

func (b MatrixBuilder) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.Timeout > 0 {
		return context.WithTimeout(ctx, b.Timeout)
	}
	return context.WithCancel(ctx)
}

func uniqueCoordinates(in []domain.Coordinates) []domain.Coordinates {
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.Coordinates, 0, len(in))
	for _, c := range in {
		k := c.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}
