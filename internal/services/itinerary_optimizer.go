package services

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/platform/obs"
	"tour-routing-service/internal/ports"

	"go.uber.org/zap"
)

// ItineraryOptimizer builds a tour plan with a constrained greedy
// nearest-feasible-next construction.
//
// It does not attempt a full TSP solve. At each step the closest unplaced host
// that can still be reached inside the tour's hard limits is chosen; long legs
// are split across rest days. Given identical inputs and estimator answers the
// output is identical.
type ItineraryOptimizer struct {
	Provider        ports.DistanceProvider
	Policy          domain.Policy
	Concurrency     int
	EstimateTimeout time.Duration
	Checker         FeasibilityChecker
	Logger          *zap.Logger
}

// move is a candidate next show: the host, its leg from the current position
// and the number of days the leg takes, the show day included.
type move struct {
	host domain.HostCandidate
	leg  ports.DistanceResult
	days int
}

// Plan returns a plan whose verdict is the feasibility checker's verdict on
// that same plan. Only an invalid request or a cancelled ctx yields an error.
func (o ItineraryOptimizer) Plan(
	ctx context.Context,
	req domain.TourRequest,
	eligible []domain.HostCandidate,
) (_ *domain.TourPlan, err error) {
	defer obs.Time(ctx, "planner.Plan")(&err)

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("plan itinerary: %w", err)
	}
	req = req.WithDefaults(o.Policy)
	log := logging.OrNop(o.Logger)

	hosts := slices.Clone(eligible)
	slices.SortFunc(hosts, func(a, b domain.HostCandidate) int { return strings.Compare(a.ID, b.ID) })

	plan := &domain.TourPlan{
		Stops:           []domain.Stop{},
		Constraints:     planConstraints(req, o.Policy),
		EligibleHostIDs: make([]string, 0, len(hosts)),
		UnplacedHostIDs: []string{},
	}
	for _, h := range hosts {
		plan.EligibleHostIDs = append(plan.EligibleHostIDs, h.ID)
	}

	if len(hosts) > 0 {
		locations := make([]domain.Coordinates, 0, len(hosts))
		for _, h := range hosts {
			locations = append(locations, h.Location)
		}

		start := domain.Centroid(locations)
		if req.Origin != nil {
			start = *req.Origin
		}

		builder := MatrixBuilder{
			Provider:    o.Provider,
			Concurrency: o.Concurrency,
			Timeout:     o.EstimateTimeout,
			Logger:      log,
		}
		matrix, err := builder.Build(ctx, append([]domain.Coordinates{start}, locations...), locations)
		if err != nil {
			return nil, fmt.Errorf("plan itinerary: %w", err)
		}
		plan.SkippedPairs = matrix.Skipped

		placed := o.construct(req, plan.Constraints, start, hosts, matrix, plan)
		for _, h := range hosts {
			if !placed[h.ID] {
				plan.UnplacedHostIDs = append(plan.UnplacedHostIDs, h.ID)
			}
		}
	}

	summarize(plan, req.Terms)
	plan.Feasible, plan.Violations = o.Checker.Check(plan)

	log.Info("itinerary planned",
		zap.String("title", req.Title),
		zap.Int("shows", plan.ShowCount),
		zap.Int("rest_days", plan.RestDayCount),
		zap.Int("skipped_pairs", plan.SkippedPairs),
		zap.Bool("feasible", plan.Feasible),
	)

	return plan, nil
}

// planConstraints derives the limits every plan of req is checked against.
// req must already carry its policy defaults.
func planConstraints(req domain.TourRequest, p domain.Policy) domain.PlanConstraints {
	return domain.PlanConstraints{
		Dates:               req.Dates,
		MaxDailyDistance:    req.MaxDailyDistance,
		PreferredArrival:    req.PreferredArrival,
		Departure:           p.Departure,
		MaxConsecutiveShows: p.MaxConsecutiveShows,
	}
}

// construct appends stops to plan and returns the set of placed host IDs.
func (o ItineraryOptimizer) construct(
	req domain.TourRequest,
	c domain.PlanConstraints,
	start domain.Coordinates,
	hosts []domain.HostCandidate,
	matrix *DistanceMatrix,
	plan *domain.TourPlan,
) map[string]bool {
	placed := make(map[string]bool, len(hosts))
	stops := []domain.Stop{}

	day := c.Dates.Start
	pos := start
	run := 0
	shows := 0

	for shows < req.ExpectedShows && !day.After(c.Dates.End) {
		minDays := 1
		if c.MaxConsecutiveShows > 0 && run >= c.MaxConsecutiveShows {
			// The next show must be preceded by a rest day.
			minDays = 2
		}

		next, ok := o.selectNext(c, day, pos, hosts, placed, matrix, minDays)
		if !ok {
			if !o.placeableLater(c, day, pos, hosts, placed, matrix) {
				break
			}
			stops = append(stops, domain.Stop{
				Kind:     domain.StopRest,
				Date:     day,
				Location: pos,
				ArriveAt: day.Add(c.Departure),
			})
			run = 0
			day = day.AddDate(0, 0, 1)
			continue
		}

		legDistance := next.leg.Distance / float64(next.days)
		legDuration := next.leg.Duration / time.Duration(next.days)

		for j := 1; j < next.days; j++ {
			restDay := day.AddDate(0, 0, j-1)
			stops = append(stops, domain.Stop{
				Kind:        domain.StopRest,
				Date:        restDay,
				Location:    pos.Interpolate(next.host.Location, float64(j)/float64(next.days)),
				ArriveAt:    restDay.Add(c.Departure + legDuration),
				LegDistance: legDistance,
				LegDuration: legDuration,
			})
		}

		showDay := day.AddDate(0, 0, next.days-1)
		capacity := min(next.host.Capacity.Max, req.Capacity.Max)
		stops = append(stops, domain.Stop{
			Kind:             domain.StopShow,
			Date:             showDay,
			HostID:           next.host.ID,
			HostName:         next.host.Name,
			Location:         next.host.Location,
			ArriveAt:         showDay.Add(c.Departure + legDuration),
			LegDistance:      legDistance,
			LegDuration:      legDuration,
			ExpectedCapacity: capacity,
			Guarantee:        req.Terms.BaseGuarantee,
		})

		if next.days > 1 {
			run = 0
		}
		run++
		shows++
		placed[next.host.ID] = true
		pos = next.host.Location
		day = showDay.AddDate(0, 0, 1)
	}

	// Rest days after the final show serve no purpose.
	last := len(stops)
	for last > 0 && stops[last-1].Kind == domain.StopRest {
		last--
	}
	plan.Stops = stops[:last]

	return placed
}

// selectNext picks the closest placeable host. Ties go to the higher response
// rate, then the lower median response time, then the lower ID.
func (o ItineraryOptimizer) selectNext(
	c domain.PlanConstraints,
	day time.Time,
	pos domain.Coordinates,
	hosts []domain.HostCandidate,
	placed map[string]bool,
	matrix *DistanceMatrix,
	minDays int,
) (move, bool) {
	var best move
	found := false

	for _, h := range hosts {
		if placed[h.ID] {
			continue
		}

		leg, ok := matrix.Get(pos, h.Location)
		if !ok {
			continue
		}

		days, ok := legDays(c, leg, minDays)
		if !ok {
			continue
		}

		showDay := day.AddDate(0, 0, days-1)
		if showDay.After(c.Dates.End) || !h.AvailableOn(showDay) {
			continue
		}

		cand := move{host: h, leg: leg, days: days}
		if !found || better(cand, best) {
			best = cand
			found = true
		}
	}

	return best, found
}

// placeableLater reports whether waiting at pos for one or more days would let
// some unplaced host be scheduled before the tour ends.
func (o ItineraryOptimizer) placeableLater(
	c domain.PlanConstraints,
	day time.Time,
	pos domain.Coordinates,
	hosts []domain.HostCandidate,
	placed map[string]bool,
	matrix *DistanceMatrix,
) bool {
	for _, h := range hosts {
		if placed[h.ID] {
			continue
		}

		leg, ok := matrix.Get(pos, h.Location)
		if !ok {
			continue
		}

		days, ok := legDays(c, leg, 1)
		if !ok {
			continue
		}

		for showDay := day.AddDate(0, 0, days); !showDay.After(c.Dates.End); showDay = showDay.AddDate(0, 0, 1) {
			if h.AvailableOn(showDay) {
				return true
			}
		}
	}
	return false
}

// legDays returns how many days a leg needs so that each day's share stays
// within the daily distance cap and arrives by the preferred time.
func legDays(c domain.PlanConstraints, leg ports.DistanceResult, minDays int) (int, bool) {
	days := max(minDays, 1)

	if c.MaxDailyDistance > 0 && leg.Distance > 0 {
		days = max(days, int(math.Ceil(leg.Distance/c.MaxDailyDistance)))
		for leg.Distance/float64(days) > c.MaxDailyDistance {
			days++
		}
	}

	if leg.Duration > 0 {
		window := c.PreferredArrival - c.Departure
		if window <= 0 {
			return 0, false
		}
		days = max(days, int((leg.Duration+window-1)/window))
	}

	return days, true
}

func better(a, b move) bool {
	if a.leg.Distance != b.leg.Distance {
		return a.leg.Distance < b.leg.Distance
	}
	ra, rb := a.host.Responsiveness, b.host.Responsiveness
	if ra.ResponseRate != rb.ResponseRate {
		return ra.ResponseRate > rb.ResponseRate
	}
	if ra.MedianResponseHours != rb.MedianResponseHours {
		return ra.MedianResponseHours < rb.MedianResponseHours
	}
	return a.host.ID < b.host.ID
}

// summarize recomputes the aggregate metrics from the stops.
func summarize(plan *domain.TourPlan, terms domain.RevenueTerms) {
	plan.TotalDistance = 0
	plan.TotalDriveTime = 0
	plan.ShowCount = 0
	plan.RestDayCount = 0
	plan.ProjectedRevenue = 0

	for _, s := range plan.Stops {
		plan.TotalDistance += s.LegDistance
		plan.TotalDriveTime += s.LegDuration
		switch s.Kind {
		case domain.StopShow:
			plan.ShowCount++
			plan.ProjectedRevenue += terms.ShowRevenue(s.ExpectedCapacity)
		case domain.StopRest:
			plan.RestDayCount++
		}
	}
}
