package services

import (
	"context"
	"slices"
	"testing"
	"time"

	"tour-routing-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func show(day int, hostID string, distance float64, drive time.Duration) domain.Stop {
	return domain.Stop{
		Kind:        domain.StopShow,
		Date:        date(time.June, day),
		HostID:      hostID,
		LegDistance: distance,
		LegDuration: drive,
	}
}

func rest(day int, distance float64, drive time.Duration) domain.Stop {
	return domain.Stop{
		Kind:        domain.StopRest,
		Date:        date(time.June, day),
		LegDistance: distance,
		LegDuration: drive,
	}
}

func handPlan(stops ...domain.Stop) *domain.TourPlan {
	return &domain.TourPlan{
		Stops: stops,
		Constraints: domain.PlanConstraints{
			Dates:               domain.NewDateRange(date(time.June, 1), date(time.June, 10)),
			MaxDailyDistance:    300,
			PreferredArrival:    16 * time.Hour,
			Departure:           10 * time.Hour,
			MaxConsecutiveShows: 2,
		},
		EligibleHostIDs: []string{"a", "b", "c", "d"},
	}
}

func TestCheckerAcceptsValidPlan(t *testing.T) {
	plan := handPlan(
		show(1, "a", 0, 0),
		show(2, "b", 250, 5*time.Hour),
		rest(3, 0, 0),
		show(4, "c", 120, 2*time.Hour),
	)

	ok, violations := FeasibilityChecker{}.Check(plan)
	assert.True(t, ok)
	assert.Empty(t, violations)
}

func TestCheckerReportsEachRule(t *testing.T) {
	tests := []struct {
		name string
		plan *domain.TourPlan
		rule domain.ViolationRule
		from int
		to   int
		msg  string
	}{
		{
			name: "excess daily distance",
			plan: handPlan(
				show(1, "a", 0, 0),
				show(2, "b", 100, 2*time.Hour),
				rest(3, 340, 5*time.Hour),
			),
			rule: domain.RuleExcessDailyDistance,
			from: 2,
			to:   3,
			msg:  "excess daily distance between stop 2 and 3: 340 > 300",
		},
		{
			name: "excess distance from origin",
			plan: handPlan(show(1, "a", 301.25, 5*time.Hour)),
			rule: domain.RuleExcessDailyDistance,
			from: 0,
			to:   1,
			msg:  "excess daily distance between origin and stop 1: 301.3 > 300",
		},
		{
			name: "late arrival",
			plan: handPlan(show(1, "a", 0, 0), show(2, "b", 250, 7*time.Hour)),
			rule: domain.RuleLateArrival,
			from: 1,
			to:   2,
			msg:  "late arrival between stop 1 and 2: drive of 7h0m0s arrives 06-02 17:00 after preferred 16:00",
		},
		{
			name: "missing rest day",
			plan: handPlan(show(1, "a", 0, 0), show(2, "b", 10, time.Hour), show(3, "c", 10, time.Hour)),
			rule: domain.RuleMissingRestDay,
			from: 1,
			to:   3,
			msg:  "missing rest day between stop 1 and 3: more than 2 consecutive shows",
		},
		{
			name: "out of order",
			plan: handPlan(show(2, "a", 0, 0), rest(2, 0, 0), show(4, "b", 10, time.Hour)),
			rule: domain.RuleDateOrder,
			from: 1,
			to:   2,
			msg:  "stops out of order between stop 1 and 2: 2026-06-02 is not after 2026-06-02",
		},
		{
			name: "outside date range",
			plan: handPlan(show(1, "a", 0, 0), show(11, "b", 10, time.Hour)),
			rule: domain.RuleOutsideDateRange,
			from: 2,
			to:   2,
			msg:  "stop 2 outside tour date range: 2026-06-11",
		},
		{
			name: "ineligible host",
			plan: handPlan(show(1, "a", 0, 0), show(2, "z", 10, time.Hour)),
			rule: domain.RuleIneligibleHost,
			from: 2,
			to:   2,
			msg:  "stop 2 host z did not pass eligibility",
		},
		{
			name: "duplicate host",
			plan: handPlan(show(1, "a", 0, 0), rest(2, 0, 0), show(3, "a", 0, 0)),
			rule: domain.RuleDuplicateHost,
			from: 1,
			to:   3,
			msg:  "host a booked at stop 1 and 3",
		},
		{
			name: "show without host",
			plan: handPlan(show(1, "", 0, 0)),
			rule: domain.RuleMissingHost,
			from: 1,
			to:   1,
			msg:  "show stop 1 has no host",
		},
		{
			name: "no shows",
			plan: handPlan(),
			rule: domain.RuleNoFeasiblePlacement,
			msg:  "no feasible placement",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, violations := FeasibilityChecker{}.Check(tt.plan)
			assert.False(t, ok)
			require.Len(t, violations, 1, "violations: %v", violations)
			assert.Equal(t, domain.Violation{Rule: tt.rule, From: tt.from, To: tt.to, Message: tt.msg}, violations[0])
		})
	}
}

func TestCheckerNilPlan(t *testing.T) {
	ok, violations := FeasibilityChecker{}.Check(nil)
	assert.False(t, ok)
	require.Len(t, violations, 1)
	assert.Equal(t, domain.RuleNoFeasiblePlacement, violations[0].Rule)
}

func TestCheckerReportsEveryViolation(t *testing.T) {
	plan := handPlan(
		show(1, "a", 400, 9*time.Hour),
		show(2, "b", 0, 0),
		show(3, "b", 0, 0),
	)

	_, violations := FeasibilityChecker{}.Check(plan)

	rules := make([]domain.ViolationRule, 0, len(violations))
	for _, v := range violations {
		rules = append(rules, v.Rule)
	}
	assert.Equal(t, []domain.ViolationRule{
		domain.RuleExcessDailyDistance,
		domain.RuleLateArrival,
		domain.RuleMissingRestDay,
		domain.RuleDuplicateHost,
	}, rules)
}

func TestCheckerCatchesEditsToGeneratedPlan(t *testing.T) {
	plan, err := newOptimizer(&lineProvider{}).Plan(context.Background(), request(), lineHosts(5, 1))
	require.NoError(t, err)
	require.True(t, plan.Feasible)

	// Dropping the first rest day leaves four shows in a row.
	edited := *plan
	edited.Stops = slices.Delete(slices.Clone(plan.Stops), 2, 3)

	ok, violations := FeasibilityChecker{}.Check(&edited)
	assert.False(t, ok)
	require.NotEmpty(t, violations)
	assert.Equal(t, domain.RuleMissingRestDay, violations[0].Rule)
	assert.Equal(t, 1, violations[0].From)
	assert.Equal(t, 3, violations[0].To)

	// Stretching a leg past the cap is caught without the estimator.
	edited = *plan
	edited.Stops = slices.Clone(plan.Stops)
	edited.Stops[3].LegDistance = 340

	ok, violations = FeasibilityChecker{}.Check(&edited)
	assert.False(t, ok)
	require.Len(t, violations, 1)
	assert.Equal(t, "excess daily distance between stop 3 and 4: 340 > 300", violations[0].Message)
}
