package services

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"tour-routing-service/internal/domain"
)

// FeasibilityChecker re-validates a plan against the hard scheduling rules
// using nothing but the plan itself. Hand-edited plans are checked the same way.
type FeasibilityChecker struct{}

// Check reports feasible=true if and only if no violation was found.
func (FeasibilityChecker) Check(plan *domain.TourPlan) (bool, []domain.Violation) {
	violations := []domain.Violation{}
	if plan == nil {
		violations = append(violations, domain.Violation{
			Rule:    domain.RuleNoFeasiblePlacement,
			Message: "no feasible placement",
		})
		return false, violations
	}

	c := plan.Constraints
	eligible := make(map[string]struct{}, len(plan.EligibleHostIDs))
	for _, id := range plan.EligibleHostIDs {
		eligible[id] = struct{}{}
	}
	booked := make(map[string]int)

	shows := 0
	run := 0
	for i, s := range plan.Stops {
		pos := i + 1
		day := domain.Day(s.Date)

		if c.Dates.Valid() && !c.Dates.Contains(day) {
			violations = append(violations, domain.Violation{
				Rule:    domain.RuleOutsideDateRange,
				From:    pos,
				To:      pos,
				Message: fmt.Sprintf("stop %d outside tour date range: %s", pos, day.Format(domain.DateLayout)),
			})
		}

		if i > 0 {
			prev := domain.Day(plan.Stops[i-1].Date)
			if !day.After(prev) {
				violations = append(violations, domain.Violation{
					Rule: domain.RuleDateOrder,
					From: i,
					To:   pos,
					Message: fmt.Sprintf("stops out of order between stop %d and %d: %s is not after %s",
						i, pos, day.Format(domain.DateLayout), prev.Format(domain.DateLayout)),
				})
			}
		}

		if c.MaxDailyDistance > 0 && s.LegDistance > c.MaxDailyDistance {
			violations = append(violations, domain.Violation{
				Rule: domain.RuleExcessDailyDistance,
				From: i,
				To:   pos,
				Message: fmt.Sprintf("excess daily distance %s: %s > %s",
					between(i, pos), formatDistance(s.LegDistance), formatDistance(c.MaxDailyDistance)),
			})
		}

		if s.Kind == domain.StopRest {
			run = 0
			continue
		}

		shows++
		run++

		arrive := day.Add(c.Departure + s.LegDuration)
		limit := day.Add(c.PreferredArrival)
		if arrive.After(limit) {
			violations = append(violations, domain.Violation{
				Rule: domain.RuleLateArrival,
				From: i,
				To:   pos,
				Message: fmt.Sprintf("late arrival %s: drive of %s arrives %s after preferred %s",
					between(i, pos), s.LegDuration.Round(time.Minute), arrive.Format("01-02 15:04"), clock(c.PreferredArrival)),
			})
		}

		if c.MaxConsecutiveShows > 0 && run == c.MaxConsecutiveShows+1 {
			violations = append(violations, domain.Violation{
				Rule: domain.RuleMissingRestDay,
				From: pos - run + 1,
				To:   pos,
				Message: fmt.Sprintf("missing rest day between stop %d and %d: more than %d consecutive shows",
					pos-run+1, pos, c.MaxConsecutiveShows),
			})
		}

		if s.HostID == "" {
			violations = append(violations, domain.Violation{
				Rule:    domain.RuleMissingHost,
				From:    pos,
				To:      pos,
				Message: fmt.Sprintf("show stop %d has no host", pos),
			})
			continue
		}

		if _, ok := eligible[s.HostID]; !ok {
			violations = append(violations, domain.Violation{
				Rule:    domain.RuleIneligibleHost,
				From:    pos,
				To:      pos,
				Message: fmt.Sprintf("stop %d host %s did not pass eligibility", pos, s.HostID),
			})
		}

		if first, ok := booked[s.HostID]; ok {
			violations = append(violations, domain.Violation{
				Rule:    domain.RuleDuplicateHost,
				From:    first,
				To:      pos,
				Message: fmt.Sprintf("host %s booked at stop %d and %d", s.HostID, first, pos),
			})
		} else {
			booked[s.HostID] = pos
		}
	}

	if shows == 0 {
		violations = append([]domain.Violation{{
			Rule:    domain.RuleNoFeasiblePlacement,
			Message: "no feasible placement",
		}}, violations...)
	}

	return len(violations) == 0, violations
}

func between(from, to int) string {
	if from == 0 {
		return fmt.Sprintf("between origin and stop %d", to)
	}
	return fmt.Sprintf("between stop %d and %d", from, to)
}

func formatDistance(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
