package services

import (
	"strings"

	"tour-routing-service/internal/domain"

	"golang.org/x/text/cases"
)

type ExclusionReason string

const (
	ReasonCapacity     ExclusionReason = "capacity"
	ReasonRegion       ExclusionReason = "region"
	ReasonGenre        ExclusionReason = "genre"
	ReasonVenueType    ExclusionReason = "venue_type"
	ReasonResponseRate ExclusionReason = "response_rate"
	ReasonResponseTime ExclusionReason = "response_time"
)

// Exclusion records the first check a host failed.
type Exclusion struct {
	HostID string
	Reason ExclusionReason
}

// FilterResult is the outcome of eligibility filtering. An empty Eligible list
// is a normal, actionable result rather than an error.
type FilterResult struct {
	Eligible   []domain.HostCandidate
	Exclusions []Exclusion
}

func (r FilterResult) NoEligibleHosts() bool { return len(r.Eligible) == 0 }

// Err returns domain.ErrNoEligibleHosts for callers that prefer an error value.
func (r FilterResult) Err() error {
	if r.NoEligibleHosts() {
		return domain.ErrNoEligibleHosts
	}
	return nil
}

func (r FilterResult) EligibleIDs() []string {
	ids := make([]string, 0, len(r.Eligible))
	for _, h := range r.Eligible {
		ids = append(ids, h.ID)
	}
	return ids
}

// EligibilityFilter narrows a host pool to the hosts structurally and
// behaviourally qualified for a tour. It is a pure function of its inputs.
type EligibilityFilter struct {
	Policy domain.Policy
}

func (f EligibilityFilter) Filter(req domain.TourRequest, pool []domain.HostCandidate) FilterResult {
	res := FilterResult{
		Eligible:   make([]domain.HostCandidate, 0, len(pool)),
		Exclusions: []Exclusion{},
	}

	regions := foldRegions(req.Regions)
	for _, h := range pool {
		if reason, ok := f.check(req, regions, h); !ok {
			res.Exclusions = append(res.Exclusions, Exclusion{HostID: h.ID, Reason: reason})
			continue
		}
		res.Eligible = append(res.Eligible, h)
	}

	return res
}

// Eligible reports whether a single host passes every check.
func (f EligibilityFilter) Eligible(req domain.TourRequest, h domain.HostCandidate) (ExclusionReason, bool) {
	return f.check(req, foldRegions(req.Regions), h)
}

func (f EligibilityFilter) check(req domain.TourRequest, regions []domain.Region, h domain.HostCandidate) (ExclusionReason, bool) {
	if !h.Capacity.Overlaps(req.Capacity) {
		return ReasonCapacity, false
	}
	if !inRegions(regions, h) {
		return ReasonRegion, false
	}
	if !req.Genres.Empty() && !req.Genres.Intersects(h.Genres) {
		return ReasonGenre, false
	}
	if !req.VenueTypes.Empty() && !req.VenueTypes.Intersects(h.VenueTypes) {
		return ReasonVenueType, false
	}
	if h.Responsiveness.ResponseRate < f.Policy.MinResponseRate {
		return ReasonResponseRate, false
	}
	if h.Responsiveness.MedianResponseHours > f.Policy.MaxMedianResponseHours {
		return ReasonResponseTime, false
	}
	return "", true
}

// inRegions expects regions already folded by foldRegions.
func inRegions(regions []domain.Region, h domain.HostCandidate) bool {
	if len(regions) == 0 {
		return true
	}

	state := foldName(h.State)
	city := foldName(h.City)
	for _, r := range regions {
		if r.State != "" && r.State != state {
			continue
		}
		if r.City == "" || r.City == city {
			return true
		}
	}
	return false
}

func foldRegions(in []domain.Region) []domain.Region {
	out := make([]domain.Region, 0, len(in))
	for _, r := range in {
		out = append(out, domain.Region{State: foldName(r.State), City: foldName(r.City)})
	}
	return out
}

// foldName makes "  St. Louis" and "st.  louis" compare equal.
func foldName(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}
