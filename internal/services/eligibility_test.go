package services

import (
	"testing"

	"tour-routing-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterExcludesLowResponseRate(t *testing.T) {
	f := EligibilityFilter{Policy: domain.DefaultPolicy()}

	h := host("h1", 0, 0)
	h.Responsiveness.ResponseRate = 0.65

	res := f.Filter(request(), []domain.HostCandidate{h})
	assert.True(t, res.NoEligibleHosts())
	require.Len(t, res.Exclusions, 1)
	assert.Equal(t, Exclusion{HostID: "h1", Reason: ReasonResponseRate}, res.Exclusions[0])

	h.Responsiveness.ResponseRate = 0.70
	res = f.Filter(request(), []domain.HostCandidate{h})
	assert.Equal(t, []string{"h1"}, res.EligibleIDs())
}

func TestFilterRegionWithNoEligibleHostsIsTypedEmptyResult(t *testing.T) {
	f := EligibilityFilter{Policy: domain.DefaultPolicy()}
	req := request()
	req.Regions = []domain.Region{{State: "TX"}}

	pool := lineHosts(4, 1)
	for i := range pool {
		pool[i].Responsiveness.ResponseRate = 0.5
	}

	res := f.Filter(req, pool)
	assert.True(t, res.NoEligibleHosts())
	assert.ErrorIs(t, res.Err(), domain.ErrNoEligibleHosts)
	assert.Len(t, res.Exclusions, 4)

	empty := f.Filter(req, nil)
	assert.ErrorIs(t, empty.Err(), domain.ErrNoEligibleHosts)
}

func TestFilterChecks(t *testing.T) {
	f := EligibilityFilter{Policy: domain.DefaultPolicy()}

	tests := []struct {
		name   string
		mutate func(*domain.TourRequest, *domain.HostCandidate)
		reason ExclusionReason
	}{
		{
			name: "capacity does not overlap",
			mutate: func(_ *domain.TourRequest, h *domain.HostCandidate) {
				h.Capacity = domain.CapacityRange{Min: 80, Max: 120}
			},
			reason: ReasonCapacity,
		},
		{
			name: "outside target state",
			mutate: func(r *domain.TourRequest, _ *domain.HostCandidate) {
				r.Regions = []domain.Region{{State: "OK"}}
			},
			reason: ReasonRegion,
		},
		{
			name: "other city in target state",
			mutate: func(r *domain.TourRequest, _ *domain.HostCandidate) {
				r.Regions = []domain.Region{{State: "TX", City: "Houston"}}
			},
			reason: ReasonRegion,
		},
		{
			name: "no shared genre",
			mutate: func(r *domain.TourRequest, _ *domain.HostCandidate) {
				r.Genres = domain.NewGenreSet(domain.GenreElectronic)
			},
			reason: ReasonGenre,
		},
		{
			name: "no shared venue type",
			mutate: func(r *domain.TourRequest, _ *domain.HostCandidate) {
				r.VenueTypes = domain.NewVenueTypeSet(domain.VenueWarehouse)
			},
			reason: ReasonVenueType,
		},
		{
			name: "slow responder",
			mutate: func(_ *domain.TourRequest, h *domain.HostCandidate) {
				h.Responsiveness.MedianResponseHours = 49
			},
			reason: ReasonResponseTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request()
			h := host("h1", 0, 0)
			tt.mutate(&req, &h)

			reason, ok := f.Eligible(req, h)
			assert.False(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestFilterRegionMatchingFoldsCase(t *testing.T) {
	f := EligibilityFilter{Policy: domain.DefaultPolicy()}
	req := request()
	req.Regions = []domain.Region{{State: "tx", City: "  AUSTIN "}}

	_, ok := f.Eligible(req, host("h1", 0, 0))
	assert.True(t, ok)
}

func TestFilterCityOnlyRegionMatchesAnyState(t *testing.T) {
	f := EligibilityFilter{Policy: domain.DefaultPolicy()}
	req := request()
	req.Regions = []domain.Region{{City: "austin"}}

	_, ok := f.Eligible(req, host("h1", 0, 0))
	assert.True(t, ok)

	elsewhere := host("h2", 0, 0)
	elsewhere.City = "Dallas"
	reason, ok := f.Eligible(req, elsewhere)
	assert.False(t, ok)
	assert.Equal(t, ReasonRegion, reason)
}

func TestFilterKeepsInputOrder(t *testing.T) {
	f := EligibilityFilter{Policy: domain.DefaultPolicy()}
	pool := []domain.HostCandidate{host("c", 0, 0), host("a", 0, 0), host("b", 0, 0)}

	res := f.Filter(request(), pool)
	assert.Equal(t, []string{"c", "a", "b"}, res.EligibleIDs())
}

func TestFilterIsMonotonicInGenreAndVenueRequirements(t *testing.T) {
	f := EligibilityFilter{Policy: domain.DefaultPolicy()}

	genres := []domain.Genre{domain.GenreRock, domain.GenreFolk, domain.GenreJazz, domain.GenreBlues}
	venues := []domain.VenueType{domain.VenueLivingRoom, domain.VenueBackyard, domain.VenueBarn}

	// A pool covering every combination of one genre and one venue type.
	var pool []domain.HostCandidate
	for _, g := range genres {
		for _, v := range venues {
			h := host(g.String()+"-"+v.String(), 0, 0)
			h.Genres = domain.NewGenreSet(g)
			h.VenueTypes = domain.NewVenueTypeSet(v)
			pool = append(pool, h)
		}
	}

	eligible := func(gs domain.GenreSet, vs domain.VenueTypeSet) map[string]bool {
		req := request()
		req.Genres = gs
		req.VenueTypes = vs
		out := map[string]bool{}
		for _, id := range f.Filter(req, pool).EligibleIDs() {
			out[id] = true
		}
		return out
	}
	subset := func(t *testing.T, small, big map[string]bool) {
		t.Helper()
		for id := range small {
			assert.True(t, big[id], "host %s became eligible under a stricter requirement", id)
		}
	}

	unconstrained := eligible(0, 0)
	assert.Len(t, unconstrained, len(pool))

	// Shrinking a non-empty requirement set, or introducing one, is stricter.
	for mask := 1; mask < 1<<len(genres); mask++ {
		var gs domain.GenreSet
		for i, g := range genres {
			if mask&(1<<i) != 0 {
				gs |= domain.NewGenreSet(g)
			}
		}
		withGenres := eligible(gs, 0)
		subset(t, withGenres, unconstrained)

		for _, g := range gs.Slice() {
			narrower := gs &^ domain.NewGenreSet(g)
			if narrower.Empty() {
				continue
			}
			subset(t, eligible(narrower, 0), withGenres)
		}

		withBoth := eligible(gs, domain.NewVenueTypeSet(domain.VenueBarn))
		subset(t, withBoth, withGenres)
	}
}
