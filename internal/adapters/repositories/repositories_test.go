package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/db"
	"tour-routing-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type store interface {
	ports.TourRepository
	ports.HostRepository
	ports.ApplicationRepository
	ports.InvitationRepository
	ports.PlanRepository
}

type sqliteStore struct {
	*SqliteTourRepository
	*SqliteHostRepository
	*SqliteApplicationRepository
}

func newSqliteStore(t *testing.T) sqliteStore {
	t.Helper()
	ctx := context.Background()

	sqlDB, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, InitSchema(ctx, sqlDB))

	return sqliteStore{
		SqliteTourRepository:        NewSqliteTourRepository(sqlDB),
		SqliteHostRepository:        NewSqliteHostRepository(sqlDB),
		SqliteApplicationRepository: NewSqliteApplicationRepository(sqlDB),
	}
}

func stores(t *testing.T) map[string]store {
	return map[string]store{
		"sqlite": newSqliteStore(t),
		"memory": NewMemoryStore(),
	}
}

var t0 = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func sampleHost(id string) domain.HostCandidate {
	return domain.HostCandidate{
		ID:         id,
		Name:       "House " + id,
		City:       "Tucson",
		State:      "AZ",
		Location:   domain.Coordinates{Lon: -110.97, Lat: 32.22},
		Capacity:   domain.CapacityRange{Min: 20, Max: 60},
		Genres:     domain.NewGenreSet(domain.GenreFolk, domain.GenreJazz),
		VenueTypes: domain.NewVenueTypeSet(domain.VenueLivingRoom),
		Responsiveness: domain.Responsiveness{
			ResponseRate:        0.9,
			MedianResponseHours: 12,
			ShowsHosted:         4,
		},
		Unavailable: []domain.DateRange{
			domain.NewDateRange(time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 4, 0, 0, 0, 0, time.UTC)),
		},
	}
}

func sampleTour(id string) *domain.Tour {
	return &domain.Tour{
		ID: id,
		Request: domain.TourRequest{
			ArtistID: "artist-1",
			Title:    "Summer Rooms",
			Dates: domain.NewDateRange(
				time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
			),
			Capacity:      domain.CapacityRange{Min: 20, Max: 50},
			ExpectedShows: 5,
			Genres:        domain.NewGenreSet(domain.GenreFolk),
		},
		Status:      domain.TourPlanning,
		PlanVersion: 1,
		CreatedAt:   t0,
		UpdatedAt:   t0,
	}
}

func TestHostRepositories(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.SaveHost(ctx, sampleHost("h2")))
			require.NoError(t, s.SaveHost(ctx, sampleHost("h1")))

			hosts, err := s.ListHosts(ctx)
			require.NoError(t, err)
			require.Len(t, hosts, 2)
			assert.Equal(t, "h1", hosts[0].ID)
			assert.Equal(t, sampleHost("h1"), hosts[0])

			_, err = s.GetHost(ctx, "missing")
			require.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestTourAndPlanRepositories(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tour := sampleTour("t1")
			require.NoError(t, s.SaveTour(ctx, tour))

			got, err := s.GetTour(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, tour.Request.Title, got.Request.Title)
			assert.Equal(t, tour.Request.Genres, got.Request.Genres)
			assert.True(t, tour.CreatedAt.Equal(got.CreatedAt))

			got.Status = domain.TourSeekingHosts
			require.NoError(t, s.SaveTour(ctx, got))
			again, err := s.GetTour(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, domain.TourSeekingHosts, again.Status)

			_, err = s.GetPlan(ctx, "t1")
			require.ErrorIs(t, err, domain.ErrNotFound)

			plan := &domain.TourPlan{TourID: "t1", Version: 1, Stops: []domain.Stop{}, Feasible: true}
			require.NoError(t, s.SavePlan(ctx, plan))
			p, err := s.GetPlan(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, 1, p.Version)
			assert.True(t, p.Feasible)

			_, err = s.GetTour(ctx, "nope")
			require.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestApplicationRepositories(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.SaveTour(ctx, sampleTour("t1")))

			a1 := &domain.ShowApplication{
				ID: "a1", TourID: "t1", HostID: "h1", PlanVersion: 1,
				ProposedDate: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), ProposedCapacity: 30,
				Status: domain.ApplicationPending, CreatedAt: t0, UpdatedAt: t0,
			}
			a2 := &domain.ShowApplication{
				ID: "a2", TourID: "t1", HostID: "h2", PlanVersion: 1,
				ProposedDate: time.Date(2026, 6, 4, 0, 0, 0, 0, time.UTC), ProposedCapacity: 40,
				Status: domain.ApplicationAccepted, CreatedAt: t0.Add(time.Minute), UpdatedAt: t0,
			}
			require.NoError(t, s.SaveApplication(ctx, a2))
			require.NoError(t, s.SaveApplication(ctx, a1))

			all, err := s.ListApplications(ctx, "t1")
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "a1", all[0].ID)

			accepted, err := s.ListApplications(ctx, "t1", domain.ApplicationAccepted)
			require.NoError(t, err)
			require.Len(t, accepted, 1)
			assert.Equal(t, "a2", accepted[0].ID)

			found, err := s.FindApplication(ctx, "t1", "h1", 1)
			require.NoError(t, err)
			assert.Equal(t, "a1", found.ID)
			_, err = s.FindApplication(ctx, "t1", "h1", 2)
			require.ErrorIs(t, err, domain.ErrNotFound)

			reminded := t0.Add(48 * time.Hour)
			a2.RemindedAt = &reminded
			a2.Status = domain.ApplicationConfirmed
			require.NoError(t, s.SaveApplication(ctx, a2))
			got, err := s.GetApplication(ctx, "a2")
			require.NoError(t, err)
			assert.Equal(t, domain.ApplicationConfirmed, got.Status)
			require.NotNil(t, got.RemindedAt)
			assert.True(t, reminded.Equal(*got.RemindedAt))
		})
	}
}

func TestInvitationRepositories(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.SaveTour(ctx, sampleTour("t1")))

			inv := &domain.Invitation{ID: "i1", TourID: "t1", HostID: "h1", PlanVersion: 1, Status: domain.InvitationFailed, LastError: "boom"}
			require.NoError(t, s.SaveInvitation(ctx, inv))

			sent := t0
			inv.Status = domain.InvitationSent
			inv.SentAt = &sent
			inv.LastError = ""
			require.NoError(t, s.SaveInvitation(ctx, inv))

			got, err := s.GetInvitation(ctx, "t1", "h1", 1)
			require.NoError(t, err)
			assert.Equal(t, domain.InvitationSent, got.Status)
			require.NotNil(t, got.SentAt)
			assert.Nil(t, got.RespondedAt)
			assert.Empty(t, got.LastError)

			_, err = s.GetInvitation(ctx, "t1", "h1", 2)
			require.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestSeedFromJSON(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, InitSchema(ctx, sqlDB))

	path := filepath.Join(t.TempDir(), "hosts.json")
	seed := `[
	  {"id": "h1", "name": "Porch", "city": "Tucson", "state": "AZ",
	   "location": {"lon": -110.97, "lat": 32.22},
	   "capacity": {"min": 10, "max": 40},
	   "genres": ["folk"], "venue_types": ["backyard"],
	   "responsiveness": {"response_rate": 0.8, "median_response_hours": 10, "shows_hosted": 2}}
	]`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	n, err := SeedFromJSON(ctx, sqlDB, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	h, err := NewSqliteHostRepository(sqlDB).GetHost(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, h.Genres.Has(domain.GenreFolk))
	assert.True(t, h.VenueTypes.Has(domain.VenueBackyard))
}

func TestLoadHostsJSONRejectsBadSeeds(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty id":  `[{"id": " ", "capacity": {"min": 1, "max": 2}}]`,
		"duplicate": `[{"id": "a", "capacity": {"min": 1, "max": 2}}, {"id": "a", "capacity": {"min": 1, "max": 2}}]`,
		"capacity":  `[{"id": "a", "capacity": {"min": 5, "max": 2}}]`,
		"syntax":    `[{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := LoadHostsJSON(path)
			require.Error(t, err)
		})
	}
}
