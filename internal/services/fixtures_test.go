package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"tour-routing-service/internal/adapters/events"
	"tour-routing-service/internal/adapters/messaging"
	"tour-routing-service/internal/adapters/repositories"
	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/retry"
	"tour-routing-service/internal/ports"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func date(month time.Month, d int) time.Time {
	return time.Date(2026, month, d, 0, 0, 0, 0, time.UTC)
}

// host returns a candidate that passes every default eligibility check.
func host(id string, lon, lat float64) domain.HostCandidate {
	return domain.HostCandidate{
		ID:         id,
		Name:       "Host " + id,
		City:       "Austin",
		State:      "TX",
		Location:   domain.Coordinates{Lon: lon, Lat: lat},
		Capacity:   domain.CapacityRange{Min: 20, Max: 60},
		Genres:     domain.NewGenreSet(domain.GenreFolk, domain.GenreJazz),
		VenueTypes: domain.NewVenueTypeSet(domain.VenueLivingRoom, domain.VenueBackyard),
		Responsiveness: domain.Responsiveness{
			ResponseRate:        0.9,
			MedianResponseHours: 12,
			ShowsHosted:         3,
		},
	}
}

func request() domain.TourRequest {
	origin := domain.Coordinates{Lon: 0, Lat: 0}
	return domain.TourRequest{
		ArtistID:         "artist-1",
		ArtistName:       "June Harbor",
		Title:            "Living Room Summer",
		Dates:            domain.NewDateRange(date(time.June, 1), date(time.June, 10)),
		Capacity:         domain.CapacityRange{Min: 20, Max: 50},
		ExpectedShows:    5,
		MaxDailyDistance: 300,
		PreferredArrival: 16 * time.Hour,
		Origin:           &origin,
		Terms:            domain.RevenueTerms{BaseGuarantee: 200, RevenueSplitPct: 70, TicketPrice: 20},
	}
}

// lineHosts places n hosts on the equator spacing degrees of longitude apart.
func lineHosts(n int, spacing float64) []domain.HostCandidate {
	hosts := make([]domain.HostCandidate, 0, n)
	for i := range n {
		hosts = append(hosts, host(fmt.Sprintf("h%02d", i), float64(i)*spacing, 0))
	}
	return hosts
}

// lineProvider measures 100 units per degree of longitude at 50 units an hour.
type lineProvider struct {
	mu    sync.Mutex
	calls int
	fail  func(a, b domain.Coordinates) bool
	delay time.Duration
}

func (p *lineProvider) GetDistance(ctx context.Context, a, b domain.Coordinates) (ports.DistanceResult, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return ports.DistanceResult{}, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	if p.fail != nil && p.fail(a, b) {
		return ports.DistanceResult{}, fmt.Errorf("estimator down for %s -> %s", a.Key(), b.Key())
	}

	d := math.Abs(a.Lon-b.Lon)*100 + math.Abs(a.Lat-b.Lat)*100
	return ports.DistanceResult{
		Distance: d,
		Duration: time.Duration(d / 50 * float64(time.Hour)),
	}, nil
}

func (p *lineProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func newOptimizer(p ports.DistanceProvider) ItineraryOptimizer {
	return ItineraryOptimizer{Provider: p, Policy: domain.DefaultPolicy(), Concurrency: 4}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// harness wires the workflows against in-memory adapters.
type harness struct {
	store    *repositories.MemoryStore
	outbox   *messaging.Outbox
	recorder *events.Recorder
	clock    *testClock
	cancels  *CancelRegistry
	states   *StateMachine
	invites  *InvitationWorkflow
	confirms *ConfirmationWorkflow
}

func newHarness(t *testing.T, sender ports.MessageSender, hosts ...domain.HostCandidate) *harness {
	t.Helper()

	h := &harness{
		store:    repositories.NewMemoryStore(hosts...),
		outbox:   messaging.NewOutbox(),
		recorder: &events.Recorder{},
		clock:    &testClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)},
		cancels:  NewCancelRegistry(),
	}
	if sender == nil {
		sender = h.outbox
	}

	policy := domain.DefaultPolicy()
	h.states = &StateMachine{
		Tours:        h.store,
		Applications: h.store,
		Events:       h.recorder,
		Clock:        h.clock.Now,
	}
	h.invites = &InvitationWorkflow{
		Sender:       sender,
		Invitations:  h.store,
		Applications: h.store,
		States:       h.states,
		Cancels:      h.cancels,
		Policy:       policy,
		Retry:        retry.NoWait(1),
		BaseURL:      "https://tours.example.com",
	}
	h.confirms = &ConfirmationWorkflow{
		Sender:       sender,
		Applications: h.store,
		Hosts:        h.store,
		States:       h.states,
		Cancels:      h.cancels,
		Policy:       policy,
		Retry:        retry.NoWait(1),
	}
	return h
}

func (h *harness) saveTour(t *testing.T, id string, status domain.TourStatus) *domain.Tour {
	t.Helper()
	tour := &domain.Tour{
		ID:          id,
		Request:     request().WithDefaults(domain.DefaultPolicy()),
		Status:      status,
		PlanVersion: 1,
		CreatedAt:   h.clock.Now(),
		UpdatedAt:   h.clock.Now(),
	}
	if err := h.store.SaveTour(context.Background(), tour); err != nil {
		t.Fatalf("save tour: %v", err)
	}
	return tour
}

func (h *harness) saveApplication(t *testing.T, id, tourID, hostID string, status domain.ApplicationStatus) *domain.ShowApplication {
	t.Helper()
	app := &domain.ShowApplication{
		ID:               id,
		TourID:           tourID,
		HostID:           hostID,
		PlanVersion:      1,
		ProposedDate:     date(time.June, 3),
		ProposedCapacity: 40,
		Status:           status,
		CreatedAt:        h.clock.Now(),
		UpdatedAt:        h.clock.Now(),
	}
	if err := h.store.SaveApplication(context.Background(), app); err != nil {
		t.Fatalf("save application: %v", err)
	}
	return app
}

func (h *harness) tour(t *testing.T, id string) *domain.Tour {
	t.Helper()
	tour, err := h.store.GetTour(context.Background(), id)
	if err != nil {
		t.Fatalf("get tour: %v", err)
	}
	return tour
}

func (h *harness) app(t *testing.T, id string) *domain.ShowApplication {
	t.Helper()
	app, err := h.store.GetApplication(context.Background(), id)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	return app
}
