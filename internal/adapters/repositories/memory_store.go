package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"tour-routing-service/internal/domain"
)

// MemoryStore implements every repository port in process memory. Values are
// copied in and out so callers never share state with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	hosts        map[string]domain.HostCandidate
	tours        map[string]domain.Tour
	applications map[string]domain.ShowApplication
	invitations  map[string]domain.Invitation
	plans        map[string]*domain.TourPlan
}

func NewMemoryStore(hosts ...domain.HostCandidate) *MemoryStore {
	s := &MemoryStore{
		hosts:        make(map[string]domain.HostCandidate),
		tours:        make(map[string]domain.Tour),
		applications: make(map[string]domain.ShowApplication),
		invitations:  make(map[string]domain.Invitation),
		plans:        make(map[string]*domain.TourPlan),
	}
	for _, h := range hosts {
		s.hosts[h.ID] = h
	}
	return s
}

func (s *MemoryStore) ListHosts(_ context.Context) ([]domain.HostCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.HostCandidate, 0, len(s.hosts))
	for _, h := range s.hosts {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b domain.HostCandidate) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) GetHost(_ context.Context, id string) (*domain.HostCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hosts[id]
	if !ok {
		return nil, fmt.Errorf("get host %s: %w", id, domain.ErrNotFound)
	}
	return &h, nil
}

func (s *MemoryStore) SaveHost(_ context.Context, host domain.HostCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts[host.ID] = host
	return nil
}

func (s *MemoryStore) GetTour(_ context.Context, id string) (*domain.Tour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tours[id]
	if !ok {
		return nil, fmt.Errorf("get tour %s: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

func (s *MemoryStore) SaveTour(_ context.Context, tour *domain.Tour) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tours[tour.ID] = *tour
	return nil
}

func (s *MemoryStore) GetApplication(_ context.Context, id string) (*domain.ShowApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.applications[id]
	if !ok {
		return nil, fmt.Errorf("get application %s: %w", id, domain.ErrNotFound)
	}
	return &a, nil
}

func (s *MemoryStore) FindApplication(_ context.Context, tourID, hostID string, planVersion int) (*domain.ShowApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.applications {
		if a.TourID == tourID && a.HostID == hostID && a.PlanVersion == planVersion {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("find application %s/%s v%d: %w", tourID, hostID, planVersion, domain.ErrNotFound)
}

func (s *MemoryStore) ListApplications(
	_ context.Context,
	tourID string,
	statuses ...domain.ApplicationStatus,
) ([]domain.ShowApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ShowApplication, 0)
	for _, a := range s.applications {
		if a.TourID != tourID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, a.Status) {
			continue
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b domain.ShowApplication) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) SaveApplication(_ context.Context, app *domain.ShowApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := *app
	if app.RemindedAt != nil {
		t := *app.RemindedAt
		a.RemindedAt = &t
	}
	s.applications[app.ID] = a
	return nil
}

func invitationKey(tourID, hostID string, version int) string {
	return fmt.Sprintf("%s|%s|%d", tourID, hostID, version)
}

func (s *MemoryStore) GetInvitation(_ context.Context, tourID, hostID string, planVersion int) (*domain.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invitations[invitationKey(tourID, hostID, planVersion)]
	if !ok {
		return nil, fmt.Errorf("get invitation %s/%s v%d: %w", tourID, hostID, planVersion, domain.ErrNotFound)
	}
	return &inv, nil
}

func (s *MemoryStore) SaveInvitation(_ context.Context, inv *domain.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invitations[invitationKey(inv.TourID, inv.HostID, inv.PlanVersion)] = *inv
	return nil
}

// Invitations returns a tour's invitation records ordered by host ID.
func (s *MemoryStore) Invitations(tourID string) []domain.Invitation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Invitation, 0)
	for _, inv := range s.invitations {
		if inv.TourID == tourID {
			out = append(out, inv)
		}
	}
	slices.SortFunc(out, func(a, b domain.Invitation) int {
		if c := strings.Compare(a.HostID, b.HostID); c != 0 {
			return c
		}
		return a.PlanVersion - b.PlanVersion
	})
	return out
}

// GetPlan returns the stored plan. Plans are immutable, so the pointer is
// shared.
func (s *MemoryStore) GetPlan(_ context.Context, tourID string) (*domain.TourPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[tourID]
	if !ok {
		return nil, fmt.Errorf("get plan %s: %w", tourID, domain.ErrNotFound)
	}
	return p, nil
}

func (s *MemoryStore) SavePlan(_ context.Context, plan *domain.TourPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.TourID] = plan
	return nil
}
