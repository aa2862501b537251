package ports

import (
	"context"

	"tour-routing-service/internal/domain"
)

// Lookups return an error wrapping domain.ErrNotFound when nothing matches.
// Every write is an upsert keyed by the entity's identity so retries are harmless.

type TourRepository interface {
	GetTour(ctx context.Context, id string) (*domain.Tour, error)
	SaveTour(ctx context.Context, tour *domain.Tour) error
}

type HostRepository interface {
	ListHosts(ctx context.Context) ([]domain.HostCandidate, error)
	GetHost(ctx context.Context, id string) (*domain.HostCandidate, error)
	SaveHost(ctx context.Context, host domain.HostCandidate) error
}

type ApplicationRepository interface {
	GetApplication(ctx context.Context, id string) (*domain.ShowApplication, error)
	// FindApplication returns the application for a host on a given plan version.
	FindApplication(ctx context.Context, tourID, hostID string, planVersion int) (*domain.ShowApplication, error)
	// ListApplications returns a tour's applications ordered by creation time, then ID.
	// An empty status list means all statuses.
	ListApplications(ctx context.Context, tourID string, statuses ...domain.ApplicationStatus) ([]domain.ShowApplication, error)
	SaveApplication(ctx context.Context, app *domain.ShowApplication) error
}

type InvitationRepository interface {
	GetInvitation(ctx context.Context, tourID, hostID string, planVersion int) (*domain.Invitation, error)
	SaveInvitation(ctx context.Context, inv *domain.Invitation) error
}

type PlanRepository interface {
	GetPlan(ctx context.Context, tourID string) (*domain.TourPlan, error)
	SavePlan(ctx context.Context, plan *domain.TourPlan) error
}
