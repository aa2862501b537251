package services

import (
	"context"
	"fmt"
	"time"

	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/ports"

	"go.uber.org/zap"
)

// StateMachine persists tour and application status changes and publishes
// the matching events. Every write for one tour or one application runs under
// that entity's lock.
type StateMachine struct {
	Tours        ports.TourRepository
	Applications ports.ApplicationRepository
	Events       ports.EventPublisher
	Clock        func() time.Time
	Logger       *zap.Logger

	locks keyedMutex
}

func (m *StateMachine) now() time.Time {
	if m.Clock != nil {
		return m.Clock().UTC()
	}
	return time.Now().UTC()
}

func (m *StateMachine) log() *zap.Logger { return logging.OrNop(m.Logger) }

// Lock serialises arbitrary work under key. Application and tour writes use
// the "app:" and "tour:" prefixes.
func (m *StateMachine) Lock(key string) func() { return m.locks.Lock(key) }

// TransitionTour moves a tour to status to. Re-applying the current status is
// a no-op; an illegal move returns *domain.IllegalTransitionError and leaves the
// stored tour untouched.
func (m *StateMachine) TransitionTour(ctx context.Context, tourID string, to domain.TourStatus) (*domain.Tour, error) {
	unlock := m.Lock("tour:" + tourID)
	defer unlock()

	tour, err := m.Tours.GetTour(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("transition tour %s: %w", tourID, err)
	}

	from := tour.Status
	changed, err := tour.Transition(to, m.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return tour, nil
	}

	if err := m.Tours.SaveTour(ctx, tour); err != nil {
		return nil, fmt.Errorf("transition tour %s: save: %w", tourID, err)
	}
	m.publish(ctx, domain.TourStatusChanged{TourID: tourID, From: from, To: to})

	return tour, nil
}

// ReplanTour forces the tour back to planning under a new plan version.
// Applications bound to the old version keep their records but no longer
// belong to the active plan.
func (m *StateMachine) ReplanTour(ctx context.Context, tourID string, update func(*domain.Tour) error) (*domain.Tour, error) {
	unlock := m.Lock("tour:" + tourID)
	defer unlock()

	tour, err := m.Tours.GetTour(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("replan tour %s: %w", tourID, err)
	}

	from := tour.Status
	if err := tour.Replan(m.now()); err != nil {
		return nil, err
	}
	if update != nil {
		if err := update(tour); err != nil {
			return nil, fmt.Errorf("replan tour %s: %w", tourID, err)
		}
	}

	if err := m.Tours.SaveTour(ctx, tour); err != nil {
		return nil, fmt.Errorf("replan tour %s: save: %w", tourID, err)
	}
	if from != domain.TourPlanning {
		m.publish(ctx, domain.TourStatusChanged{TourID: tourID, From: from, To: domain.TourPlanning})
	}

	return tour, nil
}

// UpdateApplication re-reads the application under its lock and applies fn.
// fn reports whether anything changed; unchanged records are not written.
func (m *StateMachine) UpdateApplication(
	ctx context.Context,
	appID string,
	fn func(app *domain.ShowApplication, now time.Time) (bool, error),
) (*domain.ShowApplication, error) {
	unlock := m.Lock("app:" + appID)
	defer unlock()

	app, err := m.Applications.GetApplication(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("update application %s: %w", appID, err)
	}

	from := app.Status
	changed, err := fn(app, m.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return app, nil
	}

	if err := m.Applications.SaveApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("update application %s: save: %w", appID, err)
	}
	if app.Status != from {
		m.publish(ctx, domain.ApplicationStatusChanged{
			ApplicationID: app.ID,
			TourID:        app.TourID,
			From:          from,
			To:            app.Status,
		})
	}

	return app, nil
}

// TransitionApplication applies a status change, idempotently.
func (m *StateMachine) TransitionApplication(
	ctx context.Context,
	appID string,
	to domain.ApplicationStatus,
	artistMessage string,
) (*domain.ShowApplication, error) {
	return m.UpdateApplication(ctx, appID, func(app *domain.ShowApplication, now time.Time) (bool, error) {
		changed, err := app.Transition(to, now)
		if err != nil || !changed {
			return false, err
		}
		if artistMessage != "" {
			app.ArtistMessage = artistMessage
		}
		return true, nil
	})
}

func (m *StateMachine) publish(ctx context.Context, ev domain.Event) {
	if m.Events == nil {
		return
	}
	if err := m.Events.Publish(ctx, ev); err != nil {
		m.log().Warn("publish event failed", zap.String("event", ev.EventName()), zap.Error(err))
	}
}
