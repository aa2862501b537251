package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/platform/obs"
	"tour-routing-service/internal/platform/retry"
	"tour-routing-service/internal/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps are the collaborators and settings of a TourService.
type Deps struct {
	Tours        ports.TourRepository
	Hosts        ports.HostRepository
	Applications ports.ApplicationRepository
	Invitations  ports.InvitationRepository
	Plans        ports.PlanRepository
	Provider     ports.DistanceProvider
	Sender       ports.MessageSender
	Events       ports.EventPublisher

	Policy               domain.Policy
	Retry                retry.Policy
	EstimatorConcurrency int
	EstimatorTimeout     time.Duration
	DispatchConcurrency  int
	BaseURL              string
	Clock                func() time.Time
	Logger               *zap.Logger
}

// TourService orchestrates filtering, planning, the host workflows and the
// tour lifecycle on top of the repositories.
type TourService struct {
	deps          Deps
	log           *zap.Logger
	filter        EligibilityFilter
	optimizer     ItineraryOptimizer
	checker       FeasibilityChecker
	states        *StateMachine
	invitations   *InvitationWorkflow
	confirmations *ConfirmationWorkflow
	cancels       *CancelRegistry
	active        ActivePlans
}

func NewTourService(d Deps) *TourService {
	log := logging.OrNop(d.Logger)
	cancels := NewCancelRegistry()
	states := &StateMachine{
		Tours:        d.Tours,
		Applications: d.Applications,
		Events:       d.Events,
		Clock:        d.Clock,
		Logger:       log,
	}

	return &TourService{
		deps:   d,
		log:    log,
		filter: EligibilityFilter{Policy: d.Policy},
		optimizer: ItineraryOptimizer{
			Provider:        d.Provider,
			Policy:          d.Policy,
			Concurrency:     d.EstimatorConcurrency,
			EstimateTimeout: d.EstimatorTimeout,
			Logger:          log,
		},
		states: states,
		invitations: &InvitationWorkflow{
			Sender:       d.Sender,
			Invitations:  d.Invitations,
			Applications: d.Applications,
			States:       states,
			Cancels:      cancels,
			Policy:       d.Policy,
			Retry:        d.Retry,
			Concurrency:  d.DispatchConcurrency,
			BaseURL:      d.BaseURL,
			Logger:       log,
		},
		confirmations: &ConfirmationWorkflow{
			Sender:       d.Sender,
			Applications: d.Applications,
			Hosts:        d.Hosts,
			States:       states,
			Cancels:      cancels,
			Policy:       d.Policy,
			Retry:        d.Retry,
			Concurrency:  d.DispatchConcurrency,
			Logger:       log,
		},
		cancels: cancels,
	}
}

func (s *TourService) CreateTour(ctx context.Context, req domain.TourRequest) (*domain.Tour, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("create tour: %w", err)
	}

	now := s.states.now()
	tour := &domain.Tour{
		ID:          uuid.NewString(),
		Request:     req.WithDefaults(s.deps.Policy),
		Status:      domain.TourPlanning,
		PlanVersion: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.deps.Tours.SaveTour(ctx, tour); err != nil {
		return nil, fmt.Errorf("create tour: %w", err)
	}

	s.log.Info("tour created", zap.String("tour_id", tour.ID), zap.String("artist_id", req.ArtistID))
	return tour, nil
}

func (s *TourService) GetTour(ctx context.Context, id string) (*domain.Tour, error) {
	tour, err := s.deps.Tours.GetTour(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get tour %s: %w", id, err)
	}
	return tour, nil
}

// UpdateRequest replaces the tour request. Only a tour still in planning can
// be edited; otherwise it must be replanned first.
func (s *TourService) UpdateRequest(ctx context.Context, id string, req domain.TourRequest) (*domain.Tour, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("update tour %s: %w", id, err)
	}

	unlock := s.states.Lock("tour:" + id)
	defer unlock()

	tour, err := s.deps.Tours.GetTour(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update tour %s: %w", id, err)
	}
	if tour.Status != domain.TourPlanning {
		return nil, fmt.Errorf("update tour %s: status %s: %w", id, tour.Status, domain.ErrTourLocked)
	}

	tour.Request = req.WithDefaults(s.deps.Policy)
	tour.UpdatedAt = s.states.now()
	if err := s.deps.Tours.SaveTour(ctx, tour); err != nil {
		return nil, fmt.Errorf("update tour %s: %w", id, err)
	}
	return tour, nil
}

// PlanTour filters the host pool, builds a plan for the tour's current plan
// version and installs it as the active plan. An empty eligible set still
// yields a plan, with zero shows and a no-feasible-placement violation; the
// filter result tells the caller why.
func (s *TourService) PlanTour(ctx context.Context, id string) (_ *domain.TourPlan, _ FilterResult, err error) {
	defer obs.Time(ctx, "plan_tour")(&err)

	tour, err := s.GetTour(ctx, id)
	if err != nil {
		return nil, FilterResult{}, err
	}
	if tour.Status != domain.TourPlanning {
		return nil, FilterResult{}, fmt.Errorf("plan tour %s: status %s: %w", id, tour.Status, domain.ErrTourLocked)
	}

	pool, err := s.deps.Hosts.ListHosts(ctx)
	if err != nil {
		return nil, FilterResult{}, fmt.Errorf("plan tour %s: list hosts: %w", id, err)
	}

	filtered := s.filter.Filter(tour.Request, pool)
	if filtered.NoEligibleHosts() {
		s.log.Info("no eligible hosts", zap.String("tour_id", id), zap.Int("pool", len(pool)))
	}

	plan, err := s.optimizer.Plan(ctx, tour.Request, filtered.Eligible)
	if err != nil {
		return nil, filtered, fmt.Errorf("plan tour %s: %w", id, err)
	}
	plan.TourID = tour.ID
	plan.Version = tour.PlanVersion

	if err := s.deps.Plans.SavePlan(ctx, plan); err != nil {
		return nil, filtered, fmt.Errorf("plan tour %s: save plan: %w", id, err)
	}
	s.active.Swap(tour.ID, plan)

	s.states.publish(ctx, domain.PlanGenerated{
		TourID:         tour.ID,
		PlanVersion:    plan.Version,
		Feasible:       plan.Feasible,
		ViolationCount: len(plan.Violations),
	})

	return plan, filtered, nil
}

// ActivePlan returns the tour's current plan, loading it from storage after a
// restart. A plan stored for an older plan version is not active.
func (s *TourService) ActivePlan(ctx context.Context, id string) (*domain.TourPlan, error) {
	if p := s.active.Load(id); p != nil {
		return p, nil
	}

	tour, err := s.GetTour(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.deps.Plans.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("active plan for %s: %w", id, err)
	}
	if p.Version != tour.PlanVersion {
		return nil, fmt.Errorf("active plan for %s: plan version %d is stale: %w", id, p.Version, domain.ErrNotFound)
	}

	s.active.CompareAndSwap(id, nil, p)
	return s.active.Load(id), nil
}

// CheckPlanForTour re-validates a plan, typically one edited by hand, against
// the tour's own limits and the hosts that pass its eligibility filter now.
// The constraints and eligible IDs carried by the plan are ignored.
func (s *TourService) CheckPlanForTour(ctx context.Context, tourID string, plan *domain.TourPlan) (bool, []domain.Violation, error) {
	tour, err := s.GetTour(ctx, tourID)
	if err != nil {
		return false, nil, err
	}
	ok, violations, err := s.checkForTour(ctx, tour, plan)
	if err != nil {
		return false, nil, fmt.Errorf("check plan for %s: %w", tourID, err)
	}
	return ok, violations, nil
}

func (s *TourService) checkForTour(ctx context.Context, tour *domain.Tour, plan *domain.TourPlan) (bool, []domain.Violation, error) {
	if plan == nil {
		ok, violations := s.checker.Check(nil)
		return ok, violations, nil
	}

	pool, err := s.deps.Hosts.ListHosts(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("list hosts: %w", err)
	}
	filtered := s.filter.Filter(tour.Request, pool)

	bound := *plan
	bound.Constraints = planConstraints(tour.Request.WithDefaults(s.deps.Policy), s.deps.Policy)
	bound.EligibleHostIDs = make([]string, 0, len(filtered.Eligible))
	for _, h := range filtered.Eligible {
		bound.EligibleHostIDs = append(bound.EligibleHostIDs, h.ID)
	}

	ok, violations := s.checker.Check(&bound)
	return ok, violations, nil
}

// InviteHosts invites every eligible host of the active plan. A plan that
// fails the feasibility check for its tour is refused with
// *domain.InfeasiblePlanError before anything is sent.
func (s *TourService) InviteHosts(ctx context.Context, tourID string) (InvitationBatchResult, error) {
	tour, plan, err := s.tourAndPlan(ctx, tourID)
	if err != nil {
		return InvitationBatchResult{}, err
	}
	if tour.Status == domain.TourCancelled || s.cancels.IsCancelled(tourID) {
		return InvitationBatchResult{}, fmt.Errorf("invite hosts for %s: %w", tourID, domain.ErrTourCancelled)
	}

	ok, violations, err := s.checkForTour(ctx, tour, plan)
	if err != nil {
		return InvitationBatchResult{}, fmt.Errorf("invite hosts for %s: %w", tourID, err)
	}
	if !ok {
		s.log.Info("invitations refused for infeasible plan",
			zap.String("tour_id", tourID),
			zap.Int("violations", len(violations)),
		)
		return InvitationBatchResult{}, &domain.InfeasiblePlanError{TourID: tourID, Violations: violations}
	}

	hosts := make([]domain.HostCandidate, 0, len(plan.EligibleHostIDs))
	for _, hostID := range plan.EligibleHostIDs {
		h, err := s.deps.Hosts.GetHost(ctx, hostID)
		if err != nil {
			return InvitationBatchResult{}, fmt.Errorf("invite hosts for %s: host %s: %w", tourID, hostID, err)
		}
		hosts = append(hosts, *h)
	}

	return s.invitations.Invite(ctx, tour, plan, hosts)
}

func (s *TourService) RespondToInvitation(
	ctx context.Context,
	tourID, hostID string,
	resp HostResponse,
) (*domain.ShowApplication, error) {
	tour, err := s.GetTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	plan := s.active.Load(tourID)
	if plan != nil && plan.Version != tour.PlanVersion {
		plan = nil
	}
	return s.invitations.RecordResponse(ctx, tour, plan, hostID, resp)
}

func (s *TourService) GetApplication(ctx context.Context, id string) (*domain.ShowApplication, error) {
	app, err := s.deps.Applications.GetApplication(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get application %s: %w", id, err)
	}
	return app, nil
}

func (s *TourService) ListApplications(
	ctx context.Context,
	tourID string,
	statuses ...domain.ApplicationStatus,
) ([]domain.ShowApplication, error) {
	apps, err := s.deps.Applications.ListApplications(ctx, tourID, statuses...)
	if err != nil {
		return nil, fmt.Errorf("list applications for %s: %w", tourID, err)
	}
	return apps, nil
}

// TransitionApplication applies an artist or operator decision. Confirming
// goes through the confirmation path so the host receives its logistics.
// Applications from a replanned-away plan version can only be declined or
// cancelled.
func (s *TourService) TransitionApplication(
	ctx context.Context,
	appID string,
	to domain.ApplicationStatus,
	note string,
) (*domain.ShowApplication, error) {
	if !to.Valid() {
		return nil, domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown application status %q", to)}
	}

	switch to {
	case domain.ApplicationDeclined, domain.ApplicationCancelled:
		return s.states.TransitionApplication(ctx, appID, to, note)
	}

	app, err := s.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	tour, err := s.GetTour(ctx, app.TourID)
	if err != nil {
		return nil, err
	}
	if err := checkPlanVersion(tour, app); err != nil {
		return nil, fmt.Errorf("transition application %s: %w", appID, err)
	}

	if to != domain.ApplicationConfirmed {
		return s.states.TransitionApplication(ctx, appID, to, note)
	}
	if app.Status != domain.ApplicationAccepted && app.Status != domain.ApplicationConfirmed {
		return nil, &domain.IllegalTransitionError{
			Entity: "application", ID: app.ID, From: string(app.Status), To: string(to),
		}
	}
	plan, err := s.ActivePlan(ctx, app.TourID)
	if err != nil {
		return nil, err
	}
	return s.confirmations.ConfirmApplication(ctx, tour, plan, appID)
}

func (s *TourService) Confirm(ctx context.Context, tourID string) (ConfirmationBatchResult, error) {
	tour, plan, err := s.tourAndPlan(ctx, tourID)
	if err != nil {
		return ConfirmationBatchResult{}, err
	}
	return s.confirmations.Confirm(ctx, tour, plan)
}

func (s *TourService) SendReminders(ctx context.Context, tourID string) (ReminderResult, error) {
	tour, plan, err := s.tourAndPlan(ctx, tourID)
	if err != nil {
		return ReminderResult{}, err
	}
	return s.confirmations.SendReminders(ctx, tour, plan)
}

// Replan sends the tour back to planning under a new plan version, optionally
// with a changed request. The active plan is dropped; applications made
// against it keep their records under the old version.
func (s *TourService) Replan(ctx context.Context, tourID string, req *domain.TourRequest) (*domain.Tour, error) {
	if s.cancels.IsCancelled(tourID) {
		return nil, fmt.Errorf("replan tour %s: %w", tourID, domain.ErrTourCancelled)
	}
	if req != nil {
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("replan tour %s: %w", tourID, err)
		}
	}

	tour, err := s.states.ReplanTour(ctx, tourID, func(t *domain.Tour) error {
		if req != nil {
			t.Request = req.WithDefaults(s.deps.Policy)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.active.Clear(tourID)

	s.log.Info("tour replanned", zap.String("tour_id", tourID), zap.Int("plan_version", tour.PlanVersion))
	return tour, nil
}

// TransitionTour applies one of the lifecycle moves that need no workflow.
func (s *TourService) TransitionTour(ctx context.Context, tourID string, to domain.TourStatus) (*domain.Tour, error) {
	switch to {
	case domain.TourInProgress, domain.TourCompleted:
		return s.states.TransitionTour(ctx, tourID, to)
	case domain.TourCancelled:
		return s.CancelTour(ctx, tourID)
	case domain.TourPlanning:
		return s.Replan(ctx, tourID, nil)
	}
	if !to.Valid() {
		return nil, domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown tour status %q", to)}
	}
	return s.states.TransitionTour(ctx, tourID, to)
}

func (s *TourService) StartTour(ctx context.Context, tourID string) (*domain.Tour, error) {
	return s.states.TransitionTour(ctx, tourID, domain.TourInProgress)
}

func (s *TourService) CompleteTour(ctx context.Context, tourID string) (*domain.Tour, error) {
	return s.states.TransitionTour(ctx, tourID, domain.TourCompleted)
}

// CancelTour raises the cancellation flag first so running batches stop
// writing, then cancels the tour and every open application. The flag is
// lowered again when the tour could not be cancelled.
func (s *TourService) CancelTour(ctx context.Context, tourID string) (*domain.Tour, error) {
	tour, err := s.GetTour(ctx, tourID)
	if err != nil {
		return nil, err
	}
	if tour.Status == domain.TourCompleted {
		return nil, &domain.IllegalTransitionError{
			Entity: "tour", ID: tourID, From: string(tour.Status), To: string(domain.TourCancelled),
		}
	}

	s.cancels.Cancel(tourID)

	tour, err = s.states.TransitionTour(ctx, tourID, domain.TourCancelled)
	if err != nil {
		s.cancels.Restore(tourID)
		s.log.Warn("tour cancellation failed", zap.String("tour_id", tourID), zap.Error(err))
		return nil, err
	}

	open, err := s.deps.Applications.ListApplications(ctx, tourID, domain.ApplicationPending, domain.ApplicationAccepted)
	if err != nil {
		return tour, fmt.Errorf("cancel tour %s: list applications: %w", tourID, err)
	}
	var errs []error
	for _, app := range open {
		if _, err := s.states.TransitionApplication(ctx, app.ID, domain.ApplicationCancelled, ""); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return tour, fmt.Errorf("cancel tour %s: %w", tourID, err)
	}

	s.log.Info("tour cancelled", zap.String("tour_id", tourID), zap.Int("applications_cancelled", len(open)))
	return tour, nil
}

func (s *TourService) tourAndPlan(ctx context.Context, tourID string) (*domain.Tour, *domain.TourPlan, error) {
	tour, err := s.GetTour(ctx, tourID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.ActivePlan(ctx, tourID)
	if err != nil {
		return nil, nil, err
	}
	return tour, plan, nil
}
