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

// InvitationBatchResult aggregates per-host outcomes of one Invite call.
// Failed and skipped IDs keep the order the hosts were given in.
type InvitationBatchResult struct {
	SentCount      int
	FailedHostIDs  []string
	SkippedHostIDs []string
	Errors         []error
}

// HostResponse is a host's answer to an invitation.
type HostResponse struct {
	Interested       bool
	Message          string
	ProposedDate     time.Time
	ProposedCapacity int
}

type InvitationWorkflow struct {
	Sender       ports.MessageSender
	Invitations  ports.InvitationRepository
	Applications ports.ApplicationRepository
	States       *StateMachine
	Cancels      *CancelRegistry
	Policy       domain.Policy
	Retry        retry.Policy
	Concurrency  int
	BaseURL      string
	Logger       *zap.Logger
}

func (w *InvitationWorkflow) log() *zap.Logger { return logging.OrNop(w.Logger) }

// Invite sends one invitation per host in batches of Policy.InvitationBatchSize.
// Batch failures are aggregated into the result; the returned error is reserved
// for a refused tour state or a failed tour transition.
func (w *InvitationWorkflow) Invite(
	ctx context.Context,
	tour *domain.Tour,
	plan *domain.TourPlan,
	hosts []domain.HostCandidate,
) (res InvitationBatchResult, err error) {
	defer obs.Time(ctx, "invite_hosts")(&err)

	if tour.Status == domain.TourCancelled || w.Cancels.IsCancelled(tour.ID) {
		return res, fmt.Errorf("invite hosts for %s: %w", tour.ID, domain.ErrTourCancelled)
	}
	if tour.Status != domain.TourPlanning && tour.Status != domain.TourSeekingHosts {
		return res, &domain.IllegalTransitionError{
			Entity: "tour", ID: tour.ID, From: string(tour.Status), To: string(domain.TourSeekingHosts),
		}
	}

	msgs := make([]ports.Message, 0, len(hosts))
	targets := make([]domain.HostCandidate, 0, len(hosts))
	for _, h := range hosts {
		subject, body, err := renderInvitation(tour, plan, h, w.BaseURL)
		if err != nil {
			res.FailedHostIDs = append(res.FailedHostIDs, h.ID)
			res.Errors = append(res.Errors, err)
			continue
		}
		msgs = append(msgs, ports.Message{RecipientID: h.ID, Subject: subject, Body: body})
		targets = append(targets, h)
	}

	d := batchDispatcher{
		Sender:      w.Sender,
		Retry:       w.Retry,
		BatchSize:   w.Policy.InvitationBatchSize,
		Concurrency: w.Concurrency,
		Cancelled:   func() bool { return w.Cancels.IsCancelled(tour.ID) },
		Logger:      w.log().With(zap.String("tour_id", tour.ID)),
	}
	deliveries := d.run(ctx, "invitation", msgs, func(ctx context.Context, i int, sendErr error) error {
		return w.recordDelivery(ctx, tour, targets[i].ID, sendErr)
	})

	for i, dl := range deliveries {
		hostID := targets[i].ID
		switch {
		case dl.Err != nil:
			res.FailedHostIDs = append(res.FailedHostIDs, hostID)
			res.Errors = append(res.Errors, fmt.Errorf("invite host %s: %w", hostID, dl.Err))
		case dl.Skipped:
			res.SkippedHostIDs = append(res.SkippedHostIDs, hostID)
		default:
			res.SentCount++
		}
		if dl.SettleErr != nil {
			res.Errors = append(res.Errors, fmt.Errorf("record invitation for %s: %w", hostID, dl.SettleErr))
		}
	}

	w.log().Info("invitations dispatched",
		zap.String("tour_id", tour.ID),
		zap.Int("sent", res.SentCount),
		zap.Int("failed", len(res.FailedHostIDs)),
		zap.Int("skipped", len(res.SkippedHostIDs)),
	)

	if w.Cancels.IsCancelled(tour.ID) {
		return res, fmt.Errorf("invite hosts for %s: %w", tour.ID, domain.ErrTourCancelled)
	}
	if res.SentCount > 0 && ctx.Err() == nil {
		if _, err := w.States.TransitionTour(ctx, tour.ID, domain.TourSeekingHosts); err != nil {
			if w.Cancels.IsCancelled(tour.ID) {
				err = domain.ErrTourCancelled
			}
			return res, fmt.Errorf("invite hosts for %s: %w", tour.ID, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// recordDelivery upserts the invitation record for one host. A response that
// already arrived for this plan version is kept.
func (w *InvitationWorkflow) recordDelivery(ctx context.Context, tour *domain.Tour, hostID string, sendErr error) error {
	unlock := w.States.Lock(invitationKey(tour.ID, hostID, tour.PlanVersion))
	defer unlock()

	inv, err := w.Invitations.GetInvitation(ctx, tour.ID, hostID, tour.PlanVersion)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		inv = &domain.Invitation{
			ID:          uuid.NewString(),
			TourID:      tour.ID,
			HostID:      hostID,
			PlanVersion: tour.PlanVersion,
		}
	}

	now := w.States.now()
	switch {
	case sendErr != nil:
		inv.LastError = sendErr.Error()
		if inv.SentAt == nil {
			inv.Status = domain.InvitationFailed
		}
	default:
		inv.SentAt = &now
		inv.LastError = ""
		if inv.RespondedAt == nil {
			inv.Status = domain.InvitationSent
		}
	}

	return w.Invitations.SaveInvitation(ctx, inv)
}

// RecordResponse stores a host's answer. Interest creates one pending Show
// Application per tour, host and plan version; repeating the call returns the
// existing application. A decline is only recorded on the invitation.
func (w *InvitationWorkflow) RecordResponse(
	ctx context.Context,
	tour *domain.Tour,
	plan *domain.TourPlan,
	hostID string,
	resp HostResponse,
) (*domain.ShowApplication, error) {
	if tour.Status == domain.TourCancelled || w.Cancels.IsCancelled(tour.ID) {
		return nil, fmt.Errorf("record response for %s: %w", tour.ID, domain.ErrTourCancelled)
	}
	if tour.Status.Terminal() {
		return nil, fmt.Errorf("record response for %s: tour is %s: %w", tour.ID, tour.Status, domain.ErrTourLocked)
	}

	unlock := w.States.Lock(invitationKey(tour.ID, hostID, tour.PlanVersion))
	defer unlock()

	inv, err := w.Invitations.GetInvitation(ctx, tour.ID, hostID, tour.PlanVersion)
	if err != nil {
		return nil, fmt.Errorf("record response from %s: invitation: %w", hostID, err)
	}

	now := w.States.now()
	if resp.Interested {
		inv.Status = domain.InvitationInterested
	} else {
		inv.Status = domain.InvitationNotInterested
	}
	inv.RespondedAt = &now
	if err := w.Invitations.SaveInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("record response from %s: save invitation: %w", hostID, err)
	}

	if !resp.Interested {
		w.log().Info("host declined invitation", zap.String("tour_id", tour.ID), zap.String("host_id", hostID))
		return nil, nil
	}

	existing, err := w.Applications.FindApplication(ctx, tour.ID, hostID, tour.PlanVersion)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("record response from %s: find application: %w", hostID, err)
	}

	app := &domain.ShowApplication{
		ID:               uuid.NewString(),
		TourID:           tour.ID,
		HostID:           hostID,
		PlanVersion:      tour.PlanVersion,
		ProposedDate:     resp.ProposedDate,
		ProposedCapacity: resp.ProposedCapacity,
		Status:           domain.ApplicationPending,
		HostMessage:      resp.Message,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if plan != nil {
		if stop, ok := plan.ShowStop(hostID); ok {
			if app.ProposedDate.IsZero() {
				app.ProposedDate = stop.Date
			}
			if app.ProposedCapacity == 0 {
				app.ProposedCapacity = stop.ExpectedCapacity
			}
		}
	}
	if !app.ProposedDate.IsZero() {
		app.ProposedDate = domain.Day(app.ProposedDate)
	}

	if err := w.Applications.SaveApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("record response from %s: save application: %w", hostID, err)
	}
	w.States.publish(ctx, domain.ApplicationStatusChanged{
		ApplicationID: app.ID,
		TourID:        app.TourID,
		To:            app.Status,
	})

	return app, nil
}

func invitationKey(tourID, hostID string, version int) string {
	return fmt.Sprintf("invite:%s:%s:%d", tourID, hostID, version)
}
