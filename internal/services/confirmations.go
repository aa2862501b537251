package services

import (
	"context"
	"fmt"
	"time"

	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/platform/obs"
	"tour-routing-service/internal/platform/retry"
	"tour-routing-service/internal/ports"

	"go.uber.org/zap"
)

// ConfirmationBatchResult aggregates per-application outcomes of a
// confirmation pass. Applications that failed stay accepted.
type ConfirmationBatchResult struct {
	ConfirmedCount        int
	FailedApplicationIDs  []string
	SkippedApplicationIDs []string
	Errors                []error
}

// ReminderResult is a confirmation pass restricted to overdue applications.
type ReminderResult struct {
	ConfirmationBatchResult
	RemindedCount int
}

type ConfirmationWorkflow struct {
	Sender       ports.MessageSender
	Applications ports.ApplicationRepository
	Hosts        ports.HostRepository
	States       *StateMachine
	Cancels      *CancelRegistry
	Policy       domain.Policy
	Retry        retry.Policy
	Concurrency  int
	Logger       *zap.Logger
}

func (w *ConfirmationWorkflow) log() *zap.Logger { return logging.OrNop(w.Logger) }

// Confirm sends logistics to every accepted application of the tour's current
// plan and confirms those whose message went out. The tour is confirmed once
// at least one application is.
func (w *ConfirmationWorkflow) Confirm(ctx context.Context, tour *domain.Tour, plan *domain.TourPlan) (res ConfirmationBatchResult, err error) {
	defer obs.Time(ctx, "confirm_applications")(&err)

	if err := w.checkTour(tour); err != nil {
		return res, err
	}

	apps, err := w.accepted(ctx, tour)
	if err != nil {
		return res, err
	}

	res = w.dispatch(ctx, tour, plan, apps, false)
	return res, w.finish(ctx, tour, res)
}

// SendReminders re-sends logistics to applications still accepted after
// Policy.ReminderDelay since their last update or reminder. Each targeted
// application is stamped with the reminder time whatever the outcome.
func (w *ConfirmationWorkflow) SendReminders(ctx context.Context, tour *domain.Tour, plan *domain.TourPlan) (res ReminderResult, err error) {
	defer obs.Time(ctx, "send_reminders")(&err)

	if err := w.checkTour(tour); err != nil {
		return res, err
	}

	apps, err := w.accepted(ctx, tour)
	if err != nil {
		return res, err
	}

	now := w.States.now()
	due := apps[:0]
	for _, app := range apps {
		last := app.UpdatedAt
		if app.RemindedAt != nil && app.RemindedAt.After(last) {
			last = *app.RemindedAt
		}
		if now.Sub(last) >= w.Policy.ReminderDelay {
			due = append(due, app)
		}
	}

	res.ConfirmationBatchResult = w.dispatch(ctx, tour, plan, due, true)
	res.RemindedCount = len(due) - len(res.SkippedApplicationIDs)
	return res, w.finish(ctx, tour, res.ConfirmationBatchResult)
}

// ConfirmApplication runs a single application through the confirmation path.
// Anything other than an accepted or already confirmed application is refused
// with *domain.IllegalTransitionError before a message is sent, and an
// application made against an older plan version with domain.ErrStalePlan.
func (w *ConfirmationWorkflow) ConfirmApplication(
	ctx context.Context,
	tour *domain.Tour,
	plan *domain.TourPlan,
	appID string,
) (*domain.ShowApplication, error) {
	if err := w.checkTour(tour); err != nil {
		return nil, err
	}

	app, err := w.Applications.GetApplication(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("confirm application %s: %w", appID, err)
	}
	if err := checkPlanVersion(tour, app); err != nil {
		return nil, fmt.Errorf("confirm application %s: %w", appID, err)
	}
	switch app.Status {
	case domain.ApplicationConfirmed:
		return app, nil
	case domain.ApplicationAccepted:
	default:
		return nil, &domain.IllegalTransitionError{
			Entity: "application", ID: app.ID, From: string(app.Status), To: string(domain.ApplicationConfirmed),
		}
	}

	res := w.dispatch(ctx, tour, plan, []domain.ShowApplication{*app}, false)
	if len(res.Errors) > 0 {
		return nil, res.Errors[0]
	}
	if err := w.finish(ctx, tour, res); err != nil {
		return nil, err
	}
	return w.Applications.GetApplication(ctx, appID)
}

func (w *ConfirmationWorkflow) checkTour(tour *domain.Tour) error {
	if tour.Status == domain.TourCancelled || w.Cancels.IsCancelled(tour.ID) {
		return fmt.Errorf("confirm tour %s: %w", tour.ID, domain.ErrTourCancelled)
	}
	if tour.Status != domain.TourSeekingHosts && tour.Status != domain.TourConfirmed {
		return &domain.IllegalTransitionError{
			Entity: "tour", ID: tour.ID, From: string(tour.Status), To: string(domain.TourConfirmed),
		}
	}
	return nil
}

// checkPlanVersion refuses applications left over from a replanned tour.
func checkPlanVersion(tour *domain.Tour, app *domain.ShowApplication) error {
	if app.PlanVersion != tour.PlanVersion {
		return fmt.Errorf("plan version %d, tour is at %d: %w", app.PlanVersion, tour.PlanVersion, domain.ErrStalePlan)
	}
	return nil
}

// accepted lists accepted applications bound to the tour's current plan.
func (w *ConfirmationWorkflow) accepted(ctx context.Context, tour *domain.Tour) ([]domain.ShowApplication, error) {
	all, err := w.Applications.ListApplications(ctx, tour.ID, domain.ApplicationAccepted)
	if err != nil {
		return nil, fmt.Errorf("confirm tour %s: list applications: %w", tour.ID, err)
	}
	apps := make([]domain.ShowApplication, 0, len(all))
	for _, app := range all {
		if app.PlanVersion == tour.PlanVersion {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

func (w *ConfirmationWorkflow) dispatch(
	ctx context.Context,
	tour *domain.Tour,
	plan *domain.TourPlan,
	apps []domain.ShowApplication,
	reminder bool,
) ConfirmationBatchResult {
	var res ConfirmationBatchResult

	msgs := make([]ports.Message, 0, len(apps))
	targets := make([]domain.ShowApplication, 0, len(apps))
	for _, app := range apps {
		hostName := app.HostID
		if w.Hosts != nil {
			if h, err := w.Hosts.GetHost(ctx, app.HostID); err == nil {
				hostName = h.Name
			}
		}
		subject, body, err := renderConfirmation(tour, plan, app, hostName, w.Policy, reminder)
		if err != nil {
			res.FailedApplicationIDs = append(res.FailedApplicationIDs, app.ID)
			res.Errors = append(res.Errors, err)
			continue
		}
		msgs = append(msgs, ports.Message{RecipientID: app.HostID, Subject: subject, Body: body})
		targets = append(targets, app)
	}

	kind := "confirmation"
	if reminder {
		kind = "reminder"
	}
	d := batchDispatcher{
		Sender:      w.Sender,
		Retry:       w.Retry,
		BatchSize:   w.Policy.ConfirmationBatchSize,
		Concurrency: w.Concurrency,
		Cancelled:   func() bool { return w.Cancels.IsCancelled(tour.ID) },
		Logger:      w.log().With(zap.String("tour_id", tour.ID)),
	}
	deliveries := d.run(ctx, kind, msgs, func(ctx context.Context, i int, sendErr error) error {
		return w.settle(ctx, targets[i].ID, sendErr, reminder)
	})

	for i, dl := range deliveries {
		appID := targets[i].ID
		switch {
		case dl.Skipped:
			res.SkippedApplicationIDs = append(res.SkippedApplicationIDs, appID)
		case dl.Err != nil:
			res.FailedApplicationIDs = append(res.FailedApplicationIDs, appID)
			res.Errors = append(res.Errors, fmt.Errorf("confirm application %s: %w", appID, dl.Err))
		case dl.SettleErr != nil:
			res.FailedApplicationIDs = append(res.FailedApplicationIDs, appID)
			res.Errors = append(res.Errors, fmt.Errorf("confirm application %s: %w", appID, dl.SettleErr))
		default:
			res.ConfirmedCount++
		}
	}

	w.log().Info("confirmations dispatched",
		zap.String("tour_id", tour.ID),
		zap.String("kind", kind),
		zap.Int("confirmed", res.ConfirmedCount),
		zap.Int("failed", len(res.FailedApplicationIDs)),
		zap.Int("skipped", len(res.SkippedApplicationIDs)),
	)
	return res
}

// settle re-reads the application under its lock and confirms it when the
// message went out. A failed send leaves it accepted.
func (w *ConfirmationWorkflow) settle(ctx context.Context, appID string, sendErr error, reminder bool) error {
	_, err := w.States.UpdateApplication(ctx, appID, func(app *domain.ShowApplication, now time.Time) (bool, error) {
		changed := false
		if reminder {
			app.RemindedAt = &now
			changed = true
		}
		if sendErr != nil {
			return changed, nil
		}
		moved, err := app.Transition(domain.ApplicationConfirmed, now)
		if err != nil {
			return false, err
		}
		return changed || moved, nil
	})
	return err
}

func (w *ConfirmationWorkflow) finish(ctx context.Context, tour *domain.Tour, res ConfirmationBatchResult) error {
	if w.Cancels.IsCancelled(tour.ID) {
		return fmt.Errorf("confirm tour %s: %w", tour.ID, domain.ErrTourCancelled)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if res.ConfirmedCount == 0 {
		return nil
	}
	if _, err := w.States.TransitionTour(ctx, tour.ID, domain.TourConfirmed); err != nil {
		return fmt.Errorf("confirm tour %s: %w", tour.ID, err)
	}
	return nil
}
