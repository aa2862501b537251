package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrNoEligibleHosts      = errors.New("no eligible hosts")
	ErrEstimatorUnavailable = errors.New("estimator unavailable")
	ErrTourCancelled        = errors.New("tour cancelled")
	ErrTourLocked           = errors.New("tour request is locked")
	ErrStalePlan            = errors.New("application belongs to a stale plan version")
)

// ValidationError reports a malformed input field. Several of them may be
// combined with errors.Join; errors.As still finds the first.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// IllegalTransitionError is returned when a state machine refuses a move.
// It signals a logic or concurrency bug; callers must not retry it blindly.
type IllegalTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal %s transition for %s: %s -> %s", e.Entity, e.ID, e.From, e.To)
}

// InfeasiblePlanError refuses to act on a plan the feasibility checker rejects.
type InfeasiblePlanError struct {
	TourID     string
	Violations []Violation
}

func (e *InfeasiblePlanError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("plan for tour %s is infeasible: %s", e.TourID, strings.Join(msgs, "; "))
}

func IsIllegalTransition(err error) bool {
	var ite *IllegalTransitionError
	return errors.As(err, &ite)
}

func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
