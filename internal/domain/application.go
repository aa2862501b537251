package domain

import "time"

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationConfirmed ApplicationStatus = "confirmed"
	ApplicationDeclined  ApplicationStatus = "declined"
	ApplicationCancelled ApplicationStatus = "cancelled"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:  {ApplicationAccepted, ApplicationDeclined, ApplicationCancelled},
	ApplicationAccepted: {ApplicationConfirmed, ApplicationDeclined, ApplicationCancelled},
}

func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationConfirmed || s == ApplicationDeclined || s == ApplicationCancelled
}

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationAccepted, ApplicationConfirmed, ApplicationDeclined, ApplicationCancelled:
		return true
	}
	return false
}

func (s ApplicationStatus) CanTransition(to ApplicationStatus) bool {
	for _, next := range applicationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ShowApplication records a host's interest in one stop and its path to a
// binding confirmation.
type ShowApplication struct {
	ID               string            `json:"id"`
	TourID           string            `json:"tour_id"`
	HostID           string            `json:"host_id"`
	PlanVersion      int               `json:"plan_version"`
	ProposedDate     time.Time         `json:"proposed_date"`
	ProposedCapacity int               `json:"proposed_capacity"`
	Status           ApplicationStatus `json:"status"`
	HostMessage      string            `json:"host_message,omitempty"`
	ArtistMessage    string            `json:"artist_message,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	RemindedAt       *time.Time        `json:"reminded_at,omitempty"`
}

// Transition applies a status change. Re-applying the current status is a
// no-op so retried writes stay harmless.
func (a *ShowApplication) Transition(to ApplicationStatus, at time.Time) (bool, error) {
	if a.Status == to {
		return false, nil
	}
	if !a.Status.CanTransition(to) {
		return false, &IllegalTransitionError{Entity: "application", ID: a.ID, From: string(a.Status), To: string(to)}
	}
	a.Status = to
	a.UpdatedAt = at
	return true, nil
}

type InvitationStatus string

const (
	InvitationSent          InvitationStatus = "sent"
	InvitationFailed        InvitationStatus = "failed"
	InvitationInterested    InvitationStatus = "interested"
	InvitationNotInterested InvitationStatus = "not_interested"
)

// Invitation tracks delivery and response for one host on one plan version.
type Invitation struct {
	ID          string           `json:"id"`
	TourID      string           `json:"tour_id"`
	HostID      string           `json:"host_id"`
	PlanVersion int              `json:"plan_version"`
	Status      InvitationStatus `json:"status"`
	SentAt      *time.Time       `json:"sent_at,omitempty"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
	LastError   string           `json:"last_error,omitempty"`
}
