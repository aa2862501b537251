package dto

import (
	"time"

	"tour-routing-service/internal/domain"
)

type ApplicationResponse struct {
	ID               string     `json:"id"`
	TourID           string     `json:"tour_id"`
	HostID           string     `json:"host_id"`
	PlanVersion      int        `json:"plan_version"`
	ProposedDate     string     `json:"proposed_date"`
	ProposedCapacity int        `json:"proposed_capacity"`
	Status           string     `json:"status"`
	HostMessage      string     `json:"host_message,omitempty"`
	ArtistMessage    string     `json:"artist_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	RemindedAt       *time.Time `json:"reminded_at,omitempty"`
}

type ListApplicationsResponse struct {
	Applications []ApplicationResponse `json:"applications"`
}

func FromApplication(a *domain.ShowApplication) ApplicationResponse {
	return ApplicationResponse{
		ID:               a.ID,
		TourID:           a.TourID,
		HostID:           a.HostID,
		PlanVersion:      a.PlanVersion,
		ProposedDate:     FormatDate(a.ProposedDate),
		ProposedCapacity: a.ProposedCapacity,
		Status:           string(a.Status),
		HostMessage:      a.HostMessage,
		ArtistMessage:    a.ArtistMessage,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		RemindedAt:       a.RemindedAt,
	}
}

// InvitationReplyRequest is a host's answer to an invitation.
type InvitationReplyRequest struct {
	Interested       bool   `json:"interested"`
	Message          string `json:"message,omitempty"`
	ProposedDate     string `json:"proposed_date,omitempty"`
	ProposedCapacity int    `json:"proposed_capacity,omitempty"`
}

// InvitationReplyResponse carries the application created by an interested
// reply; it is null for a decline.
type InvitationReplyResponse struct {
	Application *ApplicationResponse `json:"application"`
}

type InvitationResultResponse struct {
	SentCount      int      `json:"sent_count"`
	FailedHostIDs  []string `json:"failed_host_ids"`
	SkippedHostIDs []string `json:"skipped_host_ids"`
	Errors         []string `json:"errors"`
}

type ConfirmationResultResponse struct {
	ConfirmedCount        int      `json:"confirmed_count"`
	FailedApplicationIDs  []string `json:"failed_application_ids"`
	SkippedApplicationIDs []string `json:"skipped_application_ids"`
	Errors                []string `json:"errors"`
	RemindedCount         *int     `json:"reminded_count,omitempty"`
}

// ErrorStrings flattens errors for the wire. Never returns nil.
func ErrorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

// NonNil keeps empty ID lists as [] rather than null on the wire.
func NonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
