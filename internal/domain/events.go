package domain

// Events published to notification and analytics collaborators.

type Event interface {
	EventName() string
}

type TourStatusChanged struct {
	TourID string     `json:"tour_id"`
	From   TourStatus `json:"from"`
	To     TourStatus `json:"to"`
}

func (TourStatusChanged) EventName() string { return "tour_status_changed" }

type ApplicationStatusChanged struct {
	ApplicationID string            `json:"application_id"`
	TourID        string            `json:"tour_id"`
	From          ApplicationStatus `json:"from"`
	To            ApplicationStatus `json:"to"`
}

func (ApplicationStatusChanged) EventName() string { return "application_status_changed" }

type PlanGenerated struct {
	TourID         string `json:"tour_id"`
	PlanVersion    int    `json:"plan_version"`
	Feasible       bool   `json:"feasible"`
	ViolationCount int    `json:"violation_count"`
}

func (PlanGenerated) EventName() string { return "plan_generated" }
