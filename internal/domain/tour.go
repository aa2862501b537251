package domain

import (
	"errors"
	"strings"
	"time"
)

// A target region: a whole state, a city in any state, or one city within a
// state when both are set.
type Region struct {
	State string `json:"state,omitempty"`
	City  string `json:"city,omitempty"`
}

type RevenueTerms struct {
	BaseGuarantee   float64 `json:"base_guarantee"`
	RevenueSplitPct float64 `json:"revenue_split_pct"`
	TicketPrice     float64 `json:"ticket_price"`
}

// ShowRevenue is the artist's take for one show: the better of the guarantee
// and the door split at the given attendance.
func (t RevenueTerms) ShowRevenue(attendance int) float64 {
	split := float64(attendance) * t.TicketPrice * t.RevenueSplitPct / 100
	if split > t.BaseGuarantee {
		return split
	}
	return t.BaseGuarantee
}

// TourRequest is the artist's declared intent to tour a date range and region.
type TourRequest struct {
	ArtistID         string        `json:"artist_id"`
	ArtistName       string        `json:"artist_name"`
	Title            string        `json:"title"`
	Dates            DateRange     `json:"dates"`
	Regions          []Region      `json:"regions,omitempty"`
	Capacity         CapacityRange `json:"capacity"`
	ExpectedShows    int           `json:"expected_shows"`
	MaxDailyDistance float64       `json:"max_daily_distance"`
	PreferredArrival time.Duration `json:"preferred_arrival"`
	Origin           *Coordinates  `json:"origin,omitempty"`
	Terms            RevenueTerms  `json:"terms"`
	Genres           GenreSet      `json:"genres"`
	VenueTypes       VenueTypeSet  `json:"venue_types"`
}

// Validate rejects malformed requests before any planning attempt.
func (r TourRequest) Validate() error {
	var errs []error
	if strings.TrimSpace(r.ArtistID) == "" {
		errs = append(errs, ValidationError{Field: "artist_id", Message: "must not be empty"})
	}
	if strings.TrimSpace(r.Title) == "" {
		errs = append(errs, ValidationError{Field: "title", Message: "must not be empty"})
	}
	if r.Dates.Start.IsZero() || r.Dates.End.IsZero() {
		errs = append(errs, ValidationError{Field: "dates", Message: "start and end are required"})
	} else if r.Dates.End.Before(r.Dates.Start) {
		errs = append(errs, ValidationError{Field: "dates", Message: "end date is before start date"})
	}
	if !r.Capacity.Valid() {
		errs = append(errs, ValidationError{Field: "capacity", Message: "min and max must be positive with min <= max"})
	}
	if r.ExpectedShows <= 0 {
		errs = append(errs, ValidationError{Field: "expected_shows", Message: "must be positive"})
	}
	if r.MaxDailyDistance < 0 {
		errs = append(errs, ValidationError{Field: "max_daily_distance", Message: "must not be negative"})
	}
	if r.PreferredArrival < 0 || r.PreferredArrival >= 24*time.Hour {
		errs = append(errs, ValidationError{Field: "preferred_arrival", Message: "must be a time of day"})
	}
	if r.Terms.BaseGuarantee < 0 || r.Terms.TicketPrice < 0 {
		errs = append(errs, ValidationError{Field: "terms", Message: "amounts must not be negative"})
	}
	if r.Terms.RevenueSplitPct < 0 || r.Terms.RevenueSplitPct > 100 {
		errs = append(errs, ValidationError{Field: "terms", Message: "revenue split must be within 0..100"})
	}
	for _, reg := range r.Regions {
		if strings.TrimSpace(reg.State) == "" && strings.TrimSpace(reg.City) == "" {
			errs = append(errs, ValidationError{Field: "regions", Message: "every region needs a state or a city"})
			break
		}
	}
	return errors.Join(errs...)
}

// WithDefaults fills the policy defaults for unset travel limits.
func (r TourRequest) WithDefaults(p Policy) TourRequest {
	if r.MaxDailyDistance == 0 {
		r.MaxDailyDistance = p.DefaultMaxDailyDistance
	}
	if r.PreferredArrival == 0 {
		r.PreferredArrival = p.DefaultArrival
	}
	r.Dates = NewDateRange(r.Dates.Start, r.Dates.End)
	return r
}

type TourStatus string

const (
	TourPlanning     TourStatus = "planning"
	TourSeekingHosts TourStatus = "seeking_hosts"
	TourConfirmed    TourStatus = "confirmed"
	TourInProgress   TourStatus = "in_progress"
	TourCompleted    TourStatus = "completed"
	TourCancelled    TourStatus = "cancelled"
)

var tourTransitions = map[TourStatus][]TourStatus{
	TourPlanning:     {TourSeekingHosts, TourCancelled},
	TourSeekingHosts: {TourConfirmed, TourCancelled},
	TourConfirmed:    {TourInProgress, TourCancelled},
	TourInProgress:   {TourCompleted, TourCancelled},
}

func (s TourStatus) Terminal() bool { return s == TourCompleted || s == TourCancelled }

func (s TourStatus) Valid() bool {
	switch s {
	case TourPlanning, TourSeekingHosts, TourConfirmed, TourInProgress, TourCompleted, TourCancelled:
		return true
	}
	return false
}

func (s TourStatus) CanTransition(to TourStatus) bool {
	for _, next := range tourTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Tour is the aggregate owning lifecycle status. PlanVersion increments on
// every replan so applications bound to an older plan can be told apart.
type Tour struct {
	ID          string      `json:"id"`
	Request     TourRequest `json:"request"`
	Status      TourStatus  `json:"status"`
	PlanVersion int         `json:"plan_version"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Transition moves the tour to the target status. Re-applying the current
// status is a no-op and reports changed=false.
func (t *Tour) Transition(to TourStatus, at time.Time) (bool, error) {
	if t.Status == to {
		return false, nil
	}
	if !t.Status.CanTransition(to) {
		return false, &IllegalTransitionError{Entity: "tour", ID: t.ID, From: string(t.Status), To: string(to)}
	}
	t.Status = to
	t.UpdatedAt = at
	return true, nil
}

// Replan sends the tour back to planning and opens a new plan version.
func (t *Tour) Replan(at time.Time) error {
	switch t.Status {
	case TourPlanning, TourSeekingHosts, TourConfirmed:
	default:
		return &IllegalTransitionError{Entity: "tour", ID: t.ID, From: string(t.Status), To: string(TourPlanning)}
	}
	t.Status = TourPlanning
	t.PlanVersion++
	t.UpdatedAt = at
	return nil
}
