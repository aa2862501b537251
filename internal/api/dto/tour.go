package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tour-routing-service/internal/domain"
)

// Dates travel as YYYY-MM-DD and times of day as HH:MM.

type RegionRequest struct {
	State string `json:"state,omitempty"`
	City  string `json:"city,omitempty"`
}

type CoordinatesRequest struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type TermsRequest struct {
	BaseGuarantee   float64 `json:"base_guarantee"`
	RevenueSplitPct float64 `json:"revenue_split_pct"`
	TicketPrice     float64 `json:"ticket_price"`
}

type TourRequest struct {
	ArtistID         string              `json:"artist_id"`
	ArtistName       string              `json:"artist_name,omitempty"`
	Title            string              `json:"title"`
	StartDate        string              `json:"start_date"`
	EndDate          string              `json:"end_date"`
	Regions          []RegionRequest     `json:"regions,omitempty"`
	CapacityMin      int                 `json:"capacity_min"`
	CapacityMax      int                 `json:"capacity_max"`
	ExpectedShows    int                 `json:"expected_shows"`
	MaxDailyDistance float64             `json:"max_daily_distance,omitempty"`
	PreferredArrival string              `json:"preferred_arrival,omitempty"`
	Origin           *CoordinatesRequest `json:"origin,omitempty"`
	Terms            TermsRequest        `json:"terms"`
	Genres           []string            `json:"genres,omitempty"`
	VenueTypes       []string            `json:"venue_types,omitempty"`
}

// ToDomain parses the wire request. Format problems come back as
// domain.ValidationError values; range checks are left to the domain.
func (r TourRequest) ToDomain() (domain.TourRequest, error) {
	var errs []error

	start, err := ParseDate("start_date", r.StartDate)
	if err != nil {
		errs = append(errs, err)
	}
	end, err := ParseDate("end_date", r.EndDate)
	if err != nil {
		errs = append(errs, err)
	}

	var arrival time.Duration
	if strings.TrimSpace(r.PreferredArrival) != "" {
		if arrival, err = ParseClock("preferred_arrival", r.PreferredArrival); err != nil {
			errs = append(errs, err)
		}
	}

	genres, err := domain.ParseGenreSet(r.Genres)
	if err != nil {
		errs = append(errs, err)
	}
	venues, err := domain.ParseVenueTypeSet(r.VenueTypes)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return domain.TourRequest{}, errors.Join(errs...)
	}

	req := domain.TourRequest{
		ArtistID:         strings.TrimSpace(r.ArtistID),
		ArtistName:       strings.TrimSpace(r.ArtistName),
		Title:            strings.TrimSpace(r.Title),
		Dates:            domain.NewDateRange(start, end),
		Capacity:         domain.CapacityRange{Min: r.CapacityMin, Max: r.CapacityMax},
		ExpectedShows:    r.ExpectedShows,
		MaxDailyDistance: r.MaxDailyDistance,
		PreferredArrival: arrival,
		Terms: domain.RevenueTerms{
			BaseGuarantee:   r.Terms.BaseGuarantee,
			RevenueSplitPct: r.Terms.RevenueSplitPct,
			TicketPrice:     r.Terms.TicketPrice,
		},
		Genres:     genres,
		VenueTypes: venues,
	}
	for _, reg := range r.Regions {
		req.Regions = append(req.Regions, domain.Region{State: reg.State, City: reg.City})
	}
	if r.Origin != nil {
		req.Origin = &domain.Coordinates{Lon: r.Origin.Lon, Lat: r.Origin.Lat}
	}
	return req, nil
}

func FromTourRequest(req domain.TourRequest) TourRequest {
	out := TourRequest{
		ArtistID:         req.ArtistID,
		ArtistName:       req.ArtistName,
		Title:            req.Title,
		StartDate:        FormatDate(req.Dates.Start),
		EndDate:          FormatDate(req.Dates.End),
		CapacityMin:      req.Capacity.Min,
		CapacityMax:      req.Capacity.Max,
		ExpectedShows:    req.ExpectedShows,
		MaxDailyDistance: req.MaxDailyDistance,
		PreferredArrival: FormatClock(req.PreferredArrival),
		Terms: TermsRequest{
			BaseGuarantee:   req.Terms.BaseGuarantee,
			RevenueSplitPct: req.Terms.RevenueSplitPct,
			TicketPrice:     req.Terms.TicketPrice,
		},
		Genres:     req.Genres.Strings(),
		VenueTypes: req.VenueTypes.Strings(),
	}
	for _, reg := range req.Regions {
		out.Regions = append(out.Regions, RegionRequest{State: reg.State, City: reg.City})
	}
	if req.Origin != nil {
		out.Origin = &CoordinatesRequest{Lon: req.Origin.Lon, Lat: req.Origin.Lat}
	}
	return out
}

type TourResponse struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	PlanVersion int         `json:"plan_version"`
	Request     TourRequest `json:"request"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func FromTour(t *domain.Tour) TourResponse {
	return TourResponse{
		ID:          t.ID,
		Status:      string(t.Status),
		PlanVersion: t.PlanVersion,
		Request:     FromTourRequest(t.Request),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// ReplanRequest optionally carries a changed tour request.
type ReplanRequest struct {
	Request *TourRequest `json:"request,omitempty"`
}

type StatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, domain.ValidationError{Field: field, Message: fmt.Sprintf("want YYYY-MM-DD, got %q", s)}
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}

// ParseClock parses HH:MM into an offset from midnight.
func ParseClock(field, s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, domain.ValidationError{Field: field, Message: fmt.Sprintf("want HH:MM, got %q", s)}
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func FormatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
