package dto

import (
	"time"

	"tour-routing-service/internal/domain"
)

type PlanStopResponse struct {
	Kind               string             `json:"kind"`
	Date               string             `json:"date"`
	HostID             string             `json:"host_id,omitempty"`
	HostName           string             `json:"host_name,omitempty"`
	Location           CoordinatesRequest `json:"location"`
	ArriveAt           time.Time          `json:"arrive_at"`
	LegDistance        float64            `json:"leg_distance"`
	LegDurationMinutes int                `json:"leg_duration_minutes"`
	ExpectedCapacity   int                `json:"expected_capacity,omitempty"`
	Guarantee          float64            `json:"guarantee,omitempty"`
}

type ConstraintsResponse struct {
	StartDate           string  `json:"start_date"`
	EndDate             string  `json:"end_date"`
	MaxDailyDistance    float64 `json:"max_daily_distance"`
	PreferredArrival    string  `json:"preferred_arrival"`
	Departure           string  `json:"departure"`
	MaxConsecutiveShows int     `json:"max_consecutive_shows"`
}

type ViolationResponse struct {
	Rule    string `json:"rule"`
	From    int    `json:"from"`
	To      int    `json:"to"`
	Message string `json:"message"`
}

type ExclusionResponse struct {
	HostID string `json:"host_id"`
	Reason string `json:"reason"`
}

// PlanResponse is also accepted by the plan check endpoint, so a client can
// edit a plan it fetched and submit it back.
type PlanResponse struct {
	TourID                string              `json:"tour_id"`
	Version               int                 `json:"version"`
	Feasible              bool                `json:"feasible"`
	Violations            []ViolationResponse `json:"violations"`
	Stops                 []PlanStopResponse  `json:"stops"`
	Constraints           ConstraintsResponse `json:"constraints"`
	EligibleHostIDs       []string            `json:"eligible_host_ids"`
	UnplacedHostIDs       []string            `json:"unplaced_host_ids"`
	TotalDistance         float64             `json:"total_distance"`
	TotalDriveTimeMinutes int                 `json:"total_drive_time_minutes"`
	ShowCount             int                 `json:"show_count"`
	RestDayCount          int                 `json:"rest_day_count"`
	ProjectedRevenue      float64             `json:"projected_revenue"`
	SkippedPairs          int                 `json:"skipped_pairs"`
	Exclusions            []ExclusionResponse `json:"exclusions,omitempty"`
}

type CheckPlanResponse struct {
	Feasible   bool                `json:"feasible"`
	Violations []ViolationResponse `json:"violations"`
}

// InfeasiblePlanResponse is the 409 body when an action needs a feasible plan.
type InfeasiblePlanResponse struct {
	Error      string              `json:"error"`
	Violations []ViolationResponse `json:"violations"`
}

func FromViolations(vs []domain.Violation) []ViolationResponse {
	out := make([]ViolationResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, ViolationResponse{Rule: string(v.Rule), From: v.From, To: v.To, Message: v.Message})
	}
	return out
}

func FromPlan(p *domain.TourPlan) PlanResponse {
	c := p.Constraints
	res := PlanResponse{
		TourID:     p.TourID,
		Version:    p.Version,
		Feasible:   p.Feasible,
		Violations: FromViolations(p.Violations),
		Stops:      make([]PlanStopResponse, 0, len(p.Stops)),
		Constraints: ConstraintsResponse{
			StartDate:           FormatDate(c.Dates.Start),
			EndDate:             FormatDate(c.Dates.End),
			MaxDailyDistance:    c.MaxDailyDistance,
			PreferredArrival:    FormatClock(c.PreferredArrival),
			Departure:           FormatClock(c.Departure),
			MaxConsecutiveShows: c.MaxConsecutiveShows,
		},
		EligibleHostIDs:       append([]string{}, p.EligibleHostIDs...),
		UnplacedHostIDs:       append([]string{}, p.UnplacedHostIDs...),
		TotalDistance:         p.TotalDistance,
		TotalDriveTimeMinutes: int(p.TotalDriveTime.Minutes()),
		ShowCount:             p.ShowCount,
		RestDayCount:          p.RestDayCount,
		ProjectedRevenue:      p.ProjectedRevenue,
		SkippedPairs:          p.SkippedPairs,
	}
	for _, s := range p.Stops {
		res.Stops = append(res.Stops, PlanStopResponse{
			Kind:               string(s.Kind),
			Date:               FormatDate(s.Date),
			HostID:             s.HostID,
			HostName:           s.HostName,
			Location:           CoordinatesRequest{Lon: s.Location.Lon, Lat: s.Location.Lat},
			ArriveAt:           s.ArriveAt,
			LegDistance:        s.LegDistance,
			LegDurationMinutes: int(s.LegDuration.Minutes()),
			ExpectedCapacity:   s.ExpectedCapacity,
			Guarantee:          s.Guarantee,
		})
	}
	return res
}

// ToDomain rebuilds the parts of a plan the feasibility checker reads.
func (p PlanResponse) ToDomain() (*domain.TourPlan, error) {
	start, err := ParseDate("constraints.start_date", p.Constraints.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate("constraints.end_date", p.Constraints.EndDate)
	if err != nil {
		return nil, err
	}
	arrival, err := ParseClock("constraints.preferred_arrival", p.Constraints.PreferredArrival)
	if err != nil {
		return nil, err
	}
	departure, err := ParseClock("constraints.departure", p.Constraints.Departure)
	if err != nil {
		return nil, err
	}

	plan := &domain.TourPlan{
		TourID:  p.TourID,
		Version: p.Version,
		Stops:   make([]domain.Stop, 0, len(p.Stops)),
		Constraints: domain.PlanConstraints{
			Dates:               domain.NewDateRange(start, end),
			MaxDailyDistance:    p.Constraints.MaxDailyDistance,
			PreferredArrival:    arrival,
			Departure:           departure,
			MaxConsecutiveShows: p.Constraints.MaxConsecutiveShows,
		},
		EligibleHostIDs: p.EligibleHostIDs,
		UnplacedHostIDs: p.UnplacedHostIDs,
	}
	for _, s := range p.Stops {
		kind := domain.StopKind(s.Kind)
		if kind != domain.StopShow && kind != domain.StopRest {
			return nil, domain.ValidationError{Field: "stops", Message: "kind must be show or rest"}
		}
		day, err := ParseDate("stops.date", s.Date)
		if err != nil {
			return nil, err
		}
		plan.Stops = append(plan.Stops, domain.Stop{
			Kind:             kind,
			Date:             day,
			HostID:           s.HostID,
			HostName:         s.HostName,
			Location:         domain.Coordinates{Lon: s.Location.Lon, Lat: s.Location.Lat},
			ArriveAt:         s.ArriveAt,
			LegDistance:      s.LegDistance,
			LegDuration:      time.Duration(s.LegDurationMinutes) * time.Minute,
			ExpectedCapacity: s.ExpectedCapacity,
			Guarantee:        s.Guarantee,
		})
	}
	return plan, nil
}
