package domain

import "time"

type StopKind string

const (
	StopShow StopKind = "show"
	StopRest StopKind = "rest"
)

// Represents one day of the itinerary.
// A show stop binds a host; a rest stop is a non-performing day that may still
// carry part of a long drive. Leg fields describe the drive that ends at this
// stop on its date.
type Stop struct {
	Kind             StopKind      `json:"kind"`
	Date             time.Time     `json:"date"`
	HostID           string        `json:"host_id,omitempty"`
	HostName         string        `json:"host_name,omitempty"`
	Location         Coordinates   `json:"location"`
	ArriveAt         time.Time     `json:"arrive_at"`
	LegDistance      float64       `json:"leg_distance"`
	LegDuration      time.Duration `json:"leg_duration"`
	ExpectedCapacity int           `json:"expected_capacity,omitempty"`
	Guarantee        float64       `json:"guarantee,omitempty"`
}

// PlanConstraints are the hard limits a plan was built against. They travel
// with the plan so it can be re-validated on its own after an edit.
type PlanConstraints struct {
	Dates               DateRange     `json:"dates"`
	MaxDailyDistance    float64       `json:"max_daily_distance"`
	PreferredArrival    time.Duration `json:"preferred_arrival"`
	Departure           time.Duration `json:"departure"`
	MaxConsecutiveShows int           `json:"max_consecutive_shows"`
}

// Represents the ordered itinerary produced for one tour.
// A TourPlan is a value: a new plan is computed whenever inputs change and the
// tour's active plan reference is swapped, never edited in place.
type TourPlan struct {
	TourID           string          `json:"tour_id"`
	Version          int             `json:"version"`
	Stops            []Stop          `json:"stops"`
	Constraints      PlanConstraints `json:"constraints"`
	EligibleHostIDs  []string        `json:"eligible_host_ids"`
	UnplacedHostIDs  []string        `json:"unplaced_host_ids"`
	TotalDistance    float64         `json:"total_distance"`
	TotalDriveTime   time.Duration   `json:"total_drive_time"`
	ShowCount        int             `json:"show_count"`
	RestDayCount     int             `json:"rest_day_count"`
	ProjectedRevenue float64         `json:"projected_revenue"`
	SkippedPairs     int             `json:"skipped_pairs"`
	Feasible         bool            `json:"feasible"`
	Violations       []Violation     `json:"violations"`
}

// ShowStop returns the show stop bound to the host, if any.
func (p *TourPlan) ShowStop(hostID string) (Stop, bool) {
	for _, s := range p.Stops {
		if s.Kind == StopShow && s.HostID == hostID {
			return s, true
		}
	}
	return Stop{}, false
}

type ViolationRule string

const (
	RuleNoFeasiblePlacement ViolationRule = "no_feasible_placement"
	RuleExcessDailyDistance ViolationRule = "excess_daily_distance"
	RuleLateArrival         ViolationRule = "late_arrival"
	RuleMissingRestDay      ViolationRule = "missing_rest_day"
	RuleDateOrder           ViolationRule = "date_order"
	RuleOutsideDateRange    ViolationRule = "outside_date_range"
	RuleIneligibleHost      ViolationRule = "ineligible_host"
	RuleDuplicateHost       ViolationRule = "duplicate_host"
	RuleMissingHost         ViolationRule = "missing_host"
)

// Violation locates a breach of a scheduling rule. From and To are
// 1-based stop positions; From is 0 when the leg starts at the tour origin.
type Violation struct {
	Rule    ViolationRule `json:"rule"`
	From    int           `json:"from"`
	To      int           `json:"to"`
	Message string        `json:"message"`
}

func (v Violation) String() string { return v.Message }
