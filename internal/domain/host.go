package domain

import "time"

// Inclusive audience size range.
type CapacityRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (c CapacityRange) Valid() bool { return c.Min > 0 && c.Max > 0 && c.Min <= c.Max }

func (c CapacityRange) Overlaps(o CapacityRange) bool {
	return c.Min <= o.Max && o.Min <= c.Max
}

// Responsiveness summarises how a host has treated past invitations.
type Responsiveness struct {
	ResponseRate        float64 `json:"response_rate"`
	MedianResponseHours float64 `json:"median_response_hours"`
	ShowsHosted         int     `json:"shows_hosted"`
}

// A venue operator considered for a tour before filtering. Owned by the host;
// the planner only reads it.
type HostCandidate struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	City           string         `json:"city"`
	State          string         `json:"state"`
	Location       Coordinates    `json:"location"`
	Capacity       CapacityRange  `json:"capacity"`
	Genres         GenreSet       `json:"genres"`
	VenueTypes     VenueTypeSet   `json:"venue_types"`
	Responsiveness Responsiveness `json:"responsiveness"`
	Unavailable    []DateRange    `json:"unavailable,omitempty"`
}

// AvailableOn reports whether no blackout range covers the given day.
func (h HostCandidate) AvailableOn(day time.Time) bool {
	for _, r := range h.Unavailable {
		if r.Contains(day) {
			return false
		}
	}
	return true
}
