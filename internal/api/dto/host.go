package dto

import "tour-routing-service/internal/domain"

type HostResponse struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	City                string             `json:"city"`
	State               string             `json:"state"`
	Location            CoordinatesRequest `json:"location"`
	CapacityMin         int                `json:"capacity_min"`
	CapacityMax         int                `json:"capacity_max"`
	Genres              []string           `json:"genres"`
	VenueTypes          []string           `json:"venue_types"`
	ResponseRate        float64            `json:"response_rate"`
	MedianResponseHours float64            `json:"median_response_hours"`
	ShowsHosted         int                `json:"shows_hosted"`
}

type ListHostsResponse struct {
	Hosts []HostResponse `json:"hosts"`
}

func FromHost(h domain.HostCandidate) HostResponse {
	return HostResponse{
		ID:                  h.ID,
		Name:                h.Name,
		City:                h.City,
		State:               h.State,
		Location:            CoordinatesRequest{Lon: h.Location.Lon, Lat: h.Location.Lat},
		CapacityMin:         h.Capacity.Min,
		CapacityMax:         h.Capacity.Max,
		Genres:              h.Genres.Strings(),
		VenueTypes:          h.VenueTypes.Strings(),
		ResponseRate:        h.Responsiveness.ResponseRate,
		MedianResponseHours: h.Responsiveness.MedianResponseHours,
		ShowsHosted:         h.Responsiveness.ShowsHosted,
	}
}
