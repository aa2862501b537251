package domain

import "time"

// Policy holds the product thresholds used by filtering, planning and the
// workflows. Values come from configuration; DefaultPolicy is the baseline.
type Policy struct {
	MinResponseRate         float64       `yaml:"min_response_rate"`
	MaxMedianResponseHours  float64       `yaml:"max_median_response_hours"`
	DefaultMaxDailyDistance float64       `yaml:"default_max_daily_distance"`
	DefaultArrival          time.Duration `yaml:"default_arrival"`
	Departure               time.Duration `yaml:"departure"`
	MaxConsecutiveShows     int           `yaml:"max_consecutive_shows"`
	InvitationBatchSize     int           `yaml:"invitation_batch_size"`
	ConfirmationBatchSize   int           `yaml:"confirmation_batch_size"`
	ReminderDelay           time.Duration `yaml:"reminder_delay"`
	ShowTime                time.Duration `yaml:"show_time"`
	SetupChecklist          []string      `yaml:"setup_checklist"`
}

func DefaultPolicy() Policy {
	return Policy{
		MinResponseRate:         0.70,
		MaxMedianResponseHours:  48,
		DefaultMaxDailyDistance: 300,
		DefaultArrival:          16 * time.Hour,
		Departure:               10 * time.Hour,
		MaxConsecutiveShows:     2,
		InvitationBatchSize:     50,
		ConfirmationBatchSize:   50,
		ReminderDelay:           48 * time.Hour,
		ShowTime:                20 * time.Hour,
		SetupChecklist: []string{
			"Clear a performance area and seating for the expected audience",
			"Confirm a power outlet near the performance area",
			"Share parking and load-in instructions with the artist",
			"Send the guest list and door time to attendees",
		},
	}
}
