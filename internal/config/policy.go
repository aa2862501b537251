package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"tour-routing-service/internal/domain"

	"gopkg.in/yaml.v3"
)

// LoadPolicy reads a YAML policy file. Keys left out keep their default
// values; unknown keys are rejected.
func LoadPolicy(path string) (domain.Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("load policy: read %q: %w", path, err)
	}

	p, err := ParsePolicy(raw)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("load policy %q: %w", path, err)
	}
	return p, nil
}

// ParsePolicy decodes YAML over domain.DefaultPolicy and validates the result.
func ParsePolicy(raw []byte) (domain.Policy, error) {
	p := domain.DefaultPolicy()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return domain.Policy{}, fmt.Errorf("decode yaml: %w", err)
	}

	if err := validatePolicy(p); err != nil {
		return domain.Policy{}, err
	}
	return p, nil
}

func validatePolicy(p domain.Policy) error {
	var errs []error
	if p.MinResponseRate < 0 || p.MinResponseRate > 1 {
		errs = append(errs, domain.ValidationError{Field: "min_response_rate", Message: "must be within 0..1"})
	}
	if p.MaxMedianResponseHours <= 0 {
		errs = append(errs, domain.ValidationError{Field: "max_median_response_hours", Message: "must be positive"})
	}
	if p.DefaultMaxDailyDistance <= 0 {
		errs = append(errs, domain.ValidationError{Field: "default_max_daily_distance", Message: "must be positive"})
	}
	if p.Departure < 0 || p.DefaultArrival <= p.Departure || p.DefaultArrival >= 24*time.Hour {
		errs = append(errs, domain.ValidationError{Field: "default_arrival", Message: "must be a time of day after departure"})
	}
	if p.MaxConsecutiveShows < 0 {
		errs = append(errs, domain.ValidationError{Field: "max_consecutive_shows", Message: "must not be negative"})
	}
	if p.InvitationBatchSize <= 0 || p.ConfirmationBatchSize <= 0 {
		errs = append(errs, domain.ValidationError{Field: "batch_size", Message: "must be positive"})
	}
	if p.ReminderDelay <= 0 {
		errs = append(errs, domain.ValidationError{Field: "reminder_delay", Message: "must be positive"})
	}
	return errors.Join(errs...)
}
