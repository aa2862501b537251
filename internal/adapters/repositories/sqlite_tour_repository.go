package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tour-routing-service/internal/domain"
)

// SQLite-backed implementation of the TourRepository and PlanRepository ports.
type SqliteTourRepository struct{ DB *sql.DB }

func NewSqliteTourRepository(db *sql.DB) *SqliteTourRepository {
	return &SqliteTourRepository{DB: db}
}

func (s *SqliteTourRepository) GetTour(ctx context.Context, id string) (*domain.Tour, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite tour repository: DB is nil")
	}

	query := `
	SELECT id, status, plan_version, request, created_at, updated_at
	FROM tours
	WHERE id = ?;
	`
	var t domain.Tour
	var request, created, updated string
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Status, &t.PlanVersion, &request, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get tour %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tour %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(request), &t.Request); err != nil {
		return nil, fmt.Errorf("get tour %s: decode request: %w", id, err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("get tour %s: %w", id, err)
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("get tour %s: %w", id, err)
	}

	return &t, nil
}

func (s *SqliteTourRepository) SaveTour(ctx context.Context, tour *domain.Tour) error {
	if s.DB == nil {
		return errors.New("sqlite tour repository: DB is nil")
	}

	request, err := json.Marshal(tour.Request)
	if err != nil {
		return fmt.Errorf("save tour %s: encode request: %w", tour.ID, err)
	}

	query := `
	INSERT INTO tours (id, status, plan_version, request, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		status = excluded.status,
		plan_version = excluded.plan_version,
		request = excluded.request,
		updated_at = excluded.updated_at;
	`
	_, err = s.DB.ExecContext(ctx, query,
		tour.ID, string(tour.Status), tour.PlanVersion, string(request),
		formatTime(tour.CreatedAt), formatTime(tour.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save tour %s: %w", tour.ID, err)
	}
	return nil
}

// GetPlan returns the most recently saved plan of a tour.
func (s *SqliteTourRepository) GetPlan(ctx context.Context, tourID string) (*domain.TourPlan, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite tour repository: DB is nil")
	}

	var raw string
	err := s.DB.QueryRowContext(ctx, `SELECT plan FROM plans WHERE tour_id = ?;`, tourID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get plan %s: %w", tourID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", tourID, err)
	}

	var p domain.TourPlan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("get plan %s: decode: %w", tourID, err)
	}
	return &p, nil
}

func (s *SqliteTourRepository) SavePlan(ctx context.Context, plan *domain.TourPlan) error {
	if s.DB == nil {
		return errors.New("sqlite tour repository: DB is nil")
	}

	raw, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("save plan %s: encode: %w", plan.TourID, err)
	}

	query := `
	INSERT INTO plans (tour_id, version, feasible, plan)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (tour_id) DO UPDATE SET
		version = excluded.version,
		feasible = excluded.feasible,
		plan = excluded.plan;
	`
	if _, err := s.DB.ExecContext(ctx, query, plan.TourID, plan.Version, plan.Feasible, string(raw)); err != nil {
		return fmt.Errorf("save plan %s: %w", plan.TourID, err)
	}
	return nil
}

// Fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseOptionalTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
