package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tour-routing-service/internal/domain"
)

// SQLite-backed implementation of the ApplicationRepository and
// InvitationRepository ports.
type SqliteApplicationRepository struct{ DB *sql.DB }

func NewSqliteApplicationRepository(db *sql.DB) *SqliteApplicationRepository {
	return &SqliteApplicationRepository{DB: db}
}

const selectApplications = `
	SELECT
		id, tour_id, host_id, plan_version,
		proposed_date, proposed_capacity, status,
		host_message, artist_message,
		created_at, updated_at, reminded_at
	FROM applications
	`

func (s *SqliteApplicationRepository) GetApplication(ctx context.Context, id string) (*domain.ShowApplication, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite application repository: DB is nil")
	}

	app, err := scanApplication(s.DB.QueryRowContext(ctx, selectApplications+` WHERE id = ?;`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get application %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get application %s: %w", id, err)
	}
	return &app, nil
}

func (s *SqliteApplicationRepository) FindApplication(
	ctx context.Context,
	tourID, hostID string,
	planVersion int,
) (*domain.ShowApplication, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite application repository: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx,
		selectApplications+` WHERE tour_id = ? AND host_id = ? AND plan_version = ?;`,
		tourID, hostID, planVersion,
	)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find application %s/%s v%d: %w", tourID, hostID, planVersion, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find application %s/%s v%d: %w", tourID, hostID, planVersion, err)
	}
	return &app, nil
}

func (s *SqliteApplicationRepository) ListApplications(
	ctx context.Context,
	tourID string,
	statuses ...domain.ApplicationStatus,
) ([]domain.ShowApplication, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite application repository: DB is nil")
	}

	query := selectApplications + ` WHERE tour_id = ?`
	args := []any{tourID}
	if len(statuses) > 0 {
		ph := make([]string, len(statuses))
		for i, st := range statuses {
			ph[i] = "?"
			args = append(args, string(st))
		}
		// Only the placeholder structure is interpolated; all values remain parameterized.
		query += fmt.Sprintf(` AND status IN (%s)`, strings.Join(ph, ","))
	}
	query += ` ORDER BY created_at, id;`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications %s: query: %w", tourID, err)
	}
	defer rows.Close()

	apps := make([]domain.ShowApplication, 0, 16)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("list applications %s: %w", tourID, err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applications %s: row iteration: %w", tourID, err)
	}

	return apps, nil
}

func (s *SqliteApplicationRepository) SaveApplication(ctx context.Context, app *domain.ShowApplication) error {
	if s.DB == nil {
		return errors.New("sqlite application repository: DB is nil")
	}

	query := `
	INSERT INTO applications (
		id, tour_id, host_id, plan_version,
		proposed_date, proposed_capacity, status,
		host_message, artist_message,
		created_at, updated_at, reminded_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		proposed_date = excluded.proposed_date,
		proposed_capacity = excluded.proposed_capacity,
		status = excluded.status,
		host_message = excluded.host_message,
		artist_message = excluded.artist_message,
		updated_at = excluded.updated_at,
		reminded_at = excluded.reminded_at;
	`
	_, err := s.DB.ExecContext(ctx, query,
		app.ID, app.TourID, app.HostID, app.PlanVersion,
		formatTime(app.ProposedDate), app.ProposedCapacity, string(app.Status),
		app.HostMessage, app.ArtistMessage,
		formatTime(app.CreatedAt), formatTime(app.UpdatedAt), formatOptionalTime(app.RemindedAt),
	)
	if err != nil {
		return fmt.Errorf("save application %s: %w", app.ID, err)
	}
	return nil
}

func scanApplication(r rowScanner) (domain.ShowApplication, error) {
	var a domain.ShowApplication
	var proposed, created, updated string
	var reminded sql.NullString
	err := r.Scan(
		&a.ID, &a.TourID, &a.HostID, &a.PlanVersion,
		&proposed, &a.ProposedCapacity, &a.Status,
		&a.HostMessage, &a.ArtistMessage,
		&created, &updated, &reminded,
	)
	if err != nil {
		return a, err
	}

	if a.ProposedDate, err = parseTime(proposed); err != nil {
		return a, err
	}
	if a.CreatedAt, err = parseTime(created); err != nil {
		return a, err
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return a, err
	}
	if a.RemindedAt, err = parseOptionalTime(reminded); err != nil {
		return a, err
	}
	return a, nil
}

func (s *SqliteApplicationRepository) GetInvitation(
	ctx context.Context,
	tourID, hostID string,
	planVersion int,
) (*domain.Invitation, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite invitation repository: DB is nil")
	}

	query := `
	SELECT id, tour_id, host_id, plan_version, status, sent_at, responded_at, last_error
	FROM invitations
	WHERE tour_id = ? AND host_id = ? AND plan_version = ?;
	`
	var inv domain.Invitation
	var sent, responded sql.NullString
	err := s.DB.QueryRowContext(ctx, query, tourID, hostID, planVersion).Scan(
		&inv.ID, &inv.TourID, &inv.HostID, &inv.PlanVersion, &inv.Status, &sent, &responded, &inv.LastError,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get invitation %s/%s v%d: %w", tourID, hostID, planVersion, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation %s/%s v%d: %w", tourID, hostID, planVersion, err)
	}

	if inv.SentAt, err = parseOptionalTime(sent); err != nil {
		return nil, err
	}
	if inv.RespondedAt, err = parseOptionalTime(responded); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *SqliteApplicationRepository) SaveInvitation(ctx context.Context, inv *domain.Invitation) error {
	if s.DB == nil {
		return errors.New("sqlite invitation repository: DB is nil")
	}

	query := `
	INSERT INTO invitations (id, tour_id, host_id, plan_version, status, sent_at, responded_at, last_error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (tour_id, host_id, plan_version) DO UPDATE SET
		status = excluded.status,
		sent_at = excluded.sent_at,
		responded_at = excluded.responded_at,
		last_error = excluded.last_error;
	`
	_, err := s.DB.ExecContext(ctx, query,
		inv.ID, inv.TourID, inv.HostID, inv.PlanVersion, string(inv.Status),
		formatOptionalTime(inv.SentAt), formatOptionalTime(inv.RespondedAt), inv.LastError,
	)
	if err != nil {
		return fmt.Errorf("save invitation %s/%s: %w", inv.TourID, inv.HostID, err)
	}
	return nil
}
