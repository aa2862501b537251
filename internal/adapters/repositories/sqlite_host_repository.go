package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tour-routing-service/internal/domain"
)

// SQLite-backed implementation of the HostRepository port.
type SqliteHostRepository struct{ DB *sql.DB }

func NewSqliteHostRepository(db *sql.DB) *SqliteHostRepository {
	return &SqliteHostRepository{DB: db}
}

const selectHosts = `
	SELECT
		id, name, city, state, lon, lat,
		capacity_min, capacity_max,
		genres, venue_types,
		response_rate, median_response_hours, shows_hosted,
		unavailable
	FROM hosts
	`

// Return all hosts ordered by ID.
func (s *SqliteHostRepository) ListHosts(ctx context.Context) ([]domain.HostCandidate, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite host repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, selectHosts+` ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("list hosts: query hosts table: %w", err)
	}
	defer rows.Close()

	hosts := make([]domain.HostCandidate, 0, 64)
	for rows.Next() {
		h, err := scanHost(rows)
		if err != nil {
			return nil, fmt.Errorf("list hosts: %w", err)
		}
		hosts = append(hosts, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list hosts: row iteration: %w", err)
	}

	return hosts, nil
}

func (s *SqliteHostRepository) GetHost(ctx context.Context, id string) (*domain.HostCandidate, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite host repository: DB is nil")
	}

	row := s.DB.QueryRowContext(ctx, selectHosts+` WHERE id = ?;`, id)
	h, err := scanHost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get host %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get host %s: %w", id, err)
	}
	return &h, nil
}

func (s *SqliteHostRepository) SaveHost(ctx context.Context, host domain.HostCandidate) error {
	return s.SaveHosts(ctx, []domain.HostCandidate{host})
}

// SaveHosts upserts hosts in one transaction.
func (s *SqliteHostRepository) SaveHosts(ctx context.Context, hosts []domain.HostCandidate) error {
	if s.DB == nil {
		return errors.New("sqlite host repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save hosts: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO hosts (
		id, name, city, state, lon, lat,
		capacity_min, capacity_max,
		genres, venue_types,
		response_rate, median_response_hours, shows_hosted,
		unavailable
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		city = excluded.city,
		state = excluded.state,
		lon = excluded.lon,
		lat = excluded.lat,
		capacity_min = excluded.capacity_min,
		capacity_max = excluded.capacity_max,
		genres = excluded.genres,
		venue_types = excluded.venue_types,
		response_rate = excluded.response_rate,
		median_response_hours = excluded.median_response_hours,
		shows_hosted = excluded.shows_hosted,
		unavailable = excluded.unavailable;
	`)
	if err != nil {
		return fmt.Errorf("save hosts: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range hosts {
		genres, err := json.Marshal(h.Genres)
		if err != nil {
			return fmt.Errorf("save hosts: host %s genres: %w", h.ID, err)
		}
		venues, err := json.Marshal(h.VenueTypes)
		if err != nil {
			return fmt.Errorf("save hosts: host %s venue types: %w", h.ID, err)
		}
		unavailable := h.Unavailable
		if unavailable == nil {
			unavailable = []domain.DateRange{}
		}
		blackouts, err := json.Marshal(unavailable)
		if err != nil {
			return fmt.Errorf("save hosts: host %s unavailable: %w", h.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			h.ID, h.Name, h.City, h.State, h.Location.Lon, h.Location.Lat,
			h.Capacity.Min, h.Capacity.Max,
			string(genres), string(venues),
			h.Responsiveness.ResponseRate, h.Responsiveness.MedianResponseHours, h.Responsiveness.ShowsHosted,
			string(blackouts),
		)
		if err != nil {
			return fmt.Errorf("save hosts: insert id=%s: %w", h.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save hosts: commit tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHost(r rowScanner) (domain.HostCandidate, error) {
	var h domain.HostCandidate
	var genres, venues, blackouts string
	err := r.Scan(
		&h.ID, &h.Name, &h.City, &h.State, &h.Location.Lon, &h.Location.Lat,
		&h.Capacity.Min, &h.Capacity.Max,
		&genres, &venues,
		&h.Responsiveness.ResponseRate, &h.Responsiveness.MedianResponseHours, &h.Responsiveness.ShowsHosted,
		&blackouts,
	)
	if err != nil {
		return h, err
	}

	if err := json.Unmarshal([]byte(genres), &h.Genres); err != nil {
		return h, fmt.Errorf("host %s genres: %w", h.ID, err)
	}
	if err := json.Unmarshal([]byte(venues), &h.VenueTypes); err != nil {
		return h, fmt.Errorf("host %s venue types: %w", h.ID, err)
	}
	if err := json.Unmarshal([]byte(blackouts), &h.Unavailable); err != nil {
		return h, fmt.Errorf("host %s unavailable: %w", h.ID, err)
	}
	if len(h.Unavailable) == 0 {
		h.Unavailable = nil
	}
	return h, nil
}
