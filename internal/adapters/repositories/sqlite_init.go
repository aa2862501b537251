package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"tour-routing-service/internal/domain"
)

// Initialize the SQLite database schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createHostsQuery := `
	CREATE TABLE IF NOT EXISTS hosts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		lon REAL NOT NULL,
		lat REAL NOT NULL,
		capacity_min INTEGER NOT NULL,
		capacity_max INTEGER NOT NULL,
		genres TEXT NOT NULL,
		venue_types TEXT NOT NULL,
		response_rate REAL NOT NULL,
		median_response_hours REAL NOT NULL,
		shows_hosted INTEGER NOT NULL DEFAULT 0,
		unavailable TEXT NOT NULL DEFAULT '[]'
	);
	`

	createToursQuery := `
	CREATE TABLE IF NOT EXISTS tours (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		plan_version INTEGER NOT NULL,
		request TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	createApplicationsQuery := `
	CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		tour_id TEXT NOT NULL REFERENCES tours(id),
		host_id TEXT NOT NULL,
		plan_version INTEGER NOT NULL,
		proposed_date TEXT NOT NULL,
		proposed_capacity INTEGER NOT NULL,
		status TEXT NOT NULL,
		host_message TEXT NOT NULL DEFAULT '',
		artist_message TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		reminded_at TEXT,
		UNIQUE (tour_id, host_id, plan_version)
	);
	`

	createInvitationsQuery := `
	CREATE TABLE IF NOT EXISTS invitations (
		id TEXT PRIMARY KEY,
		tour_id TEXT NOT NULL REFERENCES tours(id),
		host_id TEXT NOT NULL,
		plan_version INTEGER NOT NULL,
		status TEXT NOT NULL,
		sent_at TEXT,
		responded_at TEXT,
		last_error TEXT NOT NULL DEFAULT '',
		UNIQUE (tour_id, host_id, plan_version)
	);
	`

	createPlansQuery := `
	CREATE TABLE IF NOT EXISTS plans (
		tour_id TEXT PRIMARY KEY REFERENCES tours(id),
		version INTEGER NOT NULL,
		feasible INTEGER NOT NULL,
		plan TEXT NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_applications_tour_status
    ON applications(tour_id, status);
	`

	statements := []string{
		createHostsQuery,
		createToursQuery,
		createApplicationsQuery,
		createInvitationsQuery,
		createPlansQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// LoadHostsJSON reads and validates a host seed file.
func LoadHostsJSON(jsonPath string) ([]domain.HostCandidate, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed hosts: read %q: %w", jsonPath, err)
	}

	var data []domain.HostCandidate
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed hosts: parse json: %w", err)
	}

	seen := make(map[string]struct{}, len(data))
	for i, h := range data {
		id := strings.TrimSpace(h.ID)
		if id == "" {
			return nil, fmt.Errorf("seed hosts: item at index %d: id cannot be empty", i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("seed hosts: duplicate id %q at index %d", id, i+1)
		}
		seen[id] = struct{}{}
		if !h.Capacity.Valid() {
			return nil, fmt.Errorf("seed hosts: host %q: invalid capacity range", id)
		}
		data[i].ID = id
	}

	return data, nil
}

// Populate the hosts table from a JSON file. Existing hosts are replaced.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) (int, error) {
	hosts, err := LoadHostsJSON(jsonPath)
	if err != nil {
		return 0, err
	}

	repo := NewSqliteHostRepository(db)
	if err := repo.SaveHosts(ctx, hosts); err != nil {
		return 0, fmt.Errorf("seed hosts: %w", err)
	}

	return len(hosts), nil
}
