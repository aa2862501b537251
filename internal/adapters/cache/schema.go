package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const distanceCacheTable = `
	CREATE TABLE IF NOT EXISTS distance_cache (
        origin TEXT NOT NULL,
        destination TEXT NOT NULL,
        distance_units REAL NOT NULL,
        duration_seconds INTEGER NOT NULL,
        PRIMARY KEY (origin, destination)
    );
	`

const distanceCacheIndex = `
	CREATE INDEX IF NOT EXISTS idx_distance_cache_destination_origin
    ON distance_cache(destination, origin);
	`

// InitSchema creates the distance cache table. The DDL is valid for both
// SQLite and PostgreSQL.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init distance cache schema: DB is nil")
	}

	for i, stmt := range []string{distanceCacheTable, distanceCacheIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init distance cache schema: exec statement #%d: %w", i+1, err)
		}
	}

	return nil
}
