// Package health provides readiness checks for the services talentboard depends on.
package health

import (
	"context"
	"database/sql"
	"fmt"
)

// Checker is implemented by every dependency that takes part in readiness.
type Checker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// dbConn is the subset of *sql.DB used by DBChecker.
type dbConn interface {
	PingContext(ctx context.Context) error
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DBChecker pings Postgres and, when minVersion is set, verifies that the
// schema has been migrated at least that far.
type DBChecker struct {
	db         dbConn
	minVersion int
}

// NewDBChecker creates a new database health checker.
// minVersion is the newest embedded migration; 0 skips the schema check.
func NewDBChecker(db *sql.DB, minVersion int) *DBChecker {
	return &DBChecker{
		db:         db,
		minVersion: minVersion,
	}
}

// Name implements Checker.
func (d *DBChecker) Name() string { return "database" }

// HealthCheck performs a health check on the database.
func (d *DBChecker) HealthCheck(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if d.minVersion <= 0 {
		return nil
	}

	var version int
	err := d.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version < d.minVersion {
		return fmt.Errorf("schema at version %d, want %d", version, d.minVersion)
	}
	return nil
}
