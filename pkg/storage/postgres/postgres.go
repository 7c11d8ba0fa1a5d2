// Package postgres implements the domain persistence gateways on PostgreSQL.
// Uniqueness (user email, tenant name, project name, one membership per user
// per project) is enforced by database constraints; unique violations are
// translated to AlreadyExists domain errors so the services never see raw
// driver errors.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/keygate/keygate/pkg/apperrors"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	URL         string
	MaxConns    int
	MinConns    int
	PingTimeout time.Duration
}

// DefaultConfig returns sensible connection pool defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:         url,
		MaxConns:    20,
		MinConns:    2,
		PingTimeout: 10 * time.Second,
	}
}

// Open connects to PostgreSQL, configures the pool, and verifies the
// connection with a ping.
func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// Migrate creates the schema if it does not exist. Cascade deletes flow from
// tenants to users and projects, and from projects to members.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			is_admin BOOLEAN NOT NULL DEFAULT false,
			email_verified BOOLEAN NOT NULL DEFAULT false,
			email_code TEXT,
			email_code_expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_tenant_id ON users(tenant_id)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			owner_id BIGINT NOT NULL,
			tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_tenant_id ON projects(tenant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner_id ON projects(owner_id)`,
		`CREATE TABLE IF NOT EXISTS project_members (
			id BIGSERIAL PRIMARY KEY,
			project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			role TEXT NOT NULL,
			invited_by BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (project_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_project_members_user_id ON project_members(user_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// uniqueViolation is the postgres error code for constraint class 23505.
const uniqueViolation = "23505"

// translateUnique converts a unique constraint violation into an
// AlreadyExists domain error; other errors pass through unchanged.
func translateUnique(err error, format string, args ...interface{}) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return apperrors.New(apperrors.KindAlreadyExists, format, args...)
	}
	return err
}
