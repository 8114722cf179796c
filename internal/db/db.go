package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Pool *pgxpool.Pool

// Schema creates the tables the event store writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS eventsub_events (
	message_id        TEXT PRIMARY KEY,
	provider          TEXT NOT NULL,
	event_type        TEXT NOT NULL,
	user_id           TEXT,
	payload           JSONB NOT NULL,
	message_timestamp TEXT NOT NULL,
	received_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS eventsub_events_type_idx ON eventsub_events (event_type, received_at);

CREATE TABLE IF NOT EXISTS subscription_revocations (
	message_id        TEXT PRIMARY KEY,
	provider          TEXT NOT NULL,
	event_type        TEXT NOT NULL,
	user_id           TEXT,
	message_timestamp TEXT NOT NULL,
	revoked_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Connect establishes a connection pool to the database using the given URL.
func Connect(ctx context.Context, databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("database URL is empty")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Configure connection pool for Lambda
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	Pool = pool
	return nil
}

// EnsureSchema creates missing tables.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection pool
func Close() {
	if Pool != nil {
		Pool.Close()
	}
}
