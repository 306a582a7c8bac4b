package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`
CREATE TABLE IF NOT EXISTS generations (
    id               text PRIMARY KEY,
    provider         text NOT NULL,
    model            text NOT NULL,
    prompt           text NOT NULL,
    params           jsonb NOT NULL DEFAULT '{}'::jsonb,
    status           text NOT NULL DEFAULT 'queued',
    provider_job_id  text NOT NULL DEFAULT '',
    error_message    text NOT NULL DEFAULT '',
    video_url        text NOT NULL DEFAULT '',
    video_path       text NOT NULL DEFAULT '',
    width            integer NOT NULL DEFAULT 0,
    height           integer NOT NULL DEFAULT 0,
    duration_seconds double precision NOT NULL DEFAULT 0,
    generation_time  double precision NOT NULL DEFAULT 0,
    cost             double precision NOT NULL DEFAULT 0,
    created_at       timestamptz NOT NULL DEFAULT now(),
    updated_at       timestamptz NOT NULL DEFAULT now(),
    completed_at     timestamptz
);`,
	`CREATE INDEX IF NOT EXISTS idx_generations_provider ON generations (provider);`,
	`CREATE INDEX IF NOT EXISTS idx_generations_status ON generations (status);`,
	`CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations (created_at DESC);`,
	`
CREATE TABLE IF NOT EXISTS credentials (
    id             text PRIMARY KEY,
    provider       text NOT NULL,
    encrypted_key  text NOT NULL,
    status         text NOT NULL DEFAULT 'active',
    last_validated timestamptz,
    created_at     timestamptz NOT NULL DEFAULT now(),
    updated_at     timestamptz NOT NULL DEFAULT now()
);`,
	`CREATE INDEX IF NOT EXISTS idx_credentials_provider ON credentials (provider);`,
}

// EnsureSchema creates the gateway tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
