package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the initial schema migration. The unique indexes
// carry the invariants: one connection and one binding per purchase, one
// label per base domain.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			password   TEXT NOT NULL,
			role       TEXT NOT NULL DEFAULT 'user',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS base_domains (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			seller_id  TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS purchases (
			id             TEXT PRIMARY KEY,
			buyer_id       TEXT NOT NULL,
			base_domain_id TEXT NOT NULL REFERENCES base_domains(id),
			price_cents    BIGINT NOT NULL DEFAULT 0,
			status         TEXT NOT NULL DEFAULT 'pending',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_purchases_buyer_id ON purchases(buyer_id);

		CREATE TABLE IF NOT EXISTS project_connections (
			id           TEXT PRIMARY KEY,
			purchase_id  TEXT NOT NULL UNIQUE REFERENCES purchases(id),
			owner_id     TEXT NOT NULL,
			platform     TEXT NOT NULL,
			credential   TEXT NOT NULL,
			project_id   TEXT NOT NULL,
			project_name TEXT NOT NULL DEFAULT '',
			deployed_url TEXT NOT NULL,
			connected    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS cname_bindings (
			id             TEXT PRIMARY KEY,
			purchase_id    TEXT NOT NULL UNIQUE REFERENCES purchases(id),
			connection_id  TEXT NOT NULL REFERENCES project_connections(id),
			base_domain_id TEXT NOT NULL REFERENCES base_domains(id),
			label          TEXT NOT NULL,
			target         TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT cname_bindings_base_domain_label_key UNIQUE (base_domain_id, label)
		);
	`
	_, err := pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
