package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The two listing tables share one layout: listings is the public catalog,
// flagged_listings the moderation hold queue.
const listingTable = `
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL REFERENCES users (id),
	metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
	image_urls  TEXT[] NOT NULL DEFAULT '{}',
	risk_scores DOUBLE PRECISION[] NOT NULL DEFAULT '{}',
	status      TEXT NOT NULL DEFAULT 'ACTIVE',
	credits     BIGINT NOT NULL DEFAULT 0 CHECK (credits >= 0),
	version     BIGINT NOT NULL DEFAULT 1,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
`

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id               TEXT PRIMARY KEY,
		display_name     TEXT NOT NULL DEFAULT '',
		role             TEXT NOT NULL DEFAULT 'user',
		credits          BIGINT NOT NULL DEFAULT 0 CHECK (credits >= 0),
		listed_item_ids  TEXT[] NOT NULL DEFAULT '{}',
		flagged_item_ids TEXT[] NOT NULL DEFAULT '{}',
		version          BIGINT NOT NULL DEFAULT 1,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS listings (` + listingTable + `)`,
	`CREATE TABLE IF NOT EXISTS flagged_listings (` + listingTable + `)`,
	`CREATE INDEX IF NOT EXISTS listings_created_at_idx ON listings (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS flagged_listings_created_at_idx ON flagged_listings (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id          TEXT PRIMARY KEY,
		giver_id    TEXT NOT NULL REFERENCES users (id),
		receiver_id TEXT NOT NULL REFERENCES users (id),
		item_id     TEXT NOT NULL UNIQUE,
		credits     BIGINT NOT NULL,
		status      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_giver_idx ON transactions (giver_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS transactions_receiver_idx ON transactions (receiver_id, created_at DESC)`,
}

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
