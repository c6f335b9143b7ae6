// Package postgres implements the repository contracts on PostgreSQL via
// pgx. All capacity and lifecycle mutations are single conditional UPDATE
// statements so that concurrent control-plane invocations are serialized by
// the store, not by in-process coordination.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddl creates the control-plane tables. Kept idempotent so dev-mode
// auto-migration can run on every boot.
const ddl = `
CREATE TABLE IF NOT EXISTS cells (
	id                text PRIMARY KEY,
	name              text NOT NULL,
	max_capacity      integer NOT NULL DEFAULT 0,
	utilization       integer NOT NULL DEFAULT 0 CHECK (utilization >= 0),
	priority_counter  integer NOT NULL DEFAULT 0,
	wave_number       integer NOT NULL DEFAULT 1,
	status            text NOT NULL DEFAULT 'creating',
	url               text NOT NULL DEFAULT '',
	provisioning_meta jsonb,
	created_at        timestamptz NOT NULL DEFAULT now(),
	updated_at        timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tenants (
	id                text PRIMARY KEY,
	cell_id           text NOT NULL REFERENCES cells (id),
	name              text NOT NULL,
	tier              text NOT NULL DEFAULT '',
	email             text NOT NULL,
	listener_priority integer NOT NULL,
	image_version     text NOT NULL DEFAULT '',
	status            text NOT NULL DEFAULT 'creating',
	provisioning_meta jsonb,
	created_at        timestamptz NOT NULL DEFAULT now(),
	updated_at        timestamptz NOT NULL DEFAULT now(),
	UNIQUE (cell_id, listener_priority)
);

CREATE INDEX IF NOT EXISTS tenants_by_cell_idx ON tenants (cell_id);

CREATE TABLE IF NOT EXISTS routing_entries (
	tenant_id  text PRIMARY KEY,
	cell_url   text NOT NULL,
	version    bigint NOT NULL DEFAULT 1,
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS config_params (
	name       text PRIMARY KEY,
	value      text NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
);
`

// Migrate applies the control-plane DDL.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply control-plane schema: %w", err)
	}
	return nil
}
