// Package postgres stores items, rentals and the outbox in PostgreSQL and
// serializes calendar writers with transaction-scoped advisory locks.
package postgres

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const dialectPostgres = "postgres"

const (
	tableItems    = "items"
	tableRentals  = "rentals"
	tableSettings = "platform_settings"
	tableOutbox   = "app_outbox"
)

var dialect = goqu.Dialect(dialectPostgres)

// Open connects with lib/pq and checks the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id                 TEXT PRIMARY KEY,
	owner_id           TEXT NOT NULL,
	title              TEXT NOT NULL DEFAULT '',
	currency           CHAR(3) NOT NULL,
	price_per_day      BIGINT NOT NULL DEFAULT 0,
	price_per_hour     BIGINT NOT NULL DEFAULT 0,
	deposit            BIGINT NOT NULL DEFAULT 0,
	delivery_available BOOLEAN NOT NULL DEFAULT FALSE,
	delivery_fee       BIGINT NOT NULL DEFAULT 0,
	delivery_radius_km INTEGER NOT NULL DEFAULT 0,
	available          BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS rentals (
	id                  TEXT PRIMARY KEY,
	item_id             TEXT NOT NULL REFERENCES items(id),
	owner_id            TEXT NOT NULL,
	renter_id           TEXT NOT NULL,
	start_at            TIMESTAMPTZ NOT NULL,
	end_at              TIMESTAMPTZ NOT NULL,
	status              TEXT NOT NULL,
	payment_status      TEXT NOT NULL,
	currency            CHAR(3) NOT NULL,
	days                BIGINT NOT NULL,
	units               BIGINT NOT NULL,
	unit                TEXT NOT NULL,
	unit_price          BIGINT NOT NULL,
	base_price          BIGINT NOT NULL,
	delivery_fee        BIGINT NOT NULL,
	fee_rate            BIGINT NOT NULL,
	platform_fee        BIGINT NOT NULL,
	total               BIGINT NOT NULL,
	deposit             BIGINT NOT NULL,
	deposit_paid        BIGINT NOT NULL,
	delivery_requested  BOOLEAN NOT NULL DEFAULT FALSE,
	delivery_address    TEXT NOT NULL DEFAULT '',
	payment_method      TEXT NOT NULL DEFAULT '',
	payment_reference   TEXT NOT NULL DEFAULT '',
	cancellation_reason TEXT NOT NULL DEFAULT '',
	cancelled_by        TEXT NOT NULL DEFAULT '',
	handed_over_at      TIMESTAMPTZ,
	returned_at         TIMESTAMPTZ,
	removed_at          TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	version             BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS rentals_item_calendar ON rentals (item_id, start_at) WHERE removed_at IS NULL;
CREATE INDEX IF NOT EXISTS rentals_status ON rentals (status) WHERE removed_at IS NULL;

CREATE TABLE IF NOT EXISTS platform_settings (
	id       SMALLINT PRIMARY KEY DEFAULT 1,
	fee_rate BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS app_outbox (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	kind            TEXT NOT NULL,
	payload         BYTEA NOT NULL,
	occurred_at     TIMESTAMPTZ NOT NULL,
	aggregate       TEXT NOT NULL,
	headers         BYTEA,
	state           TEXT NOT NULL,
	attempts        INTEGER NOT NULL DEFAULT 0,
	next_attempt_at TIMESTAMPTZ NOT NULL,
	claimed_by      TEXT NOT NULL DEFAULT '',
	last_error      TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS app_outbox_due ON app_outbox (state, next_attempt_at);
`

// Migrate creates the tables when they are missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
