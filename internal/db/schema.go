package db

import (
	"database/sql"
	"fmt"
)

// sqliteSchema is the full SQLite schema.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    kind          TEXT NOT NULL DEFAULT 'member' CHECK (kind IN ('admin', 'member')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

DROP INDEX IF EXISTS idx_accounts_username_active;
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_username
    ON accounts(username);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS counters (
    name  TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);

INSERT INTO counters (name, value) VALUES ('sku', 0), ('event', 0)
    ON CONFLICT (name) DO NOTHING;

CREATE TABLE IF NOT EXISTS roles (
    role       TEXT NOT NULL CHECK (role IN ('farmer', 'distributor', 'retailer', 'consumer')),
    identity   TEXT NOT NULL,
    granted_by TEXT NOT NULL,
    granted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (role, identity)
);

CREATE TABLE IF NOT EXISTS items (
    upc                     INTEGER PRIMARY KEY,
    sku                     INTEGER NOT NULL UNIQUE,
    owner_id                TEXT NOT NULL,
    origin_farmer_id        TEXT NOT NULL,
    origin_farm_name        TEXT NOT NULL,
    origin_farm_information TEXT NOT NULL,
    origin_farm_latitude    TEXT NOT NULL,
    origin_farm_longitude   TEXT NOT NULL,
    product_notes           TEXT NOT NULL,
    product_price           INTEGER NOT NULL DEFAULT 0,
    item_state              INTEGER NOT NULL CHECK (item_state BETWEEN 0 AND 7),
    distributor_id          TEXT NOT NULL DEFAULT '',
    retailer_id             TEXT NOT NULL DEFAULT '',
    consumer_id             TEXT NOT NULL DEFAULT '',
    harvested_at            DATETIME NOT NULL,
    updated_at              DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id);
CREATE INDEX IF NOT EXISTS idx_items_state ON items(item_state);

CREATE TABLE IF NOT EXISTS events (
    seq        INTEGER PRIMARY KEY,
    id         TEXT NOT NULL UNIQUE,
    name       TEXT NOT NULL,
    upc        INTEGER NOT NULL REFERENCES items(upc),
    actor      TEXT NOT NULL,
    payload    TEXT NOT NULL,
    prev_hash  TEXT NOT NULL,
    hash       TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_upc ON events(upc, seq);

CREATE TABLE IF NOT EXISTS payments (
    id        INTEGER PRIMARY KEY,
    upc       INTEGER NOT NULL REFERENCES items(upc),
    payer     TEXT NOT NULL,
    payee     TEXT NOT NULL,
    price     INTEGER NOT NULL,
    paid      INTEGER NOT NULL,
    refund    INTEGER NOT NULL,
    paid_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payments_upc ON payments(upc);

CREATE TABLE IF NOT EXISTS item_photos (
    upc         INTEGER PRIMARY KEY REFERENCES items(upc),
    data        BLOB NOT NULL,
    mime        TEXT NOT NULL,
    uploaded_by TEXT NOT NULL,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// postgresSchema mirrors sqliteSchema for Postgres.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    kind          TEXT NOT NULL DEFAULT 'member' CHECK (kind IN ('admin', 'member')),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    TIMESTAMPTZ
);

DROP INDEX IF EXISTS idx_accounts_username_active;
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_username
    ON accounts(username);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS counters (
    name  TEXT PRIMARY KEY,
    value BIGINT NOT NULL
);

INSERT INTO counters (name, value) VALUES ('sku', 0), ('event', 0)
    ON CONFLICT (name) DO NOTHING;

CREATE TABLE IF NOT EXISTS roles (
    role       TEXT NOT NULL CHECK (role IN ('farmer', 'distributor', 'retailer', 'consumer')),
    identity   TEXT NOT NULL,
    granted_by TEXT NOT NULL,
    granted_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (role, identity)
);

CREATE TABLE IF NOT EXISTS items (
    upc                     BIGINT PRIMARY KEY,
    sku                     BIGINT NOT NULL UNIQUE,
    owner_id                TEXT NOT NULL,
    origin_farmer_id        TEXT NOT NULL,
    origin_farm_name        TEXT NOT NULL,
    origin_farm_information TEXT NOT NULL,
    origin_farm_latitude    TEXT NOT NULL,
    origin_farm_longitude   TEXT NOT NULL,
    product_notes           TEXT NOT NULL,
    product_price           BIGINT NOT NULL DEFAULT 0,
    item_state              SMALLINT NOT NULL CHECK (item_state BETWEEN 0 AND 7),
    distributor_id          TEXT NOT NULL DEFAULT '',
    retailer_id             TEXT NOT NULL DEFAULT '',
    consumer_id             TEXT NOT NULL DEFAULT '',
    harvested_at            TIMESTAMPTZ NOT NULL,
    updated_at              TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id);
CREATE INDEX IF NOT EXISTS idx_items_state ON items(item_state);

CREATE TABLE IF NOT EXISTS events (
    seq        BIGINT PRIMARY KEY,
    id         TEXT NOT NULL UNIQUE,
    name       TEXT NOT NULL,
    upc        BIGINT NOT NULL REFERENCES items(upc),
    actor      TEXT NOT NULL,
    payload    TEXT NOT NULL,
    prev_hash  TEXT NOT NULL,
    hash       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_upc ON events(upc, seq);

CREATE TABLE IF NOT EXISTS payments (
    id        BIGSERIAL PRIMARY KEY,
    upc       BIGINT NOT NULL REFERENCES items(upc),
    payer     TEXT NOT NULL,
    payee     TEXT NOT NULL,
    price     BIGINT NOT NULL,
    paid      BIGINT NOT NULL,
    refund    BIGINT NOT NULL,
    paid_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payments_upc ON payments(upc);

CREATE TABLE IF NOT EXISTS item_photos (
    upc         BIGINT PRIMARY KEY REFERENCES items(upc),
    data        BYTEA NOT NULL,
    mime        TEXT NOT NULL,
    uploaded_by TEXT NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	schema := sqliteSchema
	if DialectOf(db) == Postgres {
		schema = postgresSchema
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
