package postgres

import (
	"context"
	"database/sql"
)

// Schema is the full set of idempotent DDL statements for the six tables
// named in §6: service, user, key, csrf, audit, and a migrations ledger.
// Applied in order; every statement is safe to re-run.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     BIGINT PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE TABLE IF NOT EXISTS service (
		id                             UUID PRIMARY KEY,
		is_enabled                     BOOLEAN NOT NULL DEFAULT TRUE,
		name                           TEXT NOT NULL,
		url                            TEXT NOT NULL DEFAULT '',
		provider_local_url             TEXT NOT NULL DEFAULT '',
		provider_github_oauth2_url     TEXT NOT NULL DEFAULT '',
		provider_microsoft_oauth2_url  TEXT NOT NULL DEFAULT '',
		user_allow_register            BOOLEAN NOT NULL DEFAULT FALSE,
		user_email_text                TEXT NOT NULL DEFAULT '',
		created_at                     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at                     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE TABLE IF NOT EXISTS "user" (
		id                      UUID PRIMARY KEY,
		is_enabled              BOOLEAN NOT NULL DEFAULT TRUE,
		name                    TEXT NOT NULL DEFAULT '',
		email                   TEXT NOT NULL UNIQUE,
		locale                  TEXT NOT NULL DEFAULT 'en',
		timezone                TEXT NOT NULL DEFAULT 'Etc/UTC',
		password_hash           TEXT NOT NULL DEFAULT '',
		password_allow_reset    BOOLEAN NOT NULL DEFAULT TRUE,
		password_require_update BOOLEAN NOT NULL DEFAULT FALSE,
		created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE TABLE IF NOT EXISTS key (
		id          UUID PRIMARY KEY,
		is_enabled  BOOLEAN NOT NULL DEFAULT TRUE,
		is_revoked  BOOLEAN NOT NULL DEFAULT FALSE,
		type        TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		value       TEXT NOT NULL,
		service_id  UUID REFERENCES service(id) ON DELETE CASCADE,
		user_id     UUID REFERENCES "user"(id) ON DELETE CASCADE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	// At most one enabled Token/Totp key per (service,user): one partial
	// unique index per kind.
	`CREATE UNIQUE INDEX IF NOT EXISTS key_user_token_enabled_uniq
		ON key (service_id, user_id)
		WHERE type = 'token' AND is_enabled = TRUE AND user_id IS NOT NULL;`,

	`CREATE UNIQUE INDEX IF NOT EXISTS key_user_totp_enabled_uniq
		ON key (service_id, user_id)
		WHERE type = 'totp' AND is_enabled = TRUE AND user_id IS NOT NULL;`,

	`CREATE INDEX IF NOT EXISTS key_root_value_idx ON key (value) WHERE service_id IS NULL AND user_id IS NULL;`,
	`CREATE INDEX IF NOT EXISTS key_service_value_idx ON key (value) WHERE service_id IS NOT NULL AND user_id IS NULL;`,
	`CREATE INDEX IF NOT EXISTS key_user_value_idx ON key (service_id, value) WHERE user_id IS NOT NULL;`,

	`CREATE TABLE IF NOT EXISTS csrf (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		service_id  UUID NOT NULL REFERENCES service(id) ON DELETE CASCADE,
		ttl         TIMESTAMPTZ NOT NULL
	);`,

	`CREATE INDEX IF NOT EXISTS csrf_ttl_idx ON csrf (ttl);`,

	`CREATE TABLE IF NOT EXISTS audit (
		id          UUID PRIMARY KEY,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		user_agent  TEXT NOT NULL DEFAULT 'none',
		remote      TEXT NOT NULL DEFAULT '',
		forwarded   TEXT,
		type        TEXT NOT NULL,
		subject     TEXT,
		data        JSONB,
		status_code INT,
		key_id      UUID,
		service_id  UUID REFERENCES service(id) ON DELETE SET NULL,
		user_id     UUID REFERENCES "user"(id) ON DELETE SET NULL,
		user_key_id UUID
	);`,

	`CREATE INDEX IF NOT EXISTS audit_created_at_idx ON audit (created_at);`,
	`CREATE INDEX IF NOT EXISTS audit_service_id_idx ON audit (service_id);`,
	`CREATE INDEX IF NOT EXISTS audit_type_idx ON audit (type);`,
}

// Migrate applies Schema idempotently. Guarded by the migration advisory
// lock namespace so concurrent process starts don't race DDL.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, LockNamespaceMigration); err != nil {
		return err
	}
	for _, stmt := range Schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (1) ON CONFLICT DO NOTHING;`); err != nil {
		return err
	}
	return tx.Commit()
}
