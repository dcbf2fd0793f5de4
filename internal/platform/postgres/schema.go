package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the full DDL for the service. Statements are idempotent so the
// schema can be applied on every boot without migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS applications (
	id              UUID PRIMARY KEY,
	applicant_id    UUID,
	applicant_name  TEXT NOT NULL,
	applicant_email TEXT NOT NULL,
	applicant_phone TEXT NOT NULL,
	status          TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_applications_status
	ON applications (status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_applications_created_at
	ON applications (created_at DESC);

CREATE TABLE IF NOT EXISTS documents (
	id             UUID PRIMARY KEY,
	application_id UUID NOT NULL REFERENCES applications (id),
	filename       TEXT NOT NULL,
	mime_type      TEXT NOT NULL,
	size_bytes     BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_application
	ON documents (application_id, created_at);

CREATE TABLE IF NOT EXISTS review_results (
	id                 UUID PRIMARY KEY,
	application_id     UUID NOT NULL REFERENCES applications (id),
	fraud_score        DOUBLE PRECISION NOT NULL,
	summary            TEXT NOT NULL DEFAULT '',
	notes              TEXT NOT NULL DEFAULT '',
	signals            JSONB NOT NULL DEFAULT '[]',
	classifications    JSONB NOT NULL DEFAULT '[]',
	recommended_action TEXT NOT NULL,
	confidence_level   DOUBLE PRECISION NOT NULL,
	ai_generated       BOOLEAN NOT NULL,
	scorer_path        TEXT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_results_application
	ON review_results (application_id, created_at DESC);

CREATE TABLE IF NOT EXISTS audit_events (
	id             UUID PRIMARY KEY,
	category       TEXT NOT NULL,
	timestamp      TIMESTAMPTZ NOT NULL,
	application_id UUID NOT NULL,
	actor_id       TEXT NOT NULL DEFAULT '',
	actor_role     TEXT NOT NULL DEFAULT '',
	action         TEXT NOT NULL,
	decision       TEXT NOT NULL DEFAULT '',
	reason         TEXT NOT NULL DEFAULT '',
	metadata       JSONB NOT NULL DEFAULT '{}',
	request_id     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_events_application
	ON audit_events (application_id, timestamp);

CREATE TABLE IF NOT EXISTS outbox (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outbox_created_at
	ON outbox (created_at);

CREATE TABLE IF NOT EXISTS audit_compliance (
	id             UUID PRIMARY KEY,
	timestamp      TIMESTAMPTZ NOT NULL,
	application_id UUID NOT NULL,
	actor_id       TEXT NOT NULL DEFAULT '',
	actor_role     TEXT NOT NULL DEFAULT '',
	action         TEXT NOT NULL,
	decision       TEXT NOT NULL DEFAULT '',
	reason         TEXT NOT NULL DEFAULT '',
	request_id     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_compliance_application
	ON audit_compliance (application_id, timestamp);

CREATE TABLE IF NOT EXISTS audit_ops (
	id             UUID PRIMARY KEY,
	timestamp      TIMESTAMPTZ NOT NULL,
	application_id UUID NOT NULL,
	action         TEXT NOT NULL,
	request_id     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_ops_timestamp
	ON audit_ops (timestamp);
`

// EnsureSchema applies the DDL. Safe to call on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
