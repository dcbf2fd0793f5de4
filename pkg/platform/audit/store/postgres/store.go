package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "leaseguard/pkg/domain"
	audit "leaseguard/pkg/platform/audit"
	"leaseguard/pkg/platform/audit/consumer"
)

// Store persists audit events in the audit_events table. When an outbox
// topic is configured, every append also writes an outbox row so the relay
// can stream the event to Kafka without dual-write races.
type Store struct {
	db         *sql.DB
	withOutbox bool
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB, withOutbox bool) *Store {
	return &Store{db: db, withOutbox: withOutbox}
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	ID            string            `json:"ID"`
	Category      string            `json:"Category"`
	Timestamp     string            `json:"Timestamp"`
	ApplicationID string            `json:"ApplicationID"`
	ActorID       string            `json:"ActorID,omitempty"`
	ActorRole     string            `json:"ActorRole,omitempty"`
	Action        string            `json:"Action"`
	Decision      string            `json:"Decision,omitempty"`
	Reason        string            `json:"Reason,omitempty"`
	Metadata      map[string]string `json:"Metadata,omitempty"`
	RequestID     string            `json:"RequestID,omitempty"`
}

// Append writes an audit event, and an outbox entry when streaming is
// enabled, inside one transaction.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	category := audit.AuditEvent(event.Action).Category()

	metadataBytes, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO audit_events (
			id, category, timestamp, application_id, actor_id, actor_role,
			action, decision, reason, metadata, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, query,
		eventID,
		string(category),
		event.Timestamp,
		uuid.UUID(event.ApplicationID),
		event.ActorID,
		event.ActorRole,
		event.Action,
		event.Decision,
		event.Reason,
		metadataBytes,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	if s.withOutbox {
		payload := outboxPayload{
			ID:            eventID.String(),
			Category:      string(category),
			Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
			ApplicationID: event.ApplicationID.String(),
			ActorID:       event.ActorID,
			ActorRole:     event.ActorRole,
			Action:        event.Action,
			Decision:      event.Decision,
			Reason:        event.Reason,
			Metadata:      event.Metadata,
			RequestID:     event.RequestID,
		}
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal outbox payload: %w", err)
		}

		outboxQuery := `
			INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err = tx.ExecContext(ctx, outboxQuery,
			uuid.New(),
			"application",
			event.ApplicationID.String(),
			event.Action,
			payloadBytes,
			time.Now(),
		)
		if err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
	}

	return tx.Commit()
}

// ListByApplication returns events for a specific application in
// chronological order.
func (s *Store) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]audit.Event, error) {
	query := `
		SELECT timestamp, application_id, actor_id, actor_role,
			   action, decision, reason, metadata, request_id
		FROM audit_events
		WHERE application_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// ListRecent returns the N most recent events across all applications.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT timestamp, application_id, actor_id, actor_role,
			   action, decision, reason, metadata, request_id
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

func (s *Store) scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			event         audit.Event
			appID         uuid.UUID
			metadataBytes []byte
		)

		err := rows.Scan(
			&event.Timestamp,
			&appID,
			&event.ActorID,
			&event.ActorRole,
			&event.Action,
			&event.Decision,
			&event.Reason,
			&metadataBytes,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.ApplicationID = id.ApplicationID(appID)
		if len(metadataBytes) > 0 {
			if err := json.Unmarshal(metadataBytes, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}

// AppendCompliance inserts a materialized compliance event.
// Idempotent via ON CONFLICT DO NOTHING; the stream is at-least-once.
func (s *Store) AppendCompliance(ctx context.Context, eventID uuid.UUID, record consumer.ComplianceRecord) error {
	query := `
		INSERT INTO audit_compliance (
			id, timestamp, application_id, actor_id, actor_role,
			action, decision, reason, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		record.Timestamp,
		uuid.UUID(record.ApplicationID),
		record.ActorID,
		record.ActorRole,
		record.Action,
		record.Decision,
		record.Reason,
		record.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert compliance event: %w", err)
	}
	return nil
}

// AppendOps inserts a materialized operational event.
// Idempotent via ON CONFLICT DO NOTHING.
func (s *Store) AppendOps(ctx context.Context, eventID uuid.UUID, record consumer.OpsRecord) error {
	query := `
		INSERT INTO audit_ops (
			id, timestamp, application_id, action, request_id
		)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		eventID,
		record.Timestamp,
		uuid.UUID(record.ApplicationID),
		record.Action,
		record.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert ops event: %w", err)
	}
	return nil
}
