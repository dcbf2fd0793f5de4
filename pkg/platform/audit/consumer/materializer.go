package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	id "leaseguard/pkg/domain"
	audit "leaseguard/pkg/platform/audit"
)

// ComplianceRecord is a compliance event shaped for the audit_compliance
// table. These carry the causal history of a tenancy decision and get long
// retention.
type ComplianceRecord struct {
	Timestamp     time.Time
	ApplicationID id.ApplicationID
	ActorID       string
	ActorRole     string
	Action        string
	Decision      string
	Reason        string
	RequestID     string
}

// OpsRecord is an operational event shaped for the audit_ops table.
// Short retention, best effort.
type OpsRecord struct {
	Timestamp     time.Time
	ApplicationID id.ApplicationID
	Action        string
	RequestID     string
}

// ComplianceStore persists compliance events.
type ComplianceStore interface {
	AppendCompliance(ctx context.Context, eventID uuid.UUID, record ComplianceRecord) error
}

// OpsStore persists operational events.
type OpsStore interface {
	AppendOps(ctx context.Context, eventID uuid.UUID, record OpsRecord) error
}

// Materializer routes each streamed event to the store for its category.
type Materializer struct {
	compliance ComplianceStore
	ops        OpsStore
	logger     *slog.Logger
}

// NewMaterializer creates the category-routing handler.
func NewMaterializer(compliance ComplianceStore, ops OpsStore, logger *slog.Logger) *Materializer {
	return &Materializer{
		compliance: compliance,
		ops:        ops,
		logger:     logger,
	}
}

// streamPayload matches the JSON the outbox relay publishes.
type streamPayload struct {
	ID            string            `json:"ID"`
	Category      string            `json:"Category"`
	Timestamp     string            `json:"Timestamp"`
	ApplicationID string            `json:"ApplicationID"`
	ActorID       string            `json:"ActorID"`
	ActorRole     string            `json:"ActorRole"`
	Action        string            `json:"Action"`
	Decision      string            `json:"Decision"`
	Reason        string            `json:"Reason"`
	Metadata      map[string]string `json:"Metadata"`
	RequestID     string            `json:"RequestID"`
}

// Handle decodes one event and appends it to the matching category table.
// Malformed messages are logged and committed so they cannot wedge the
// partition; store failures are returned for redelivery.
func (m *Materializer) Handle(ctx context.Context, msg *Message) error {
	var payload streamPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		m.logger.Error("CRITICAL: failed to unmarshal audit payload",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	eventID, err := uuid.Parse(payload.ID)
	if err != nil {
		m.logger.Error("CRITICAL: failed to parse audit event ID",
			"id", payload.ID,
			"action", payload.Action,
			"error", err,
		)
		return nil
	}

	timestamp := time.Now()
	if payload.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp); err == nil {
			timestamp = ts
		}
	}

	var appID id.ApplicationID
	if parsed, err := id.ParseApplicationID(payload.ApplicationID); err == nil {
		appID = parsed
	} else {
		m.logger.Error("CRITICAL: audit event carries invalid application ID",
			"event_id", eventID,
			"application_id", payload.ApplicationID,
		)
		return nil
	}

	switch audit.EventCategory(payload.Category) {
	case audit.CategoryCompliance:
		record := ComplianceRecord{
			Timestamp:     timestamp,
			ApplicationID: appID,
			ActorID:       payload.ActorID,
			ActorRole:     payload.ActorRole,
			Action:        payload.Action,
			Decision:      payload.Decision,
			Reason:        payload.Reason,
			RequestID:     payload.RequestID,
		}
		if err := m.compliance.AppendCompliance(ctx, eventID, record); err != nil {
			return fmt.Errorf("store compliance event: %w", err)
		}
		m.logger.Debug("materialized compliance event",
			"event_id", eventID,
			"action", record.Action,
		)
	default:
		record := OpsRecord{
			Timestamp:     timestamp,
			ApplicationID: appID,
			Action:        payload.Action,
			RequestID:     payload.RequestID,
		}
		if err := m.ops.AppendOps(ctx, eventID, record); err != nil {
			return fmt.Errorf("store ops event: %w", err)
		}
	}
	return nil
}
