package audit

import (
	"time"

	id "leaseguard/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and downstream routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance for a tenancy
	// decision. These require long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions against an
// application. Strictly append-only; the event stream, not the application's
// status column, is the authoritative ordered history.
type Event struct {
	Timestamp     time.Time
	ApplicationID id.ApplicationID
	ActorID       string
	ActorRole     string
	Action        string
	// Decision carries the outcome of the action when one exists
	// (e.g. "approved", "flagged").
	Decision string
	// Reason records why, including the note that workflow decisions are
	// AI-suggested and overridable by a human.
	Reason string
	// Metadata holds free-form action details (score, scorer path, prior
	// AI suggestion on overrides).
	Metadata  map[string]string
	RequestID string
}

type AuditEvent string

const (
	// Intake events
	EventApplicationSubmitted AuditEvent = "application_submitted"

	// Review pipeline events
	EventReviewStarted    AuditEvent = "review_started"
	EventReviewScored     AuditEvent = "review_scored"
	EventWorkflowDecision AuditEvent = "workflow_decision"

	// Human decision events
	EventManualDecision AuditEvent = "manual_decision"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - part of the causal history of a tenancy decision
	EventApplicationSubmitted: CategoryCompliance,
	EventWorkflowDecision:     CategoryCompliance,
	EventManualDecision:       CategoryCompliance,

	// Operations events - routine pipeline progress
	EventReviewStarted: CategoryOperations,
	EventReviewScored:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
