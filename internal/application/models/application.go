package models

import (
	"net/mail"
	"strings"
	"time"

	id "leaseguard/pkg/domain"
	dErrors "leaseguard/pkg/domain-errors"
)

// Status is an application's position in the review state machine.
type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusFlagged     Status = "flagged"
)

var validStatuses = map[Status]bool{
	StatusSubmitted:   true,
	StatusUnderReview: true,
	StatusApproved:    true,
	StatusFlagged:     true,
}

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus constructs a Status from external input (query filters).
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid status")
	}
	return s, nil
}

// autoTransitions is the directed graph walked by the automated pipeline.
// Manual decisions are the sanctioned exception: they may move any status
// directly to approved or flagged (never back to submitted).
var autoTransitions = map[Status]map[Status]bool{
	StatusSubmitted: {
		StatusUnderReview: true,
	},
	StatusUnderReview: {
		// under_review -> under_review is legal: the decision policy may
		// resolve to the holding state the orchestrator already set.
		StatusUnderReview: true,
		StatusApproved:    true,
		StatusFlagged:     true,
	},
	StatusApproved: {},
	StatusFlagged:  {},
}

// CanTransitionTo reports whether the automated pipeline may move from s to
// next. Transitions are monotonic: nothing automated leaves a terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	return autoTransitions[s][next]
}

// Application is the aggregate root for one rental intake.
//
// Invariants:
//   - ApplicantName and ApplicantEmail are non-empty; email parses
//   - Status transitions follow the automated graph, except manual decisions
//   - CreatedAt is immutable after construction
//
// Concurrent status writes are last-write-wins; the audit trail, not the
// status column, is the authoritative ordered history.
type Application struct {
	ID             id.ApplicationID `json:"id"`
	ApplicantID    id.UserID        `json:"applicant_id"`
	ApplicantName  string           `json:"applicant_name"`
	ApplicantEmail string           `json:"applicant_email"`
	ApplicantPhone string           `json:"applicant_phone"`
	Status         Status           `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// OwnedBy reports whether the application belongs to the given actor, by
// linked account ID or by email match. Used to scope applicant reads.
func (a *Application) OwnedBy(actorID id.UserID, actorEmail string) bool {
	if !a.ApplicantID.IsNil() && a.ApplicantID == actorID {
		return true
	}
	return actorEmail != "" && strings.EqualFold(a.ApplicantEmail, actorEmail)
}

// CanAdvanceTo checks the automated transition and returns a domain error on
// violation. Use ApplyStatus after a nil return.
func (a *Application) CanAdvanceTo(next Status) error {
	if !a.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"cannot move application from "+a.Status.String()+" to "+next.String())
	}
	return nil
}

// ApplyStatus sets the status and bumps the update timestamp.
func (a *Application) ApplyStatus(next Status, now time.Time) {
	a.Status = next
	a.UpdatedAt = now
}

// ApplyManualDecision records a human override. Any status may move to
// approved or flagged; other targets are rejected.
func (a *Application) ApplyManualDecision(next Status, now time.Time) error {
	if next != StatusApproved && next != StatusFlagged {
		return dErrors.New(dErrors.CodeInvalidInput, "manual decision must be approved or flagged")
	}
	a.ApplyStatus(next, now)
	return nil
}

// NewApplication validates applicant fields and constructs an application in
// the submitted state.
func NewApplication(appID id.ApplicationID, applicantID id.UserID, name, email, phone string, now time.Time) (*Application, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)

	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "applicant name is required")
	}
	if len(name) > 256 {
		return nil, dErrors.New(dErrors.CodeValidation, "applicant name must be 256 characters or less")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "applicant email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "applicant email is not a valid address")
	}
	if phone == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "applicant phone is required")
	}

	return &Application{
		ID:             appID,
		ApplicantID:    applicantID,
		ApplicantName:  name,
		ApplicantEmail: email,
		ApplicantPhone: phone,
		Status:         StatusSubmitted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
