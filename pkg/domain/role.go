package domain

import dErrors "leaseguard/pkg/domain-errors"

// Role is the authorization role carried by an authenticated actor.
// Invariant: the value must be one of the supported roles.
//
// Usage: construct via ParseRole at the authentication boundary. A
// client-supplied role string is never trusted past that point; direct
// casting bypasses validation.
type Role string

// Supported roles.
const (
	RoleApplicant Role = "applicant"
	RoleReviewer  Role = "reviewer"
	RoleAdmin     Role = "admin"
)

// validRoles is the single source of truth for valid roles.
var validRoles = map[Role]bool{
	RoleApplicant: true,
	RoleReviewer:  true,
	RoleAdmin:     true,
}

// ParseRole constructs a Role from external input (a verified JWT claim).
//
// Errors: returns CodeUnauthorized when the value is empty or unsupported.
// An unknown role is an authentication defect, not a capability question.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "role claim is missing")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "unknown role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// -----------------------------------------------------------------------------
// Capability predicates
// -----------------------------------------------------------------------------

// Capabilities are evaluated per request and fail closed: callers translate a
// false result into an explicit authorization failure, never silent filtering.

// CanCreateApplication reports whether the role may submit a new application.
func (r Role) CanCreateApplication() bool {
	return r == RoleApplicant || r == RoleAdmin
}

// CanListApplications reports whether the role may list all applications.
func (r Role) CanListApplications() bool {
	return r == RoleReviewer || r == RoleAdmin
}

// CanRecordDecision reports whether the role may record a manual decision.
func (r Role) CanRecordDecision() bool {
	return r == RoleReviewer || r == RoleAdmin
}

// CanViewAny reports whether the role may view applications it does not own.
// Applicants are restricted to their own applications; ownership is checked
// against the stored applicant identity by the service layer.
func (r Role) CanViewAny() bool {
	return r == RoleReviewer || r == RoleAdmin
}
