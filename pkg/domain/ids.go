package domain

import (
	"github.com/google/uuid"

	dErrors "leaseguard/pkg/domain-errors"
)

// Typed UUID wrappers prevent cross-entity ID mixups at compile time.
// Invariant: IDs must be valid, non-empty, non-nil UUIDs. Construct via the
// Parse helpers at trust boundaries; direct casting bypasses validation.
type (
	// ApplicationID identifies a rental application aggregate.
	ApplicationID uuid.UUID

	// DocumentID identifies a document attached to an application.
	DocumentID uuid.UUID

	// ReviewID identifies a single scoring attempt's stored result.
	ReviewID uuid.UUID

	// UserID identifies an authenticated account.
	UserID uuid.UUID
)

func parseUUID(s, entity string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, entity+" id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+entity+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, entity+" id cannot be nil")
	}
	return u, nil
}

// ParseApplicationID constructs an ApplicationID from external input.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s, "application")
	if err != nil {
		return ApplicationID{}, err
	}
	return ApplicationID(u), nil
}

// ParseDocumentID constructs a DocumentID from external input.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document")
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID(u), nil
}

// ParseReviewID constructs a ReviewID from external input.
func ParseReviewID(s string) (ReviewID, error) {
	u, err := parseUUID(s, "review")
	if err != nil {
		return ReviewID{}, err
	}
	return ReviewID(u), nil
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user")
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

func (i ApplicationID) String() string { return uuid.UUID(i).String() }
func (i DocumentID) String() string    { return uuid.UUID(i).String() }
func (i ReviewID) String() string      { return uuid.UUID(i).String() }
func (i UserID) String() string        { return uuid.UUID(i).String() }

// IsNil reports whether the ID is the zero UUID.
func (i ApplicationID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i DocumentID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i ReviewID) IsNil() bool      { return uuid.UUID(i) == uuid.Nil }
func (i UserID) IsNil() bool        { return uuid.UUID(i) == uuid.Nil }

// Text marshaling renders IDs as canonical UUID strings in JSON bodies.
// Unmarshaling goes through the Parse helpers so decoded IDs are validated.

func (i ApplicationID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }
func (i DocumentID) MarshalText() ([]byte, error)    { return []byte(i.String()), nil }
func (i ReviewID) MarshalText() ([]byte, error)      { return []byte(i.String()), nil }
func (i UserID) MarshalText() ([]byte, error)        { return []byte(i.String()), nil }

func (i *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := ParseApplicationID(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func (i *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func (i *ReviewID) UnmarshalText(b []byte) error {
	parsed, err := ParseReviewID(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func (i *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
