// Package scorer produces fraud-risk assessments for an application's
// document set. Two implementations exist: a remote model-backed scorer and a
// deterministic local fallback. Neither mutates application state; they only
// produce suggestions consumed by the decision policy.
package scorer

import (
	"context"

	appmodels "leaseguard/internal/application/models"
	"leaseguard/internal/review"
)

// Applicant is the contact slice of an application the scorers look at.
type Applicant struct {
	Name  string
	Email string
	Phone string
}

// Scorer maps document metadata and applicant contact fields onto a score
// payload. Implementations must return a well-formed result whenever they
// return a nil error.
type Scorer interface {
	Score(ctx context.Context, applicant Applicant, documents []appmodels.Document) (review.ScoreResult, error)
}
