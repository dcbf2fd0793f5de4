package review

import (
	"time"

	id "leaseguard/pkg/domain"
)

// RecommendedAction is the scorer's suggestion for an application.
// It is advisory: only the decision policy and human reviewers change status.
type RecommendedAction string

const (
	ActionApprove      RecommendedAction = "approve"
	ActionFlag         RecommendedAction = "flag"
	ActionManualReview RecommendedAction = "manual_review"
)

var validActions = map[RecommendedAction]bool{
	ActionApprove:      true,
	ActionFlag:         true,
	ActionManualReview: true,
}

// IsValid checks if the action is one of the supported enum values.
func (a RecommendedAction) IsValid() bool {
	return validActions[a]
}

// Severity grades a fraud signal.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// IsValid checks if the severity is one of the supported enum values.
func (s Severity) IsValid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// Signal is a single fraud/risk indicator attached to a review result.
type Signal struct {
	Code           string   `json:"code"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

// Signal codes emitted by the scorers.
const (
	SignalMissingIdentity   = "missing_identity_verification"
	SignalMissingIncome     = "missing_income_verification"
	SignalMissingEmployment = "missing_employment_verification"
	SignalExcessiveDocs     = "excessive_documents"
	SignalSuspiciousSize    = "suspicious_file_size"
	SignalParseError        = "ai_parse_error"
)

// DocumentKind is the category a document is classified into.
type DocumentKind string

const (
	KindID            DocumentKind = "id"
	KindPaystub       DocumentKind = "paystub"
	KindEmployment    DocumentKind = "employment"
	KindBankStatement DocumentKind = "bank_statement"
	KindReference     DocumentKind = "reference"
	KindUnknown       DocumentKind = "unknown"
)

var validKinds = map[DocumentKind]bool{
	KindID:            true,
	KindPaystub:       true,
	KindEmployment:    true,
	KindBankStatement: true,
	KindReference:     true,
	KindUnknown:       true,
}

// IsValid checks if the kind is one of the supported enum values.
func (k DocumentKind) IsValid() bool {
	return validKinds[k]
}

// Classification is a per-document categorization within a review result.
type Classification struct {
	Filename   string       `json:"filename"`
	Kind       DocumentKind `json:"kind"`
	Confidence float64      `json:"confidence"`
}

// ScoreResult is one scoring attempt's payload.
//
// Invariants (enforced by Normalize and the local scorer):
//   - FraudScore and ConfidenceLevel lie in [0,1]
//   - RecommendedAction is a valid enum value
//   - every Signal severity and Classification kind is a valid enum value
type ScoreResult struct {
	FraudScore        float64           `json:"fraud_score"`
	Summary           string            `json:"summary"`
	Notes             string            `json:"notes"`
	Signals           []Signal          `json:"signals"`
	Classifications   []Classification  `json:"document_classifications"`
	RecommendedAction RecommendedAction `json:"recommended_action"`
	ConfidenceLevel   float64           `json:"confidence_level"`
	// AIGenerated distinguishes remote model output from rule-based output
	// (the local fallback and the defaulted parse-failure payload).
	AIGenerated bool `json:"ai_generated"`
}

// ScorerPath records which implementation produced a result.
type ScorerPath string

const (
	PathRemote ScorerPath = "remote"
	PathLocal  ScorerPath = "local"
)

// Result is a persisted review. Append-only: the "current" result for an
// application is the most recently created one.
type Result struct {
	ID            id.ReviewID
	ApplicationID id.ApplicationID
	ScoreResult
	ScorerPath ScorerPath
	CreatedAt  time.Time
}

// clamp bounds v to [0,1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Normalize coerces a decoded payload into a valid ScoreResult: numeric
// fields are clamped into range, unknown enum values default rather than
// reject. Used on remote scorer output, which is untrusted.
func (r *ScoreResult) Normalize() {
	r.FraudScore = clamp(r.FraudScore)
	r.ConfidenceLevel = clamp(r.ConfidenceLevel)
	if !r.RecommendedAction.IsValid() {
		r.RecommendedAction = ActionManualReview
	}
	for i := range r.Signals {
		if !r.Signals[i].Severity.IsValid() {
			r.Signals[i].Severity = SeverityMedium
		}
	}
	for i := range r.Classifications {
		if !r.Classifications[i].Kind.IsValid() {
			r.Classifications[i].Kind = KindUnknown
		}
		r.Classifications[i].Confidence = clamp(r.Classifications[i].Confidence)
	}
}
