package scorer

import (
	"context"
	"fmt"
	"math"
	"strings"

	appmodels "leaseguard/internal/application/models"
	"leaseguard/internal/review"
)

// Heuristic thresholds for the local scorer.
const (
	maxReasonableDocs = 6
	minPlausibleBytes = 5000

	baseScore        = 0.1
	highSignalWeight = 0.25
	medSignalWeight  = 0.1
	maxScore         = 0.95
)

// kindKeywords drives filename classification. First match wins in the
// order below, so more specific kinds are checked before generic ones.
var kindOrder = []review.DocumentKind{
	review.KindBankStatement,
	review.KindPaystub,
	review.KindEmployment,
	review.KindID,
	review.KindReference,
}

var kindKeywords = map[review.DocumentKind][]string{
	review.KindID:            {"passport", "license", "licence", "id_card", "idcard", "national_id", "drivers"},
	review.KindPaystub:       {"paystub", "pay_stub", "payslip", "pay_slip", "salary", "wage"},
	review.KindEmployment:    {"employment", "offer_letter", "offer", "contract", "employer"},
	review.KindBankStatement: {"bank", "statement"},
	review.KindReference:     {"reference", "landlord", "recommendation"},
}

// kindConfidence is the fixed confidence assigned per match type.
var kindConfidence = map[review.DocumentKind]float64{
	review.KindID:            0.85,
	review.KindPaystub:       0.8,
	review.KindEmployment:    0.75,
	review.KindBankStatement: 0.8,
	review.KindReference:     0.7,
	review.KindUnknown:       0.3,
}

// LocalScorer is the deterministic, no-network fallback. It never fails:
// Score always returns a well-formed result and a nil error.
type LocalScorer struct{}

func NewLocalScorer() *LocalScorer {
	return &LocalScorer{}
}

// classify maps a filename onto a document kind by keyword match.
func classify(filename string) review.DocumentKind {
	lower := strings.ToLower(filename)
	for _, kind := range kindOrder {
		for _, kw := range kindKeywords[kind] {
			if strings.Contains(lower, kw) {
				return kind
			}
		}
	}
	return review.KindUnknown
}

// Score classifies each document by filename keyword, emits signals for
// missing verification categories and suspicious shapes, and derives the
// fraud score as min(0.95, 0.1 + 0.25*high + 0.1*medium).
func (s *LocalScorer) Score(_ context.Context, applicant Applicant, documents []appmodels.Document) (review.ScoreResult, error) {
	classifications := make([]review.Classification, 0, len(documents))
	present := map[review.DocumentKind]bool{}
	var tinyFiles int

	for _, doc := range documents {
		kind := classify(doc.Filename)
		present[kind] = true
		classifications = append(classifications, review.Classification{
			Filename:   doc.Filename,
			Kind:       kind,
			Confidence: kindConfidence[kind],
		})
		if doc.SizeBytes < minPlausibleBytes {
			tinyFiles++
		}
	}

	var signals []review.Signal

	if !present[review.KindID] {
		signals = append(signals, review.Signal{
			Code:           review.SignalMissingIdentity,
			Severity:       review.SeverityHigh,
			Description:    "No identity document was provided",
			Recommendation: "Request a government-issued ID before proceeding",
		})
	}
	if !present[review.KindPaystub] && !present[review.KindBankStatement] {
		signals = append(signals, review.Signal{
			Code:           review.SignalMissingIncome,
			Severity:       review.SeverityHigh,
			Description:    "No income verification document was provided",
			Recommendation: "Request recent paystubs or bank statements",
		})
	}
	if !present[review.KindEmployment] {
		signals = append(signals, review.Signal{
			Code:           review.SignalMissingEmployment,
			Severity:       review.SeverityMedium,
			Description:    "No employment verification document was provided",
			Recommendation: "Request an offer letter or employment contract",
		})
	}
	if len(documents) > maxReasonableDocs {
		signals = append(signals, review.Signal{
			Code:           review.SignalExcessiveDocs,
			Severity:       review.SeverityLow,
			Description:    fmt.Sprintf("%d documents submitted; more than %d is unusual", len(documents), maxReasonableDocs),
			Recommendation: "Check for padding or duplicate uploads",
		})
	}
	if tinyFiles > 0 {
		signals = append(signals, review.Signal{
			Code:           review.SignalSuspiciousSize,
			Severity:       review.SeverityMedium,
			Description:    fmt.Sprintf("%d document(s) smaller than %d bytes", tinyFiles, minPlausibleBytes),
			Recommendation: "Verify the files are legible, complete documents",
		})
	}

	high := countSeverity(signals, review.SeverityHigh)
	medium := countSeverity(signals, review.SeverityMedium)

	score := math.Min(maxScore, baseScore+highSignalWeight*float64(high)+medSignalWeight*float64(medium))

	var action review.RecommendedAction
	switch {
	case high >= 2 || score >= 0.7:
		action = review.ActionFlag
	case high >= 1 || medium >= 2:
		action = review.ActionManualReview
	default:
		action = review.ActionApprove
	}

	return review.ScoreResult{
		FraudScore:        score,
		Summary:           summarize(applicant, len(documents), high, medium),
		Signals:           signals,
		Classifications:   classifications,
		RecommendedAction: action,
		ConfidenceLevel:   meanConfidence(classifications),
		AIGenerated:       false,
	}, nil
}

func countSeverity(signals []review.Signal, severity review.Severity) int {
	n := 0
	for _, s := range signals {
		if s.Severity == severity {
			n++
		}
	}
	return n
}

func meanConfidence(classifications []review.Classification) float64 {
	if len(classifications) == 0 {
		return 0.5
	}
	var sum float64
	for _, c := range classifications {
		sum += c.Confidence
	}
	return sum / float64(len(classifications))
}

func summarize(applicant Applicant, docs, high, medium int) string {
	if high == 0 && medium == 0 {
		return fmt.Sprintf("Rule-based screen of %d document(s) for %s found no risk signals", docs, applicant.Name)
	}
	return fmt.Sprintf("Rule-based screen of %d document(s) for %s found %d high and %d medium severity signal(s)",
		docs, applicant.Name, high, medium)
}
