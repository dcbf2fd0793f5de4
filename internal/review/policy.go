package review

import "leaseguard/internal/application/models"

// Decision policy thresholds. A score at or above flagThreshold always flags;
// at or above reviewThreshold always holds for a human.
const (
	flagThreshold   = 0.7
	reviewThreshold = 0.4
)

// NextStatus maps a scorer's output onto the application's next status.
//
// This is pure domain logic - no I/O, no side effects, total over its input
// space. The policy is not persisted; it must be re-derivable from any stored
// review result.
func NextStatus(fraudScore float64, action RecommendedAction) models.Status {
	if action == ActionFlag || fraudScore >= flagThreshold {
		return models.StatusFlagged
	}
	if action == ActionManualReview || fraudScore >= reviewThreshold {
		return models.StatusUnderReview
	}
	return models.StatusApproved
}
