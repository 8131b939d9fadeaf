// Package policy maps a user's violation count to a moderation action.
package policy

import (
	"time"

	"moderbot/internal/domain"
)

const (
	DefaultThreshold = 10

	// DefaultRestrictFor is the send-permission revocation window. The value
	// is deliberately explicit and configurable; there is no auto-unban logic
	// of our own, the chat platform lifts the restriction when it expires.
	DefaultRestrictFor = time.Hour
)

// Escalation is a pure function of the violation count. Counts are never
// reset, so the restrict action re-fires on every violation at or above the
// threshold; repeat offenders get re-restricted each time.
type Escalation struct {
	threshold   int
	restrictFor time.Duration
}

func New(threshold int, restrictFor time.Duration) *Escalation {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if restrictFor <= 0 {
		restrictFor = DefaultRestrictFor
	}
	return &Escalation{threshold: threshold, restrictFor: restrictFor}
}

func (e *Escalation) Threshold() int { return e.threshold }

// Evaluate returns the action for a user whose violation count is count.
func (e *Escalation) Evaluate(count int) domain.EscalationDecision {
	if count >= e.threshold {
		return domain.EscalationDecision{Action: domain.ActionRestrict, For: e.restrictFor}
	}
	return domain.EscalationDecision{Action: domain.ActionNone}
}
