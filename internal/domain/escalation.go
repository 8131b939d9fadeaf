package domain

import "time"

type EscalationAction string

const (
	ActionNone     EscalationAction = "none"
	ActionRestrict EscalationAction = "restrict"
)

// EscalationDecision is the outcome of evaluating a user's violation count.
// For is meaningful only when Action is ActionRestrict.
type EscalationDecision struct {
	Action EscalationAction
	For    time.Duration
}
