package domain

// Verdict is the classifier output for a single message.
// Offending is non-empty if and only if Violated is true.
type Verdict struct {
	Violated  bool
	Offending string // human-readable offending content, stored in the ledger
}

// Violation builds a positive verdict carrying the offending content.
func Violation(content string) Verdict {
	return Verdict{Violated: true, Offending: content}
}

// Clean builds a negative verdict.
func Clean() Verdict { return Verdict{} }

// Classifier decides whether a message violates the obscenity policy.
type Classifier interface {
	Classify(msg Message) Verdict
}

// SenderCheck is a pluggable bad-sender predicate evaluated before
// classification. A positive result removes the message outright with no
// ledger entry and no escalation.
type SenderCheck func(s Sender) bool
