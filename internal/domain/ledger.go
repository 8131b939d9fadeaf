package domain

import (
	"context"
	"time"
)

// ViolationRecord is one confirmed violation. Records are created once,
// appended, and never mutated or deleted.
type ViolationRecord struct {
	ID        int64
	UserID    int64
	FirstName string
	LastName  string
	IsBot     bool
	Date      time.Time
	Text      string // offending content; sticker glyphs already translated to a label
}

// Ledger is the append-only violation store. Append is the sole mutator.
// CountFor must reflect every Append that returned before the call
// (read-your-writes within the process); callers are responsible for
// serializing Append+CountFor per user.
type Ledger interface {
	Append(ctx context.Context, rec ViolationRecord) error
	CountFor(ctx context.Context, userID int64) (int, error)
	Close() error
}
