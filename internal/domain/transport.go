package domain

import (
	"context"
	"time"
)

// ChatTransport issues moderation side effects to the chat platform.
// Every call is best-effort from the moderator's perspective: failures are
// logged by the caller, never retried, and never abort the pipeline.
type ChatTransport interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendReply(ctx context.Context, chatID int64, text string, replyTo int) error

	// RestrictSending revokes the user's send-message capability in the chat
	// until the given time. Read access stays intact.
	RestrictSending(ctx context.Context, chatID int64, userID int64, until time.Time) error
}
