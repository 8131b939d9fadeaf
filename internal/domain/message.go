package domain

import "time"

// Sender identifies the author of an inbound message.
type Sender struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	IsBot     bool
}

// DisplayName returns the human-readable name used in logs and notices.
func (s Sender) DisplayName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Message is one inbound chat message as seen by the moderation pipeline.
// At most one of Text or StickerEmoji is relevant per classification pass;
// both may be empty (no violation possible).
type Message struct {
	ChatID       int64
	MessageID    int
	From         Sender
	Text         string
	StickerEmoji string
	Edited       bool // edited messages are re-moderated identically to new ones
	Timestamp    time.Time
}

func (m Message) HasSticker() bool { return m.StickerEmoji != "" }
func (m Message) HasText() bool    { return m.Text != "" }
