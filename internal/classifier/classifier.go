// Package classifier composes the emoji/sticker matcher and the lexicon
// matcher into a single per-message verdict.
package classifier

import (
	"log/slog"

	"moderbot/internal/domain"
	"moderbot/internal/lexicon"
)

// Classifier implements domain.Classifier.
type Classifier struct {
	lexicon *lexicon.Matcher
	logger  *slog.Logger
}

func New(lex *lexicon.Matcher, logger *slog.Logger) *Classifier {
	return &Classifier{lexicon: lex, logger: logger}
}

// Classify runs the emoji check first; a hit short-circuits the lexicon
// scan. A matched reserved glyph is translated to its descriptive label.
// Lexicon matches report the original un-normalized text, so stored records
// stay human-auditable.
func (c *Classifier) Classify(msg domain.Message) domain.Verdict {
	if ok, content := matchEmoji(msg); ok {
		if content == MiddleFinger {
			content = MiddleFingerLabel
		}
		c.logger.Debug("emoji violation", "chat_id", msg.ChatID, "message_id", msg.MessageID)
		return domain.Violation(content)
	}

	// A sticker message is judged on its glyph alone; only one of text or
	// sticker is relevant per pass.
	if msg.HasSticker() {
		return domain.Clean()
	}

	if c.lexicon.Matches(msg.Text) {
		c.logger.Debug("lexicon violation", "chat_id", msg.ChatID, "message_id", msg.MessageID)
		return domain.Violation(msg.Text)
	}

	return domain.Clean()
}
