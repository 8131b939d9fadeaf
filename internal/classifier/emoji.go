package classifier

import (
	"strings"

	"moderbot/internal/domain"
)

// MiddleFinger is the reserved banned sticker glyph (U+1F595).
const MiddleFinger = "\U0001F595"

// MiddleFingerLabel replaces the raw glyph in stored records, so the ledger
// never carries the bare surrogate-pair glyph.
const MiddleFingerLabel = "средний палец"

// bannedEmojis are scanned for containment in message text. The ASCII
// entries cover common textual "rude gesture" renderings.
var bannedEmojis = []string{
	MiddleFinger,
	"(_!_)", "(__!__)", "(_!__)", "(__!_)",
	"(!)", "(_?_)", "(_$_)", "(_x_)",
}

// matchEmoji applies two alternative sub-checks, first applicable wins:
// sticker glyph equality against the reserved glyph (exact, no
// normalization), else text containment over the banned set (first hit
// stops the scan).
func matchEmoji(msg domain.Message) (bool, string) {
	if msg.HasSticker() {
		if msg.StickerEmoji == MiddleFinger {
			return true, msg.StickerEmoji
		}
		return false, ""
	}
	if msg.HasText() {
		for _, e := range bannedEmojis {
			if strings.Contains(msg.Text, e) {
				return true, msg.Text
			}
		}
	}
	return false, ""
}
