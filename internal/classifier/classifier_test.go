package classifier

import (
	"log/slog"
	"os"
	"testing"

	"moderbot/internal/domain"
	"moderbot/internal/lexicon"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mustClassifier(t *testing.T) *Classifier {
	t.Helper()
	lex, err := lexicon.New()
	if err != nil {
		t.Fatalf("lexicon: %v", err)
	}
	return New(lex, testLogger())
}

// --- Sticker check ---

func TestClassify_ReservedSticker(t *testing.T) {
	c := mustClassifier(t)

	v := c.Classify(domain.Message{StickerEmoji: MiddleFinger})
	if !v.Violated {
		t.Fatal("expected reserved sticker to violate")
	}
	if v.Offending != MiddleFingerLabel {
		t.Fatalf("expected descriptive label %q, got %q", MiddleFingerLabel, v.Offending)
	}
}

func TestClassify_StickerEqualityIsExact(t *testing.T) {
	c := mustClassifier(t)

	// One scalar away from the reserved glyph (U+1F596, vulcan salute).
	v := c.Classify(domain.Message{StickerEmoji: "\U0001F596"})
	if v.Violated {
		t.Fatalf("near-glyph sticker must not match, got offending %q", v.Offending)
	}
}

// --- Text emoji check ---

func TestClassify_TextualGesture(t *testing.T) {
	c := mustClassifier(t)

	v := c.Classify(domain.Message{Text: "вот тебе (_!_) дружок"})
	if !v.Violated {
		t.Fatal("expected textual gesture to violate")
	}
	if v.Offending != "вот тебе (_!_) дружок" {
		t.Fatalf("expected full original text as offending content, got %q", v.Offending)
	}
}

// --- Precedence ---

func TestClassify_EmojiPrecedesLexicon(t *testing.T) {
	c := mustClassifier(t)

	// Both an emoji hit and a lexicon hit: the emoji stage reports first,
	// carrying the message text.
	text := "мудак (!)"
	v := c.Classify(domain.Message{Text: text})
	if !v.Violated || v.Offending != text {
		t.Fatalf("expected emoji-stage verdict with text %q, got %+v", text, v)
	}
}

func TestClassify_StickerShortCircuitsText(t *testing.T) {
	c := mustClassifier(t)

	// A non-matching sticker must not fall through to the text scan.
	v := c.Classify(domain.Message{StickerEmoji: "\U0001F600", Text: "мудак"})
	if v.Violated {
		t.Fatal("sticker message must be judged on its glyph alone")
	}
}

// --- Lexicon stage ---

func TestClassify_LexiconKeepsOriginalText(t *testing.T) {
	c := mustClassifier(t)

	v := c.Classify(domain.Message{Text: "ты М-У-Д-А-К"})
	if !v.Violated {
		t.Fatal("expected obfuscated profanity to violate")
	}
	if v.Offending != "ты М-У-Д-А-К" {
		t.Fatalf("offending content must be un-normalized, got %q", v.Offending)
	}
}

func TestClassify_CleanText(t *testing.T) {
	c := mustClassifier(t)

	v := c.Classify(domain.Message{Text: "hello world"})
	if v.Violated {
		t.Fatalf("clean text must not violate, got %+v", v)
	}
	if v.Offending != "" {
		t.Fatalf("negative verdict must carry no content, got %q", v.Offending)
	}
}

func TestClassify_EmptyMessage(t *testing.T) {
	c := mustClassifier(t)

	if v := c.Classify(domain.Message{}); v.Violated {
		t.Fatal("message without text or sticker cannot violate")
	}
}
