package ledger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"moderbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mustLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := NewSQLite(filepath.Join(t.TempDir(), "ledger.db"), testLogger())
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func record(userID int64, text string) domain.ViolationRecord {
	return domain.ViolationRecord{
		UserID:    userID,
		FirstName: "Ivan",
		LastName:  "Petrov",
		Date:      time.Now(),
		Text:      text,
	}
}

// --- Append + CountFor ---

func TestCountFor_ReflectsAppends(t *testing.T) {
	l := mustLedger(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Append(ctx, record(42, "бля")); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	count, err := l.CountFor(ctx, 42)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}
}

func TestCountFor_UnknownUser(t *testing.T) {
	l := mustLedger(t)

	count, err := l.CountFor(context.Background(), 999)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 for unknown user, got %d", count)
	}
}

// Counts are per user: interleaved violations by other users must not leak.
func TestCountFor_InterleavedUsers(t *testing.T) {
	l := mustLedger(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.Append(ctx, record(1, "мат")); err != nil {
			t.Fatalf("append user 1: %v", err)
		}
		if err := l.Append(ctx, record(2, "мат")); err != nil {
			t.Fatalf("append user 2: %v", err)
		}
		if err := l.Append(ctx, record(2, "мат")); err != nil {
			t.Fatalf("append user 2: %v", err)
		}
	}

	c1, _ := l.CountFor(ctx, 1)
	c2, _ := l.CountFor(ctx, 2)
	if c1 != 5 || c2 != 10 {
		t.Fatalf("expected 5 and 10, got %d and %d", c1, c2)
	}
}

func TestAppend_DefaultsDate(t *testing.T) {
	l := mustLedger(t)
	ctx := context.Background()

	rec := record(7, "мат")
	rec.Date = time.Time{}
	if err := l.Append(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	recs, err := l.ListRecent(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].Date.IsZero() {
		t.Fatalf("expected one record with a date, got %+v", recs)
	}
}

// --- ListRecent ---

func TestListRecent_NewestFirst(t *testing.T) {
	l := mustLedger(t)
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		if err := l.Append(ctx, record(5, text)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recs, err := l.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Text != "third" || recs[1].Text != "second" {
		t.Fatalf("expected newest first, got %q then %q", recs[0].Text, recs[1].Text)
	}
}

func TestListRecent_Empty(t *testing.T) {
	l := mustLedger(t)

	recs, err := l.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}

// --- Persistence across open/close ---

func TestReopen_KeepsRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")
	ctx := context.Background()

	l, err := NewSQLite(path, testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.Append(ctx, record(11, "мат")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	l2, err := NewSQLite(path, testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	count, err := l2.CountFor(ctx, 11)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected persisted record, got count %d", count)
	}
}
