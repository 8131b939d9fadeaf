package moderator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"moderbot/internal/classifier"
	"moderbot/internal/domain"
	"moderbot/internal/lexicon"
	"moderbot/internal/policy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeTransport records issued side effects and can fail on demand.
type fakeTransport struct {
	mu         sync.Mutex
	deleted    []int
	replies    []string
	restricted []restriction
	fail       bool
}

type restriction struct {
	userID int64
	until  time.Time
}

func (f *fakeTransport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("transport down")
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTransport) SendReply(ctx context.Context, chatID int64, text string, replyTo int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("transport down")
	}
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakeTransport) RestrictSending(ctx context.Context, chatID int64, userID int64, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("transport down")
	}
	f.restricted = append(f.restricted, restriction{userID: userID, until: until})
	return nil
}

// memLedger is a thread-safe in-memory ledger with failure injection.
type memLedger struct {
	mu         sync.Mutex
	records    []domain.ViolationRecord
	failAppend bool
}

func (l *memLedger) Append(ctx context.Context, rec domain.ViolationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAppend {
		return fmt.Errorf("disk full")
	}
	l.records = append(l.records, rec)
	return nil
}

func (l *memLedger) CountFor(ctx context.Context, userID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, r := range l.records {
		if r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (l *memLedger) Close() error { return nil }

func newModerator(t *testing.T, tr *fakeTransport, led *memLedger, opts ...func(*Config)) *Moderator {
	t.Helper()
	lex, err := lexicon.New()
	if err != nil {
		t.Fatalf("lexicon: %v", err)
	}
	cfg := Config{
		Classifier: classifier.New(lex, testLogger()),
		Ledger:     led,
		Transport:  tr,
		Policy:     policy.New(10, time.Hour),
		Logger:     testLogger(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return New(cfg)
}

func message(userID int64, text string) domain.Message {
	return domain.Message{
		ChatID:    -100,
		MessageID: 555,
		From:      domain.Sender{ID: userID, FirstName: "Ivan"},
		Text:      text,
	}
}

// --- End-to-end scenarios ---

func TestHandle_ProfanityRemovedAndRecorded(t *testing.T) {
	tr := &fakeTransport{}
	led := &memLedger{}
	m := newModerator(t, tr, led)

	m.Handle(context.Background(), message(1, "ты мудак"))

	if len(led.records) != 1 {
		t.Fatalf("expected 1 ledger record, got %d", len(led.records))
	}
	if led.records[0].Text != "ты мудак" {
		t.Fatalf("expected original text recorded, got %q", led.records[0].Text)
	}
	if len(tr.deleted) != 1 || tr.deleted[0] != 555 {
		t.Fatalf("expected message 555 deleted, got %v", tr.deleted)
	}
	if len(tr.replies) != 1 || tr.replies[0] != DefaultNotice {
		t.Fatalf("expected one removal notice, got %v", tr.replies)
	}
	if len(tr.restricted) != 0 {
		t.Fatalf("first violation must not restrict, got %v", tr.restricted)
	}
}

func TestHandle_CleanMessageNoSideEffects(t *testing.T) {
	tr := &fakeTransport{}
	led := &memLedger{}
	m := newModerator(t, tr, led)

	m.Handle(context.Background(), message(1, "hello world"))

	if len(led.records) != 0 || len(tr.deleted) != 0 || len(tr.replies) != 0 || len(tr.restricted) != 0 {
		t.Fatalf("clean message caused side effects: %+v %+v", led.records, tr)
	}
}

func TestHandle_StickerRecordedWithLabel(t *testing.T) {
	tr := &fakeTransport{}
	led := &memLedger{}
	m := newModerator(t, tr, led)

	msg := message(1, "")
	msg.StickerEmoji = classifier.MiddleFinger
	m.Handle(context.Background(), msg)

	if len(led.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(led.records))
	}
	if led.records[0].Text != classifier.MiddleFingerLabel {
		t.Fatalf("expected label %q stored, got %q", classifier.MiddleFingerLabel, led.records[0].Text)
	}
	if len(tr.deleted) != 1 {
		t.Fatalf("expected sticker message deleted, got %v", tr.deleted)
	}
}

func TestHandle_TenthViolationRestricts(t *testing.T) {
	tr := &fakeTransport{}
	led := &memLedger{}
	m := newModerator(t, tr, led)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		m.Handle(ctx, message(1, "бля"))
	}
	if len(tr.restricted) != 0 {
		t.Fatalf("9 violations must not restrict, got %v", tr.restricted)
	}

	before := time.Now()
	m.Handle(ctx, message(1, "бля"))

	if len(tr.restricted) != 1 {
		t.Fatalf("10th violation must restrict, got %v", tr.restricted)
	}
	r := tr.restricted[0]
	if r.userID != 1 {
		t.Fatalf("expected user 1 restricted, got %d", r.userID)
	}
	if until := r.until; until.Before(before.Add(59*time.Minute)) || until.After(before.Add(61*time.Minute)) {
		t.Fatalf("expected ~1h restriction window, got until %v", until)
	}
	// Delete and notice still fire on the escalating violation.
	if len(tr.deleted) != 10 || len(tr.replies) != 10 {
		t.Fatalf("expected 10 deletes and notices, got %d/%d", len(tr.deleted), len(tr.replies))
	}
}

// Restriction re-fires on every violation past the threshold.
func TestHandle_RestrictRefires(t *testing.T) {
	tr := &fakeTransport{}
	led := &memLedger{}
	m := newModerator(t, tr, led)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		m.Handle(ctx, message(1, "бля"))
	}

	if len(tr.restricted) != 3 {
		t.Fatalf("expected restrict on violations 10, 11 and 12, got %d", len(tr.restricted))
	}
}

// --- Failure isolation ---

func TestHandle_TransportFailureStillRecords(t *testing.T) {
	tr := &fakeTransport{fail: true}
	led := &memLedger{}
	m := newModerator(t, tr, led)

	m.Handle(context.Background(), message(1, "бля"))

	if len(led.records) != 1 {
		t.Fatalf("transport failure must not prevent ledger append, got %d records", len(led.records))
	}
}

func TestHandle_LedgerFailureStillRemoves(t *testing.T) {
	tr := &fakeTransport{}
	led := &memLedger{failAppend: true}
	m := newModerator(t, tr, led)

	m.Handle(context.Background(), message(1, "бля"))

	if len(tr.deleted) != 1 || len(tr.replies) != 1 {
		t.Fatalf("ledger failure must not prevent removal, got %d/%d", len(tr.deleted), len(tr.replies))
	}
}

// --- Sender pre-check ---

func TestHandle_BadSenderShortCircuits(t *testing.T) {
	tr := &fakeTransport{}
	led := &memLedger{}
	m := newModerator(t, tr, led, func(c *Config) {
		c.BadSender = BadSenderFromList([]string{"Ivan"})
	})

	m.Handle(context.Background(), message(1, "hello world"))

	if len(tr.deleted) != 1 {
		t.Fatalf("bad sender message must be deleted, got %v", tr.deleted)
	}
	if len(led.records) != 0 || len(tr.replies) != 0 || len(tr.restricted) != 0 {
		t.Fatal("bad sender handling must skip ledger, notice and escalation")
	}
}

func TestBadSenderFromList_EmptyNeverFlags(t *testing.T) {
	check := BadSenderFromList(nil)
	if check(domain.Sender{FirstName: "anyone"}) {
		t.Fatal("empty list must never flag")
	}
}

// --- Concurrency ---

// N concurrent violations by the same user must yield exactly N records and
// a correct final count; interleaved other-user traffic must not disturb it.
func TestHandle_ConcurrentSameUser(t *testing.T) {
	tr := &fakeTransport{}
	led := &memLedger{}
	m := newModerator(t, tr, led)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Handle(ctx, message(1, "бля"))
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Handle(ctx, message(2, "бля"))
		}()
	}
	wg.Wait()

	c1, _ := led.CountFor(ctx, 1)
	c2, _ := led.CountFor(ctx, 2)
	if c1 != n || c2 != n {
		t.Fatalf("expected %d violations per user, got %d and %d", n, c1, c2)
	}
	// Violations 10..20 restrict: 11 times per user.
	if len(tr.restricted) != 2*(n-9) {
		t.Fatalf("expected %d restrictions, got %d", 2*(n-9), len(tr.restricted))
	}
}
