// Package moderator runs the moderation pipeline for each inbound message:
// sender pre-check, classification, ledger append, removal with a reply
// notice, and escalation.
package moderator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"moderbot/internal/domain"
	"moderbot/internal/metrics"
	"moderbot/internal/policy"
)

// DefaultNotice is the fixed removal notice replied to the offending message.
const DefaultNotice = "Сообщение удалено\nПричина: мат, обсценная лексика.\nУчитесь выражать свои мысли культурно."

// Moderator owns no cross-event state of its own; all durable state lives in
// the ledger. Handlers for different users run in parallel, while per-user
// ledger access stays serialized (see recordViolation).
type Moderator struct {
	classifier domain.Classifier
	ledger     domain.Ledger
	transport  domain.ChatTransport
	policy     *policy.Escalation
	badSender  domain.SenderCheck
	notice     string
	logger     *slog.Logger

	// userLocks serializes append+count per user so the escalation decision
	// always sees a count reflecting every prior violation by that user.
	userLocks sync.Map // user id -> *sync.Mutex
}

type Config struct {
	Classifier domain.Classifier
	Ledger     domain.Ledger
	Transport  domain.ChatTransport
	Policy     *policy.Escalation
	BadSender  domain.SenderCheck // nil = never flags
	Notice     string             // empty = DefaultNotice
	Logger     *slog.Logger
}

func New(cfg Config) *Moderator {
	if cfg.BadSender == nil {
		cfg.BadSender = func(domain.Sender) bool { return false }
	}
	if cfg.Notice == "" {
		cfg.Notice = DefaultNotice
	}
	return &Moderator{
		classifier: cfg.Classifier,
		ledger:     cfg.Ledger,
		transport:  cfg.Transport,
		policy:     cfg.Policy,
		badSender:  cfg.BadSender,
		notice:     cfg.Notice,
		logger:     cfg.Logger,
	}
}

// Run consumes the bus until ctx is cancelled or the bus closes.
func (m *Moderator) Run(ctx context.Context, bus domain.MessageBus) {
	inbound := bus.Subscribe()
	m.logger.Info("moderator loop started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("moderator loop stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			go m.Handle(ctx, msg)
		}
	}
}

// Handle runs the full pipeline for one message. It never returns an error:
// every failure mode is logged and the pipeline continues or stops at a step
// boundary. The worst case is a violation that goes unrecorded, never a
// crash.
func (m *Moderator) Handle(ctx context.Context, msg domain.Message) {
	m.logger.Debug("message received",
		"message_id", msg.MessageID,
		"chat_id", msg.ChatID,
		"edited", msg.Edited,
		"text", msg.Text,
	)
	metrics.MessagesTotal.Inc()

	// Sender pre-check: a flagged sender loses the message outright, with no
	// ledger entry and no escalation.
	if m.badSender(msg.From) {
		m.logger.Info("known bad sender, removing message",
			"user_id", msg.From.ID,
			"name", msg.From.DisplayName(),
		)
		m.deleteMessage(ctx, msg)
		return
	}

	start := time.Now()
	verdict := m.classifier.Classify(msg)
	metrics.ClassifyLatency.Observe(time.Since(start).Seconds())

	if !verdict.Violated {
		return
	}
	metrics.ViolationsTotal.Inc()
	m.logger.Info("violation detected",
		"user_id", msg.From.ID,
		"chat_id", msg.ChatID,
		"message_id", msg.MessageID,
	)

	count := m.recordViolation(ctx, msg, verdict)

	// Best-effort removal and notice: failures are logged, never retried,
	// and never block the escalation step.
	if err := m.transport.SendReply(ctx, msg.ChatID, m.notice, msg.MessageID); err != nil {
		m.logger.Error("notice reply failed", "chat_id", msg.ChatID, "err", err)
		metrics.TransportErrors.Inc()
	}
	m.deleteMessage(ctx, msg)

	decision := m.policy.Evaluate(count)
	if decision.Action != domain.ActionRestrict {
		return
	}

	until := time.Now().Add(decision.For)
	if err := m.transport.RestrictSending(ctx, msg.ChatID, msg.From.ID, until); err != nil {
		m.logger.Error("restrict failed",
			"chat_id", msg.ChatID,
			"user_id", msg.From.ID,
			"err", err,
		)
		metrics.TransportErrors.Inc()
		return
	}
	metrics.RestrictionsTotal.Inc()
	m.logger.Info("user restricted",
		"user_id", msg.From.ID,
		"violations", count,
		"until", until,
	)
}

// recordViolation appends the record and returns the user's resulting total.
// The per-user lock keeps append+count atomic relative to other in-flight
// violations by the same user; violations by different users proceed in
// parallel.
func (m *Moderator) recordViolation(ctx context.Context, msg domain.Message, v domain.Verdict) int {
	mu := m.lockFor(msg.From.ID)
	mu.Lock()
	defer mu.Unlock()

	rec := domain.ViolationRecord{
		UserID:    msg.From.ID,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		IsBot:     msg.From.IsBot,
		Date:      time.Now(),
		Text:      v.Offending,
	}
	if err := m.ledger.Append(ctx, rec); err != nil {
		// A lost record corrupts the escalation count. This is the one
		// failure worth surfacing above transport noise.
		m.logger.Error("ledger append failed, violation NOT recorded",
			"user_id", msg.From.ID,
			"err", err,
		)
		metrics.LedgerErrors.Inc()
	}

	count, err := m.ledger.CountFor(ctx, msg.From.ID)
	if err != nil {
		m.logger.Error("ledger count failed", "user_id", msg.From.ID, "err", err)
		metrics.LedgerErrors.Inc()
		return 0
	}
	return count
}

func (m *Moderator) deleteMessage(ctx context.Context, msg domain.Message) {
	if err := m.transport.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
		m.logger.Error("delete failed",
			"chat_id", msg.ChatID,
			"message_id", msg.MessageID,
			"err", err,
		)
		metrics.TransportErrors.Inc()
	}
}

func (m *Moderator) lockFor(userID int64) *sync.Mutex {
	if mu, ok := m.userLocks.Load(userID); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := m.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// BadSenderFromList builds the default sender pre-check from configured
// display names. An empty list never flags anyone.
func BadSenderFromList(names []string) domain.SenderCheck {
	if len(names) == 0 {
		return func(domain.Sender) bool { return false }
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(s domain.Sender) bool {
		if _, ok := set[s.FirstName]; ok {
			return true
		}
		_, ok := set[s.DisplayName()]
		return ok
	}
}
