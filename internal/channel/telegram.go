// Package channel connects the moderation pipeline to the chat platform.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"moderbot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pollTimeoutSeconds = 30

// Telegram long-polls the Bot API for updates and publishes group messages
// inbound. It also implements domain.ChatTransport for the moderator's side
// effects (delete, notice reply, restriction).
type Telegram struct {
	token  string
	bot    *tgbotapi.BotAPI
	bus    domain.MessageBus
	logger *slog.Logger
}

type TelegramConfig struct {
	Token  string
	Logger *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	return &Telegram{token: cfg.Token, logger: cfg.Logger}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and polls until ctx is cancelled.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(update)
		}
	}
}

// Stop is a no-op: the bot stops when Start's context is cancelled, and
// StopReceivingUpdates panics when called twice.
func (t *Telegram) Stop() error { return nil }

// handleUpdate extracts the message (new or edited, both moderated
// identically) and publishes it inbound. Updates carrying neither are
// dropped at diagnostic level.
func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		msg = update.EditedMessage
	}
	if msg == nil {
		t.logger.Debug("update without message or edited message", "update_id", update.UpdateID)
		return
	}
	if msg.From == nil || msg.Chat == nil {
		return
	}

	inbound := domain.Message{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		From: domain.Sender{
			ID:        msg.From.ID,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
			Username:  msg.From.UserName,
			IsBot:     msg.From.IsBot,
		},
		Text:      msg.Text,
		Edited:    update.EditedMessage != nil,
		Timestamp: time.Unix(int64(msg.Date), 0),
	}
	if msg.Sticker != nil {
		inbound.StickerEmoji = msg.Sticker.Emoji
	}

	t.bus.Publish(inbound)
}

// --- domain.ChatTransport ---

func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("telegram delete message: %w", err)
	}
	return nil
}

func (t *Telegram) SendReply(ctx context.Context, chatID int64, text string, replyTo int) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send reply: %w", err)
	}
	return nil
}

// RestrictSending revokes the user's send-message permission until the given
// time. All other member permissions stay intact, so the user keeps reading.
func (t *Telegram) RestrictSending(ctx context.Context, chatID int64, userID int64, until time.Time) error {
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
		UntilDate: until.Unix(),
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages: false,
		},
	}
	if _, err := t.bot.Request(cfg); err != nil {
		return fmt.Errorf("telegram restrict user: %w", err)
	}
	return nil
}
