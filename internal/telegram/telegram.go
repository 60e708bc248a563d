// Package telegram delivers notifications to a Telegram chat. Each
// notification ID maps to at most one chat message: presenting an ID again
// edits the existing message, and the Dismiss button under every message
// reports dismissals back to the coordinator.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"newswatch/internal/notify"
)

const dismissAction = "dismiss"

// sendInterval paces outgoing messages under the Bot API flood limit.
const sendInterval = 50 * time.Millisecond

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// DismissFunc receives the notification ID of a dismissed message.
type DismissFunc func(notificationID string)

type Channel struct {
	api       telegramAPI
	chatID    int64
	limiter   *rate.Limiter
	onDismiss DismissFunc
	log       *slog.Logger

	mu       sync.Mutex
	messages map[string]int // notification ID -> chat message ID
}

func New(token string, chatID int64, log *slog.Logger) (*Channel, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram api: %w", err)
	}
	log.Info("telegram bot authorized", "username", api.Self.UserName)
	return newChannel(api, chatID, log), nil
}

func newChannel(api telegramAPI, chatID int64, log *slog.Logger) *Channel {
	return &Channel{
		api:      api,
		chatID:   chatID,
		limiter:  rate.NewLimiter(rate.Every(sendInterval), 1),
		log:      log,
		messages: make(map[string]int),
	}
}

// OnDismiss registers the dismissal handler. Register before Run.
func (ch *Channel) OnDismiss(fn DismissFunc) {
	ch.onDismiss = fn
}

// Available reports whether the channel is configured to deliver.
func (ch *Channel) Available() bool {
	return ch.api != nil && ch.chatID != 0
}

// Present sends the notification to the chat. A notification ID that is
// already on screen is edited in place so the chat never stacks duplicates.
func (ch *Channel) Present(ctx context.Context, n notify.Notification) error {
	if !ch.Available() {
		return notify.ErrUnavailable
	}
	if err := ch.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	text := n.Title + "\n\n" + n.Message
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Dismiss", dismissAction+":"+n.ID),
		),
	)

	ch.mu.Lock()
	messageID, exists := ch.messages[n.ID]
	ch.mu.Unlock()

	if exists {
		edit := tgbotapi.NewEditMessageText(ch.chatID, messageID, text)
		edit.ReplyMarkup = &keyboard
		if _, err := ch.api.Send(edit); err != nil {
			return fmt.Errorf("edit notification: %w", err)
		}
		return nil
	}

	msg := tgbotapi.NewMessage(ch.chatID, text)
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = keyboard
	sent, err := ch.api.Send(msg)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	ch.mu.Lock()
	ch.messages[n.ID] = sent.MessageID
	ch.mu.Unlock()
	return nil
}

// Speak delivers one narration chunk as a plain chat message.
func (ch *Channel) Speak(ctx context.Context, text string) error {
	if !ch.Available() {
		return notify.ErrUnavailable
	}
	if err := ch.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	msg := tgbotapi.NewMessage(ch.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := ch.api.Send(msg); err != nil {
		return fmt.Errorf("send narration: %w", err)
	}
	return nil
}

// Run consumes Telegram updates until ctx is cancelled, routing Dismiss
// button presses to the registered handler.
func (ch *Channel) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60

	updates := ch.api.GetUpdatesChan(cfg)
	ch.log.Info("listening for telegram updates")

	for {
		select {
		case <-ctx.Done():
			ch.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.CallbackQuery != nil {
				ch.handleCallback(update.CallbackQuery)
			}
		}
	}
}

func (ch *Channel) handleCallback(cb *tgbotapi.CallbackQuery) {
	// Acknowledge first so the client stops its spinner.
	if _, err := ch.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		ch.log.Error("answer callback", "error", err)
	}

	action, id, ok := strings.Cut(cb.Data, ":")
	if !ok || action != dismissAction {
		ch.log.Debug("ignoring callback", "data", cb.Data)
		return
	}

	ch.mu.Lock()
	messageID, exists := ch.messages[id]
	if exists {
		delete(ch.messages, id)
	}
	ch.mu.Unlock()

	if exists {
		if _, err := ch.api.Request(tgbotapi.NewDeleteMessage(ch.chatID, messageID)); err != nil {
			ch.log.Error("delete dismissed message", "message_id", messageID, "error", err)
		}
	}

	ch.log.Info("notification dismissed", "notification_id", id, "user_id", cb.From.ID)
	if ch.onDismiss != nil {
		ch.onDismiss(id)
	}
}
