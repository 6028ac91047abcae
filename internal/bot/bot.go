// Package bot is the Telegram admin console for managing triggers.
package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/commentbot/internal/metrics"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI the console uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api    Sender
	engine *Engine
	admins map[int64]struct{}
	logger *zap.Logger
}

func New(api Sender, engine *Engine, adminIDs []int64, logger *zap.Logger) *Bot {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	if len(admins) == 0 {
		logger.Warn("No Telegram admin ids configured, the admin bot will not answer anyone")
	}

	return &Bot{
		api:    api,
		engine: engine,
		admins: admins,
		logger: logger,
	}
}

// NewAPI connects to Telegram with token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return api, nil
}

// SetWebhook points Telegram at url for update delivery.
func SetWebhook(api Sender, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

// HandleUpdate processes one update delivered to the admin webhook.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		metrics.AdminUpdates.WithLabelValues("callback").Inc()
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		metrics.AdminUpdates.WithLabelValues("message").Inc()
		b.handleMessage(ctx, update.Message)
	default:
		metrics.AdminUpdates.WithLabelValues("other").Inc()
	}
}

func (b *Bot) isAdmin(user *tgbotapi.User) bool {
	if user == nil {
		return false
	}
	_, ok := b.admins[user.ID]
	return ok
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.Chat == nil {
		return
	}
	if !b.isAdmin(message.From) {
		metrics.AdminUpdates.WithLabelValues("rejected").Inc()
		return
	}
	chatID := message.Chat.ID

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.send(chatID, b.engine.Start(chatID))
		default:
			b.logger.Debug("Unknown admin command", zap.String("command", message.Command()))
		}
		return
	}

	for _, view := range b.engine.HandleText(ctx, chatID, message.Text) {
		b.send(chatID, view)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Answer first so the client stops its progress indicator.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Error("Failed to answer callback query", zap.Error(err), zap.String("query_id", query.ID))
	}

	if !b.isAdmin(query.From) {
		metrics.AdminUpdates.WithLabelValues("rejected").Inc()
		return
	}
	if query.Message == nil || query.Message.Chat == nil {
		return
	}

	action, ok := ParseAction(query.Data)
	if !ok {
		b.logger.Debug("Unknown callback data", zap.String("data", query.Data))
		return
	}

	chatID := query.Message.Chat.ID
	b.edit(chatID, query.Message.MessageID, b.engine.HandleAction(ctx, chatID, action))
}

func keyboard(view View) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(view.Keyboard))
	for _, r := range view.Keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, btn := range r {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Action.Data()))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) send(chatID int64, view View) {
	msg := tgbotapi.NewMessage(chatID, view.Text)
	if len(view.Keyboard) > 0 {
		msg.ReplyMarkup = keyboard(view)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) edit(chatID int64, messageID int, view View) {
	msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, view.Text, keyboard(view))
	if _, err := b.api.Send(msg); err != nil {
		// Pressing the same button twice re-renders identical content.
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		b.logger.Error("Failed to edit message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID))
	}
}
