package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	monitorDomain "github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/domain"
	monitorService "github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/service"
	streamService "github.com/mirrelia/tweet-relay-bot/internal/modules/stream/service"
	"github.com/mirrelia/tweet-relay-bot/internal/shared/config"
	"github.com/samber/lo"
)

// Handler wires the bot commands to the monitor service
type Handler struct {
	cfg      *config.Config
	monitors *monitorService.Service
	manager  *streamService.Manager
}

// New creates a Telegram command handler
func New(cfg *config.Config, monitors *monitorService.Service, manager *streamService.Manager) *Handler {
	return &Handler{
		cfg:      cfg,
		monitors: monitors,
		manager:  manager,
	}
}

// RegisterCommands registers the bot command handlers
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/watch", bot.MatchTypePrefix, h.handleWatch)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/unwatch", bot.MatchTypePrefix, h.handleUnwatch)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/list", bot.MatchTypeExact, h.handleList)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, h.handleStatus)
}

func (h *Handler) checkAuthorization(userID int64) bool {
	if len(h.cfg.AllowedUsers) == 0 {
		return true
	}
	return lo.Contains(h.cfg.AllowedUsers, userID)
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		slog.Error("Failed to send reply", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) authorized(ctx context.Context, b *bot.Bot, update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}
	if !h.checkAuthorization(update.Message.From.ID) {
		h.reply(ctx, b, update.Message.Chat.ID, "❌ You are not authorized to use this bot.")
		return false
	}
	return true
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorized(ctx, b, update) {
		return
	}

	text := `👋 Tweet Relay Bot

I forward tweets from watched accounts into this channel.

Available commands:
/watch <handle> ["pattern"] - Watch an account, optionally filtering tweets by a regular expression
/unwatch <handle> - Stop watching an account
/list - List watched accounts for this channel
/status - Show bot status
/help - Show this help message

Example:
/watch moujaatumare "mildom\.com"`

	h.reply(ctx, b, update.Message.Chat.ID, text)
}

func (h *Handler) handleWatch(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorized(ctx, b, update) {
		return
	}
	chatID := update.Message.Chat.ID

	args, err := splitArgs(update.Message.Text)
	if err != nil || len(args) < 2 {
		h.reply(ctx, b, chatID, "Usage: /watch <handle> [\"pattern\"]\nExample: /watch moujaatumare \"#mildom\"")
		return
	}

	handle := args[1]
	pattern := ""
	if len(args) > 2 {
		pattern = args[2]
	}

	monitor, err := h.monitors.Add(ctx, chatID, handle, pattern)
	if err != nil {
		h.reply(ctx, b, chatID, watchErrorText(handle, pattern, err))
		return
	}

	text := fmt.Sprintf("✅ Now watching @%s", strings.TrimPrefix(handle, "@"))
	if monitor.MatchPattern != "" {
		text += fmt.Sprintf(" (pattern: %q)", monitor.MatchPattern)
	}
	h.reply(ctx, b, chatID, text)
}

func (h *Handler) handleUnwatch(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorized(ctx, b, update) {
		return
	}
	chatID := update.Message.Chat.ID

	args, err := splitArgs(update.Message.Text)
	if err != nil || len(args) < 2 {
		h.reply(ctx, b, chatID, "Usage: /unwatch <handle>")
		return
	}

	handle := args[1]
	if err := h.monitors.Remove(ctx, chatID, handle); err != nil {
		h.reply(ctx, b, chatID, watchErrorText(handle, "", err))
		return
	}

	h.reply(ctx, b, chatID, fmt.Sprintf("✅ Stopped watching @%s", strings.TrimPrefix(handle, "@")))
}

func (h *Handler) handleList(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorized(ctx, b, update) {
		return
	}
	chatID := update.Message.Chat.ID

	watched, err := h.monitors.List(ctx, chatID)
	if err != nil {
		slog.Error("Failed to list monitors", "chat_id", chatID, "error", err)
		h.reply(ctx, b, chatID, "❌ Failed to list watched accounts.")
		return
	}

	if len(watched) == 0 {
		h.reply(ctx, b, chatID, "📭 No accounts watched yet.\nUse /watch to add one.")
		return
	}

	var text strings.Builder
	text.WriteString("📋 Watched accounts:\n\n")
	for i, w := range watched {
		text.WriteString(fmt.Sprintf("%d. @%s", i+1, w.Handle))
		if w.Monitor.MatchPattern != "" {
			text.WriteString(fmt.Sprintf(" (pattern: %q)", w.Monitor.MatchPattern))
		}
		text.WriteString("\n")
	}

	h.reply(ctx, b, chatID, text.String())
}

func (h *Handler) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorized(ctx, b, update) {
		return
	}
	chatID := update.Message.Chat.ID

	state := "idle"
	if h.manager.Streaming() {
		state = "streaming"
	}

	text := fmt.Sprintf(`📊 Bot status:

Stream: %s
Watched accounts: %d
HTTP port: %s`,
		state, len(h.manager.WatchedAccounts()), h.cfg.HTTPPort)

	h.reply(ctx, b, chatID, text)
}

// watchErrorText maps monitor service errors to user-facing messages,
// keeping the error kinds distinguishable.
func watchErrorText(handle, pattern string, err error) string {
	handle = strings.TrimPrefix(handle, "@")
	switch {
	case errors.Is(err, monitorDomain.ErrAccountNotFound):
		return fmt.Sprintf("❌ Account not found: @%s", handle)
	case errors.Is(err, monitorDomain.ErrInvalidPattern):
		return fmt.Sprintf("❌ Invalid match pattern: %q", pattern)
	case errors.Is(err, monitorDomain.ErrAlreadyRegistered):
		return fmt.Sprintf("❌ @%s is already watched in this channel. Use /unwatch first to change its pattern.", handle)
	case errors.Is(err, monitorDomain.ErrNotRegistered):
		return fmt.Sprintf("❌ @%s is not watched in this channel.", handle)
	default:
		slog.Error("Command failed", "handle", handle, "error", err)
		return "❌ Something went wrong, check the logs."
	}
}
