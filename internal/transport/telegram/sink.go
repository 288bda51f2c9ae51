package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/samber/oops"
)

// Sink delivers relay messages to Telegram chats. The bot instance is
// injected after construction because the bot itself depends on the command
// handler.
type Sink struct {
	bot *bot.Bot
}

// NewSink creates a Telegram destination sink
func NewSink() *Sink {
	return &Sink{}
}

// SetBot sets the Telegram bot instance
func (s *Sink) SetBot(b *bot.Bot) {
	s.bot = b
}

// Send posts one text message to the channel
func (s *Sink) Send(ctx context.Context, channelID int64, text string) error {
	if s.bot == nil {
		return oops.Errorf("telegram bot not initialized")
	}
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: channelID,
		Text:   text,
	})
	if err != nil {
		return oops.With("channel_id", channelID).Wrapf(err, "failed to send message")
	}
	return nil
}
