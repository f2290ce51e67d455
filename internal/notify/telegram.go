package notify

import (
	"context"
	"fmt"
	"time"

	tb "gopkg.in/tucnak/telebot.v2"

	applogger "StockPulse/pkg/logger"
)

// Telegram sends alerts to a single chat. The bot never polls; it is used
// strictly as an outbound channel.
type Telegram struct {
	bot  *tb.Bot
	chat *tb.Chat
	l    *applogger.Logger
}

func NewTelegram(token, chatID string, l *applogger.Logger) (*Telegram, error) {
	bot, err := tb.NewBot(tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	chat, err := bot.ChatByID(chatID)
	if err != nil {
		return nil, fmt.Errorf("telegram chat %s: %w", chatID, err)
	}
	return &Telegram{bot: bot, chat: chat, l: l}, nil
}

func (t *Telegram) Notify(_ context.Context, subject, body string) error {
	_, err := t.bot.Send(t.chat, fmt.Sprintf("*%s*\n%s", subject, body), tb.ModeMarkdown)
	if err != nil {
		if t.l != nil {
			t.l.Error("telegram send failed",
				applogger.String("subject", subject),
				applogger.Error(err),
			)
		}
		return err
	}
	return nil
}
