package notify

import (
	"context"
	"time"

	"market-advisor/config"
	"market-advisor/pkg/logger"

	"gopkg.in/telebot.v3"
)

// Notifier delivers analysis summaries to a human channel. Delivery failures are
// reported but never fail the run that produced the summary.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

type telegramNotifier struct {
	bot    *telebot.Bot
	chatID int64
	log    *logger.Logger
}

// NewTelegramNotifier builds a Notifier backed by a Telegram bot. The bot only
// sends messages, it never polls for updates.
func NewTelegramNotifier(cfg *config.TelegramConfig, log *logger.Logger) (Notifier, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.BotToken,
		Offline: false,
		Client:  nil,
	})
	if err != nil {
		return nil, err
	}

	return &telegramNotifier{
		bot:    bot,
		chatID: cfg.ChatID,
		log:    log,
	}, nil
}

func (t *telegramNotifier) Send(ctx context.Context, message string) error {
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(telebot.ChatID(t.chatID), message, telebot.ModeHTML)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		t.log.Warn("Timeout sending telegram notification")
		return context.DeadlineExceeded
	}
}
