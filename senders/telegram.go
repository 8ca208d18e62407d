package senders

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

type telegramSender struct {
	base
	serverURL string

	mu  sync.Mutex
	bot *tgbot.Bot
}

func (t *telegramSender) Available() bool {
	return t.cfg.Telegram.BotToken != ""
}

// Send posts an HTML-formatted message to a chat. Subject is unused; Telegram
// messages carry their title in the body.
func (t *telegramSender) Send(ctx context.Context, subject, body, chatID string) (string, error) {
	timeout := time.Duration(t.cfg.Telegram.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bot, err := t.getBot()
	if err != nil {
		return "", err
	}

	msg, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      body,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		t.log.Sugar().Warnw("telegram send failed", "chat_id", chatID, "err", err)
		return "", err
	}
	return strconv.Itoa(msg.ID), nil
}

// getBot builds the client on first use. Construction calls getMe, so a
// failure here is retried on the next send.
func (t *telegramSender) getBot() (*tgbot.Bot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}

	opts := []tgbot.Option{
		tgbot.WithHTTPClient(time.Minute, t.client()),
	}
	if t.serverURL != "" {
		opts = append(opts, tgbot.WithServerURL(t.serverURL))
	}

	bot, err := tgbot.New(t.cfg.Telegram.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	t.bot = bot
	return bot, nil
}
