// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package telegram adapts chat updates to download jobs and delivers the
// results back to the chat.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ytaudio/internal/log"
)

// WebhookPath is the route Telegram posts updates to.
const WebhookPath = "/webhook"

// Messenger is the subset of *tgbotapi.BotAPI the adapter uses.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// NewBot authenticates against the Bot API.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	logger := log.WithComponent("telegram")
	logger.Info().Str("username", bot.Self.UserName).Msg("bot authenticated")
	return bot, nil
}

// RegisterWebhook points the bot at baseURL + WebhookPath.
func RegisterWebhook(ctx context.Context, m Messenger, baseURL string) error {
	link := strings.TrimRight(baseURL, "/") + WebhookPath
	wh, err := tgbotapi.NewWebhook(link)
	if err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}
	if _, err := m.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	logger := log.WithContext(ctx, log.WithComponent("telegram"))
	logger.Info().Str("url", link).Msg("webhook registered")
	return nil
}

// client wraps a Messenger with logging; send failures never reach callers
// that cannot act on them.
type client struct {
	m      Messenger
	logger zerolog.Logger
}

func (c client) text(chatID int64, text string) {
	c.send(tgbotapi.NewMessage(chatID, text))
}

func (c client) markdown(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	c.send(msg)
}

func (c client) send(msg tgbotapi.Chattable) {
	if _, err := c.m.Send(msg); err != nil {
		c.logger.Error().Err(err).Msg("telegram send failed")
	}
}

func (c client) answer(callbackID string) {
	if _, err := c.m.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		c.logger.Warn().Err(err).Msg("answer callback failed")
	}
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "[", `\[`, "`", "\\`")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
