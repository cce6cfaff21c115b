// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ManuGH/ytaudio/internal/extractor"
	"github.com/ManuGH/ytaudio/internal/jobs"
	"github.com/ManuGH/ytaudio/internal/log"
	"github.com/ManuGH/ytaudio/internal/media"
	"github.com/ManuGH/ytaudio/internal/ratelimit"
)

// IdentityPrefix namespaces chats in the session store.
const IdentityPrefix = "tg:"

// Identity returns the session identity of a chat.
func Identity(chatID int64) string {
	return IdentityPrefix + strconv.FormatInt(chatID, 10)
}

// Jobs is the orchestrator surface the chat flow needs.
type Jobs interface {
	Submit(ctx context.Context, identity, rawURL string, opts jobs.SubmitOptions, sink jobs.ResultSink) error
	Confirm(ctx context.Context, identity, tierID string, seq uint64, sink jobs.ResultSink) error
	Versions(ctx context.Context) []extractor.Version
	MaxBytes() int64
}

// Handler processes Telegram updates.
type Handler struct {
	jobs     Jobs
	client   client
	limiter  *ratelimit.Limiter
	admins   []int64
	username string

	wg sync.WaitGroup
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Jobs      Jobs
	Messenger Messenger
	// Limiter caps URL submissions per chat; nil disables limiting.
	Limiter *ratelimit.Limiter
	Admins  []int64
	// Username strips "@bot" suffixes from commands.
	Username string
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		jobs:     cfg.Jobs,
		client:   client{m: cfg.Messenger, logger: log.WithComponent("telegram")},
		limiter:  cfg.Limiter,
		admins:   cfg.Admins,
		username: cfg.Username,
	}
}

// ServeHTTP acknowledges a webhook delivery at once and processes the update
// in the background.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger := log.WithContext(r.Context(), h.client.logger)
		logger.Warn().Err(err).Msg("undecodable update")
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusOK)

	ctx := context.WithoutCancel(r.Context())
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.HandleUpdate(ctx, update)
	}()
}

// Wait blocks until in-flight updates are handled or ctx ends.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleUpdate dispatches one update. Updates other than text messages and
// callback queries are ignored.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.client.logger.Error().Interface("panic", r).Msg("update handler panicked")
		}
	}()

	switch {
	case update.Message != nil && update.Message.Chat != nil && update.Message.Text != "":
		h.handleMessage(ctx, update.Message.Chat.ID, strings.TrimSpace(update.Message.Text))
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, chatID int64, text string) {
	ctx = log.ContextWithIdentity(ctx, Identity(chatID))
	logger := log.WithContext(ctx, h.client.logger)
	logger.Debug().Str("text", text).Msg("message received")

	switch h.command(text) {
	case "start":
		h.client.text(chatID, msgWelcome)
		return
	case "help":
		help := fmt.Sprintf(msgHelp, media.FormatSize(h.jobs.MaxBytes()))
		if h.isAdmin(chatID) {
			help += msgHelpAdmin
		}
		h.client.markdown(chatID, help, nil)
		return
	case "versions":
		if h.isAdmin(chatID) {
			h.sendVersions(ctx, chatID)
			return
		}
	}

	identity := Identity(chatID)
	if h.limiter != nil && !h.limiter.Allow(identity, "chat") {
		h.client.text(chatID, msgErrorPrefix+jobs.RateLimited().Message)
		return
	}
	sink := &chatSink{c: h.client, chatID: chatID}
	if err := h.jobs.Submit(ctx, identity, text, jobs.SubmitOptions{}, sink); err != nil {
		h.reject(chatID, err)
	}
}

func (h *Handler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	h.client.answer(cq.ID)
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	tier, seq, ok := parseCallback(cq.Data)
	if !ok {
		return
	}
	chatID := cq.Message.Chat.ID
	identity := Identity(chatID)
	ctx = log.ContextWithIdentity(ctx, identity)
	logger := log.WithContext(ctx, h.client.logger)
	logger.Debug().Str("data", cq.Data).Msg("callback received")

	sink := &chatSink{c: h.client, chatID: chatID}
	if err := h.jobs.Confirm(ctx, identity, tier, seq, sink); err != nil {
		h.reject(chatID, err)
	}
}

// reject shows a synchronous rejection to the chat.
func (h *Handler) reject(chatID int64, err error) {
	var jerr *jobs.Error
	if !errors.As(err, &jerr) {
		jerr = jobs.Classify(err)
	}
	if jerr.Kind == jobs.KindValidation {
		h.client.text(chatID, jerr.Message)
		return
	}
	h.client.text(chatID, msgErrorPrefix+jerr.Message)
}

func (h *Handler) sendVersions(ctx context.Context, chatID int64) {
	var b strings.Builder
	b.WriteString(msgVersionsTitle)
	for _, v := range h.jobs.Versions(ctx) {
		if v.Err != nil {
			fmt.Fprintf(&b, "\n%s: unavailable (%v)", v.Tool, v.Err)
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s", v.Tool, v.Version)
	}
	h.client.text(chatID, b.String())
}

// command returns the bot command in text without slash or @username, or "".
func (h *Handler) command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0][1:]
	if name, at, ok := strings.Cut(cmd, "@"); ok {
		if h.username != "" && !strings.EqualFold(at, h.username) {
			return ""
		}
		cmd = name
	}
	return strings.ToLower(cmd)
}

func (h *Handler) isAdmin(chatID int64) bool {
	return slices.Contains(h.admins, chatID)
}
