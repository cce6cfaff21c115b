// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ManuGH/ytaudio/internal/format"
	"github.com/ManuGH/ytaudio/internal/jobs"
)

// Performer is shown as the artist of delivered audio.
const Performer = "YouTube Audio"

// CallbackPrefix marks format selection callbacks. The data is
// "fmt:<tier>:<seq>" where seq names the offer the button belongs to.
const CallbackPrefix = "fmt:"

// chatSink reports one job to one chat.
type chatSink struct {
	c      client
	chatID int64
}

var (
	_ jobs.ResultSink       = (*chatSink)(nil)
	_ jobs.Offerer          = (*chatSink)(nil)
	_ jobs.ProgressReporter = (*chatSink)(nil)
)

func (s *chatSink) Progress(_ context.Context, stage jobs.Stage) {
	switch stage {
	case jobs.StageFetchingMetadata:
		s.c.text(s.chatID, msgFetching)
	case jobs.StageDownloading:
		s.c.text(s.chatID, msgDownloading)
	}
}

func (s *chatSink) Offer(_ context.Context, p jobs.Proposal) {
	text := fmt.Sprintf(msgSelectFormat, escapeMarkdown(p.Descriptor.Title), p.Descriptor.FormattedDuration())
	s.c.markdown(s.chatID, text, offerKeyboard(p.Offers, p.Seq))
}

func (s *chatSink) Delivered(_ context.Context, res jobs.Result) error {
	audio := tgbotapi.NewAudio(s.chatID, tgbotapi.FilePath(res.Path))
	audio.Title = res.Title
	audio.Caption = res.FormatLabel
	audio.Performer = Performer
	audio.Duration = int(res.Descriptor.DurationSeconds)
	if _, err := s.c.m.Send(audio); err != nil {
		s.c.logger.Error().Err(err).Int64("chat_id", s.chatID).Msg("send audio failed")
		s.c.text(s.chatID, msgSendFailed)
		return fmt.Errorf("send audio: %w", err)
	}
	s.c.text(s.chatID, msgDone)
	return nil
}

func (s *chatSink) Failed(_ context.Context, err *jobs.Error) {
	s.c.text(s.chatID, msgErrorPrefix+err.Message)
}

// offerKeyboard puts one tier per row.
func offerKeyboard(offers []format.Offer, seq uint64) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(offers))
	for _, o := range offers {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(o.Label(), callbackData(o.Tier.ID, seq)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func callbackData(tier format.ID, seq uint64) string {
	return CallbackPrefix + string(tier) + ":" + strconv.FormatUint(seq, 10)
}

// parseCallback splits callback data into tier and offer seq. Data without
// a seq, from keyboards sent before seqs existed, yields seq 0.
func parseCallback(data string) (tier string, seq uint64, ok bool) {
	rest, ok := strings.CutPrefix(data, CallbackPrefix)
	if !ok {
		return "", 0, false
	}
	tier, raw, hasSeq := strings.Cut(rest, ":")
	if tier == "" {
		return "", 0, false
	}
	if !hasSeq {
		return tier, 0, true
	}
	seq, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return tier, seq, true
}
