// Package bot adapts Telegram transport to the engine: it normalizes
// incoming updates into events and delivers outbound payloads with the
// right reply-keyboard surface.
package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"telegram-cycle-coach/internal/conversation"
	"telegram-cycle-coach/internal/messages"
	"telegram-cycle-coach/internal/models"
)

type Bot struct {
	api        *tgbotapi.BotAPI
	engine     *conversation.Engine
	clock      clockwork.Clock
	authorized int64 // 0 = open
}

func New(api *tgbotapi.BotAPI, engine *conversation.Engine, clock clockwork.Clock, authorized int64) *Bot {
	return &Bot{api: api, engine: engine, clock: clock, authorized: authorized}
}

// Run consumes the long-poll update stream until the channel closes.
func (b *Bot) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	for upd := range b.api.GetUpdatesChan(u) {
		if upd.Message == nil || upd.Message.Text == "" {
			continue
		}
		chatID := upd.Message.Chat.ID
		if b.authorized != 0 && chatID != b.authorized {
			log.Debug().Int64("chat_id", chatID).Msg("ignoring unauthorized chat")
			continue
		}

		out, err := b.engine.Handle(b.clock.Now(), models.Inbound{
			ChatID: chatID,
			Text:   upd.Message.Text,
		})
		if err != nil {
			log.Error().Err(err).Int64("chat_id", chatID).Msg("handling update failed")
			continue
		}
		b.Deliver(out)
	}
}

// Deliver sends outbound payloads; it is also the sink for scheduler output.
func (b *Bot) Deliver(out []models.Outbound) {
	for _, o := range out {
		msg := tgbotapi.NewMessage(o.ChatID, o.Text)
		switch o.Keyboard {
		case models.KeyboardFull:
			msg.ReplyMarkup = fullKeyboard()
		case models.KeyboardPaused:
			msg.ReplyMarkup = pausedKeyboard()
		}
		if _, err := b.api.Send(msg); err != nil {
			log.Error().Err(err).Int64("chat_id", o.ChatID).Msg("send failed")
		}
	}
}

func fullKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(messages.BtnStatus),
			tgbotapi.NewKeyboardButton(messages.BtnCycle),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(messages.BtnLog),
			tgbotapi.NewKeyboardButton(messages.BtnTimes),
			tgbotapi.NewKeyboardButton(messages.BtnDoses),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(messages.BtnSkip),
			tgbotapi.NewKeyboardButton(messages.BtnReset),
			tgbotapi.NewKeyboardButton(messages.BtnPause),
		),
	)
}

func pausedKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(messages.BtnResume),
		),
	)
}
