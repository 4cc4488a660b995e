package main

import (
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"telegram-cycle-coach/internal/bot"
	"telegram-cycle-coach/internal/config"
	"telegram-cycle-coach/internal/conversation"
	"telegram-cycle-coach/internal/scheduler"
	"telegram-cycle-coach/internal/storage"
)

func main() {
	_ = godotenv.Load() // TELEGRAM_BOT_TOKEN, DATABASE_URL, TIMEZONE, …
	config.SetLogLevel(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	store, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("storage")
	}
	defer store.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram")
	}
	log.Info().Str("bot", api.Self.UserName).Str("tz", cfg.Location.String()).Msg("connected")

	clock := clockwork.NewRealClock()
	engine := conversation.New(store, cfg.Location)
	b := bot.New(api, engine, clock, cfg.AuthorizedChat)

	sched, err := scheduler.Start(scheduler.NewNotifier(store, cfg.Location), clock, b.Deliver)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}
	defer func() { _ = sched.Shutdown() }()

	b.Run()
}
