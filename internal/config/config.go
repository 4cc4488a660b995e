// Package config resolves the environment-level settings: bot token,
// database DSN, display time zone and the optional single-operator lock.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const tokenSecretPath = "/run/secrets/telegram_bot_token"

type Config struct {
	TelegramToken  string
	DatabaseURL    string         // postgres:// DSN or a sqlite file path
	Location       *time.Location // all slot times and dates are local to this
	AuthorizedChat int64          // 0 = open to any chat
}

func Load() (Config, error) {
	cfg := Config{
		TelegramToken: botToken(),
		DatabaseURL:   envOr("DATABASE_URL", "bot.db"),
	}
	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("bot token missing: set TELEGRAM_BOT_TOKEN or mount %s", tokenSecretPath)
	}

	tz := envOr("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return cfg, fmt.Errorf("bad TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	if raw := strings.TrimSpace(os.Getenv("AUTHORIZED_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("bad AUTHORIZED_CHAT_ID %q: %w", raw, err)
		}
		cfg.AuthorizedChat = id
	}

	return cfg, nil
}

// botToken prefers the Docker secret over the environment variable.
func botToken() string {
	if data, err := os.ReadFile(tokenSecretPath); err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token
		}
	}
	return strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// SetLogLevel configures the global zerolog level from LOG_LEVEL.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
