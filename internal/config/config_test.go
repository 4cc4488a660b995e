package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("AUTHORIZED_CHAT_ID", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "bot.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Location.String() != "UTC" {
		t.Errorf("Location = %s", cfg.Location)
	}
	if cfg.AuthorizedChat != 0 {
		t.Errorf("AuthorizedChat = %d", cfg.AuthorizedChat)
	}
}

func TestLoadRejectsMissingToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "token") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadParsesSettings(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/coach")
	t.Setenv("TIMEZONE", "Europe/Berlin")
	t.Setenv("AUTHORIZED_CHAT_ID", "12345")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "postgres://u:p@localhost/coach" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Location.String() != "Europe/Berlin" {
		t.Errorf("Location = %s", cfg.Location)
	}
	if cfg.AuthorizedChat != 12345 {
		t.Errorf("AuthorizedChat = %d", cfg.AuthorizedChat)
	}
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "TIMEZONE") {
		t.Fatalf("err = %v", err)
	}
}
