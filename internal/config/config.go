// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/example/guild-audit-bot/internal/timewindow"
)

// Config holds runtime configuration loaded from the environment.
type Config struct {
	BotToken   string
	APIBaseURL string

	LedgerDriver string
	LedgerDSN    string

	// Book keys select the ledger book each feature writes to.
	VoiceLogBook   string
	NotifyBook     string
	IgnoreListBook string
	DirectoryBook  string

	// DayRollover is the time of day before which a voice-log event is still
	// attributed to the previous civil date.
	DayRollover time.Time

	LogLevel string
}

// FromEnv loads configuration from environment variables. BOT_TOKEN is
// required; everything else has a usable default. LEDGER_DRIVER selects
// "sqlite" (default, local file) or "pgx" (hosted Postgres), with LEDGER_DSN
// as the matching connection string.
func FromEnv() (*Config, error) {
	c := &Config{
		BotToken:       os.Getenv("BOT_TOKEN"),
		APIBaseURL:     os.Getenv("CHAT_API_BASE_URL"),
		LedgerDriver:   os.Getenv("LEDGER_DRIVER"),
		LedgerDSN:      os.Getenv("LEDGER_DSN"),
		VoiceLogBook:   os.Getenv("VOICE_LOG_BOOK"),
		NotifyBook:     os.Getenv("NOTIFY_BOOK"),
		IgnoreListBook: os.Getenv("IGNORE_LIST_BOOK"),
		DirectoryBook:  os.Getenv("DIRECTORY_BOOK"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
	}
	if c.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is not set")
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = "https://chat.example.com/api"
	}
	if c.LedgerDriver == "" {
		c.LedgerDriver = "sqlite"
	}
	if c.LedgerDriver != "sqlite" && c.LedgerDriver != "pgx" {
		return nil, fmt.Errorf("unsupported LEDGER_DRIVER %q", c.LedgerDriver)
	}
	if c.LedgerDSN == "" {
		if c.LedgerDriver == "sqlite" {
			c.LedgerDSN = "ledger.db"
		} else {
			return nil, errors.New("LEDGER_DSN is not set")
		}
	}
	if c.VoiceLogBook == "" {
		c.VoiceLogBook = "voice-log"
	}
	if c.NotifyBook == "" {
		c.NotifyBook = "notify"
	}
	if c.IgnoreListBook == "" {
		c.IgnoreListBook = "ignore-list"
	}
	if c.DirectoryBook == "" {
		c.DirectoryBook = "directory"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	rollover := os.Getenv("VOICE_LOG_DAY_ROLLOVER")
	if rollover == "" {
		rollover = "00:00:00"
	}
	boundary, err := timewindow.ParseBoundary(rollover)
	if err != nil {
		return nil, fmt.Errorf("VOICE_LOG_DAY_ROLLOVER: %w", err)
	}
	c.DayRollover = boundary

	return c, nil
}
