// Package config handles application configuration from a YAML file and
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "NEWSWATCH_CONFIG"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
	databasePathEnv  = "DATABASE_PATH"
	listenAddrEnv    = "LISTEN_ADDR"
	logLevelEnv      = "LOG_LEVEL"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr        string          `yaml:"listen_addr"`
	DatabasePath      string          `yaml:"database_path"`
	LogLevel          string          `yaml:"log_level"`
	RefreshSeconds    int             `yaml:"refresh_seconds"`
	BlackoutStartHour int             `yaml:"blackout_start_hour"`
	BlackoutEndHour   int             `yaml:"blackout_end_hour"`
	MaxEntriesPerFeed int             `yaml:"max_entries_per_feed"`
	Telegram          TelegramConfig  `yaml:"telegram"`
	Narration         NarrationConfig `yaml:"narration"`
	Feeds             []FeedConfig    `yaml:"feeds"`
}

// TelegramConfig wires the notification channel. The bot token is read from
// the environment only, never from the file.
type TelegramConfig struct {
	BotToken string `yaml:"-"`
	ChatID   int64  `yaml:"chat_id"`
}

// NarrationConfig controls the spoken-news pass.
type NarrationConfig struct {
	IncludeSummary bool `yaml:"include_summary"`
	PauseSeconds   int  `yaml:"pause_seconds"`
}

// FeedConfig is a feed subscription declared in the config file. It seeds
// the subscription store on first start.
type FeedConfig struct {
	Name       string `yaml:"name"`
	URL        string `yaml:"url"`
	MaxEntries int    `yaml:"max_entries"`
}

// Load builds the configuration from defaults, the YAML file named by
// NEWSWATCH_CONFIG (if set), and environment overrides, in that order.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		// Unmarshal over the defaults: absent keys keep their default value.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Telegram.BotToken = os.Getenv(telegramTokenEnv)
	if v := os.Getenv(telegramChatEnv); v != "" {
		chatID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", telegramChatEnv, v, err)
		}
		cfg.Telegram.ChatID = chatID
	}
	if v := os.Getenv(databasePathEnv); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv(listenAddrEnv); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() Config {
	return Config{
		ListenAddr:        ":8080",
		DatabasePath:      "./data/newswatch.db",
		LogLevel:          "info",
		RefreshSeconds:    3600,
		BlackoutStartHour: 23,
		BlackoutEndHour:   6,
		MaxEntriesPerFeed: 5,
		Narration:         NarrationConfig{PauseSeconds: 5},
	}
}

func (c *Config) validate() error {
	if c.RefreshSeconds <= 0 {
		return fmt.Errorf("refresh_seconds must be positive, got %d", c.RefreshSeconds)
	}
	if c.BlackoutStartHour < 0 || c.BlackoutStartHour > 23 {
		return fmt.Errorf("blackout_start_hour must be 0-23, got %d", c.BlackoutStartHour)
	}
	if c.BlackoutEndHour < 0 || c.BlackoutEndHour > 23 {
		return fmt.Errorf("blackout_end_hour must be 0-23, got %d", c.BlackoutEndHour)
	}
	if c.MaxEntriesPerFeed < 0 {
		return fmt.Errorf("max_entries_per_feed must not be negative, got %d", c.MaxEntriesPerFeed)
	}
	if c.Narration.PauseSeconds < 0 {
		return fmt.Errorf("narration pause_seconds must not be negative, got %d", c.Narration.PauseSeconds)
	}
	for i, f := range c.Feeds {
		if f.Name == "" {
			return fmt.Errorf("feeds[%d]: name is required", i)
		}
		if f.URL == "" {
			return fmt.Errorf("feeds[%d] %q: url is required", i, f.Name)
		}
		if f.MaxEntries < 0 {
			return fmt.Errorf("feeds[%d] %q: max_entries must not be negative", i, f.Name)
		}
	}
	return nil
}

// RefreshInterval returns the polling interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// NarrationPause returns the pause between narrated articles.
func (c *Config) NarrationPause() time.Duration {
	return time.Duration(c.Narration.PauseSeconds) * time.Second
}

// TelegramEnabled reports whether the Telegram channel is fully configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}
