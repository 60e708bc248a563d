package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NEWSWATCH_CONFIG", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"DATABASE_PATH", "LISTEN_ADDR", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	fullFile := `
listen_addr: ":9090"
database_path: /tmp/news.db
log_level: debug
refresh_seconds: 600
blackout_start_hour: 22
blackout_end_hour: 7
max_entries_per_feed: 3
telegram:
  chat_id: 4242
narration:
  include_summary: true
  pause_seconds: 8
feeds:
  - name: General
    url: https://news.example.com/rss
  - name: Sports
    url: https://news.example.com/sports.xml
    max_entries: 2
`

	tests := []struct {
		name    string
		file    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name: "no file, defaults",
			want: &Config{
				ListenAddr:        ":8080",
				DatabasePath:      "./data/newswatch.db",
				LogLevel:          "info",
				RefreshSeconds:    3600,
				BlackoutStartHour: 23,
				BlackoutEndHour:   6,
				MaxEntriesPerFeed: 5,
				Narration:         NarrationConfig{PauseSeconds: 5},
			},
		},
		{
			name: "full file overrides defaults",
			file: fullFile,
			want: &Config{
				ListenAddr:        ":9090",
				DatabasePath:      "/tmp/news.db",
				LogLevel:          "debug",
				RefreshSeconds:    600,
				BlackoutStartHour: 22,
				BlackoutEndHour:   7,
				MaxEntriesPerFeed: 3,
				Telegram:          TelegramConfig{ChatID: 4242},
				Narration:         NarrationConfig{IncludeSummary: true, PauseSeconds: 8},
				Feeds: []FeedConfig{
					{Name: "General", URL: "https://news.example.com/rss"},
					{Name: "Sports", URL: "https://news.example.com/sports.xml", MaxEntries: 2},
				},
			},
		},
		{
			name: "partial file keeps remaining defaults",
			file: "blackout_start_hour: 0\nblackout_end_hour: 5\n",
			want: &Config{
				ListenAddr:        ":8080",
				DatabasePath:      "./data/newswatch.db",
				LogLevel:          "info",
				RefreshSeconds:    3600,
				BlackoutStartHour: 0,
				BlackoutEndHour:   5,
				MaxEntriesPerFeed: 5,
				Narration:         NarrationConfig{PauseSeconds: 5},
			},
		},
		{
			name: "env overrides file",
			file: "log_level: debug\ndatabase_path: /tmp/file.db\n",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok-123",
				"TELEGRAM_CHAT_ID":   "777",
				"DATABASE_PATH":      "/tmp/env.db",
				"LISTEN_ADDR":        ":7070",
				"LOG_LEVEL":          "warn",
			},
			want: &Config{
				ListenAddr:        ":7070",
				DatabasePath:      "/tmp/env.db",
				LogLevel:          "warn",
				RefreshSeconds:    3600,
				BlackoutStartHour: 23,
				BlackoutEndHour:   6,
				MaxEntriesPerFeed: 5,
				Telegram:          TelegramConfig{BotToken: "tok-123", ChatID: 777},
				Narration:         NarrationConfig{PauseSeconds: 5},
			},
		},
		{
			name:    "invalid chat id",
			env:     map[string]string{"TELEGRAM_CHAT_ID": "not-a-number"},
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			file:    "feeds: [unclosed",
			wantErr: true,
		},
		{
			name:    "blackout hour out of range",
			file:    "blackout_start_hour: 24\n",
			wantErr: true,
		},
		{
			name:    "zero refresh rejected",
			file:    "refresh_seconds: 0\n",
			wantErr: true,
		},
		{
			name:    "feed without url",
			file:    "feeds:\n  - name: Broken\n",
			wantErr: true,
		},
		{
			name:    "feed without name",
			file:    "feeds:\n  - url: https://x.example.com/rss\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.file != "" {
				t.Setenv("NEWSWATCH_CONFIG", writeConfigFile(t, tt.file))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEWSWATCH_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestDerivedDurations(t *testing.T) {
	cfg := &Config{RefreshSeconds: 90, Narration: NarrationConfig{PauseSeconds: 4}}
	if diff := cmp.Diff(90*time.Second, cfg.RefreshInterval()); diff != "" {
		t.Errorf("RefreshInterval (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(4*time.Second, cfg.NarrationPause()); diff != "" {
		t.Errorf("NarrationPause (-want +got):\n%s", diff)
	}
}

func TestTelegramEnabled(t *testing.T) {
	tests := []struct {
		name string
		tg   TelegramConfig
		want bool
	}{
		{name: "token and chat", tg: TelegramConfig{BotToken: "t", ChatID: 1}, want: true},
		{name: "token only", tg: TelegramConfig{BotToken: "t"}, want: false},
		{name: "chat only", tg: TelegramConfig{ChatID: 1}, want: false},
		{name: "neither", tg: TelegramConfig{}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Telegram: tt.tg}
			if diff := cmp.Diff(tt.want, cfg.TelegramEnabled()); diff != "" {
				t.Errorf("TelegramEnabled (-want +got):\n%s", diff)
			}
		})
	}
}
