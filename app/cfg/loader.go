package cfg

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const DefaultConfigName = ".rssrc"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Feeds
	ConfigPath   string        `long:"config" short:"c" env:"RSSRC" description:"Path to the feed configuration document (default: $HOME/.rssrc)"`
	Interval     time.Duration `long:"interval" env:"POLL_INTERVAL" default:"5m" description:"Pause between poll cycles"`
	FetchTimeout time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30s" description:"Default per-feed fetch timeout"`
	UserAgent    string        `long:"user-agent" env:"USER_AGENT" default:"RSS Notify/1.0" description:"User agent string for HTTP requests"`
	Watch        bool          `long:"watch" env:"WATCH_CONFIG" description:"Start a cycle early when the feed list in the configuration changes"`
	Once         bool          `long:"once" description:"Run a single poll cycle and exit"`

	// Notifications
	Notifier       string `long:"notifier" env:"NOTIFIER" default:"desktop" choice:"desktop" choice:"telegram" choice:"log" description:"Notification sink"`
	AppName        string `long:"app-name" env:"APP_NAME" default:"RSS Notify" description:"Application name shown by the desktop notification daemon"`
	Icon           string `long:"icon" env:"NOTIFY_ICON" description:"Icon path for desktop notifications"`
	TelegramToken  string `long:"telegram-token" env:"TELEGRAM_TOKEN" description:"Telegram bot token (telegram notifier)"`
	TelegramChatID int64  `long:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram chat id (telegram notifier)"`
	ExcerptLength  int    `long:"excerpt-length" env:"EXCERPT_LENGTH" default:"200" description:"Maximum excerpt length in characters for sites with excerpt enabled"`
	QueueSize      int    `long:"queue-size" env:"QUEUE_SIZE" default:"256" description:"Pending notification buffer size"`

	// History and status API
	HistoryDB    string `long:"history-db" env:"HISTORY_DB" description:"SQLite file journaling sent notifications (disabled when empty)"`
	StatusAddr   string `long:"status-addr" env:"STATUS_ADDR" description:"Listen address for the status HTTP server, e.g. 127.0.0.1:8080 (disabled when empty)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	Timezone  string `long:"timezone" env:"TZ" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
}

// Load parses os.Args and the environment. It returns (nil, nil) when help
// was requested.
func Load() (*Cfg, error) {
	return parse(os.Args[1:])
}

func parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	configPath, err := resolveConfigPath(raw.ConfigPath)
	if err != nil {
		return nil, err
	}

	cfg := &Cfg{
		ConfigPath:     configPath,
		Interval:       raw.Interval,
		FetchTimeout:   raw.FetchTimeout,
		UserAgent:      raw.UserAgent,
		Watch:          raw.Watch,
		Once:           raw.Once,
		Notifier:       raw.Notifier,
		AppName:        raw.AppName,
		Icon:           raw.Icon,
		TelegramToken:  raw.TelegramToken,
		TelegramChatID: raw.TelegramChatID,
		ExcerptLength:  raw.ExcerptLength,
		QueueSize:      raw.QueueSize,
		HistoryDB:      raw.HistoryDB,
		StatusAddr:     raw.StatusAddr,
		APIAccessKey:   raw.APIAccessKey,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		LogFormat:      raw.LogFormat,
		Version:        GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func (c *Cfg) validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.Notifier == "telegram" && (c.TelegramToken == "" || c.TelegramChatID == 0) {
		return fmt.Errorf("telegram notifier requires --telegram-token and --telegram-chat-id")
	}
	return nil
}

func resolveConfigPath(path string) (string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate home directory: %w", err)
		}
		return filepath.Join(home, DefaultConfigName), nil
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	return path, nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
