package cfg

import "time"

type Cfg struct {
	// Feeds
	ConfigPath   string
	Interval     time.Duration
	FetchTimeout time.Duration
	UserAgent    string
	Watch        bool
	Once         bool

	// Notifications
	Notifier       string
	AppName        string
	Icon           string
	TelegramToken  string
	TelegramChatID int64
	ExcerptLength  int
	QueueSize      int

	// History and status API
	HistoryDB    string
	StatusAddr   string
	APIAccessKey string

	// Application metadata
	Timezone  string
	Debug     bool
	LogFormat string
	Version   string
}
