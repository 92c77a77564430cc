package notify

import (
	"context"
	"log/slog"
)

var _ Notifier = (*Log)(nil)

// Log writes notifications to the structured log. Useful on headless hosts.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Name() string {
	return "log"
}

func (l *Log) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, "New item",
		"feed", n.Site,
		"title", n.Title,
		"link", n.Link,
		"published_at", n.PubDate,
		"body", TextBody(n))
	return nil
}
