package api

import (
	"context"

	"github.com/lysyi3m/rss-notify/app/database"
	"github.com/lysyi3m/rss-notify/app/notify"
	"github.com/lysyi3m/rss-notify/app/store"
	"github.com/lysyi3m/rss-notify/app/tasks"
)

type FeedLister interface {
	LoadAll() ([]store.FeedConfig, error)
}

type SchedulerInterface interface {
	Trigger()
	Stats() tasks.Stats
}

type HistoryReader interface {
	Recent(ctx context.Context, feedName string, limit int) ([]database.Notification, error)
	Summaries(ctx context.Context) ([]database.FeedSummary, error)
}

type QueueStatser interface {
	Stats() notify.QueueStats
}

var (
	_ SchedulerInterface = (*tasks.Scheduler)(nil)
	_ HistoryReader      = (*database.NotificationRepository)(nil)
	_ QueueStatser       = (*notify.Queue)(nil)
	_ FeedLister         = (*store.Store)(nil)
)

type Handler struct {
	feeds     FeedLister
	scheduler SchedulerInterface
	history   HistoryReader
	queue     QueueStatser
	version   string
}
