package tasks

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/lysyi3m/rss-notify/app/store"
)

// FeedStore is the part of store.Store the tasks depend on.
type FeedStore interface {
	LoadAll() ([]store.FeedConfig, error)
	Update(name string, t time.Time) (bool, error)
}

// WatermarkUpdater is the single write a feed worker performs.
type WatermarkUpdater interface {
	Update(name string, t time.Time) (bool, error)
}

// ContentExtractor turns an article page into a short excerpt.
type ContentExtractor interface {
	Run(r io.Reader, pageURL *url.URL) (string, error)
}

// TaskSchedulerInterface is what the API and the config watcher need from the
// scheduler.
type TaskSchedulerInterface interface {
	Run(ctx context.Context) error
	RunCycle(ctx context.Context) (*CycleReport, error)
	Trigger()
	Stats() Stats
}

var _ TaskSchedulerInterface = (*Scheduler)(nil)
var _ TaskInterface = (*ProcessFeedTask)(nil)
var _ FeedStore = (*store.Store)(nil)
