package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/rss-notify/app/feed"
	"github.com/lysyi3m/rss-notify/app/notify"
	"github.com/lysyi3m/rss-notify/app/store"
)

// ErrFetch marks transport failures: the feed could not be retrieved or the
// connection broke while reading it.
var ErrFetch = errors.New("fetch failed")

// Result is what one feed worker learned during a cycle.
type Result struct {
	Name     string
	Newest   time.Time
	Notified int
	Filtered int
	Undated  int
	Stopped  bool
	Updated  bool
}

type ProcessFeedTask struct {
	Task
	CycleID    string
	FeedConfig store.FeedConfig
	httpClient *http.Client
	store      WatermarkUpdater
	notifier   notify.Notifier
	filterer   *feed.Filterer
	excerpter  *Excerpter
	userAgent  string
	timeout    time.Duration

	Result Result
}

func NewProcessFeedTask(cycleID string, feedConfig store.FeedConfig, httpClient *http.Client, st WatermarkUpdater,
	notifier notify.Notifier, filterer *feed.Filterer, excerpter *Excerpter, userAgent string, timeout time.Duration) *ProcessFeedTask {
	if feedConfig.Timeout > 0 {
		timeout = feedConfig.Timeout
	}

	return &ProcessFeedTask{
		Task:       NewTask(TaskTypeProcessFeed, feedConfig.Name),
		CycleID:    cycleID,
		FeedConfig: feedConfig,
		httpClient: httpClient,
		store:      st,
		notifier:   notifier,
		filterer:   filterer,
		excerpter:  excerpter,
		userAgent:  userAgent,
		timeout:    timeout,
		Result:     Result{Name: feedConfig.Name, Newest: feedConfig.LastSeen},
	}
}

// Execute fetches the feed, notifies every item newer than the last seen
// watermark and then raises the watermark once. Transport and parse failures
// return before the watermark is touched.
func (t *ProcessFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.FeedConfig.Enabled {
		slog.Debug("Feed disabled, skipping", "feed", t.FeedName)
		return nil
	}

	// Excerpt fetches run after the feed body is closed, outside its deadline.
	pending, err := t.consume(ctx)
	for _, item := range pending {
		t.deliver(ctx, item)
	}
	if err != nil {
		return err
	}

	if err := t.finalize(); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"notified", t.Result.Notified,
		"filtered", t.Result.Filtered,
		"undated", t.Result.Undated,
		"stopped_early", t.Result.Stopped,
		"watermark_updated", t.Result.Updated)

	return nil
}

// consume reads the feed and returns the new items in document order. Items
// read before a stream error are returned along with the error.
func (t *ProcessFeedTask) consume(ctx context.Context) ([]feed.Item, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	body, err := openURL(fetchCtx, t.httpClient, t.FeedConfig.URL, t.userAgent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer body.Close()

	stream, err := feed.NewStream(body)
	if err != nil {
		return nil, t.streamError(err)
	}

	lastSeen := t.FeedConfig.LastSeen
	var pending []feed.Item

	for {
		item, err := stream.Next()
		if err == io.EOF {
			return pending, nil
		}
		if err != nil {
			return pending, t.streamError(err)
		}

		if item.PubDate.IsZero() {
			t.Result.Undated++
			slog.Debug("Skipping item without a usable date", "feed", t.FeedName, "title", item.Title)
			continue
		}

		if item.PubDate.After(t.Result.Newest) {
			t.Result.Newest = item.PubDate
		}

		if !item.PubDate.After(lastSeen) {
			t.Result.Stopped = true
			slog.Debug("Reached already seen item, stopping", "feed", t.FeedName, "published_at", item.PubDate)
			return pending, nil
		}

		pending = append(pending, item)
	}
}

func (t *ProcessFeedTask) streamError(err error) error {
	var parseErr *feed.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("failed to parse feed: %w", err)
	}
	return fmt.Errorf("%w: %w", ErrFetch, err)
}

func (t *ProcessFeedTask) deliver(ctx context.Context, item feed.Item) {
	if t.filterer != nil {
		if filtered, reason := t.filterer.Run(item, t.FeedConfig.Filters); filtered {
			t.Result.Filtered++
			slog.Debug("Item filtered", "feed", t.FeedName, "title", item.Title, "reason", reason)
			return
		}
	}

	n := notify.Notification{
		CycleID: t.CycleID,
		Site:    t.FeedName,
		Title:   item.Title,
		Link:    item.Link,
		PubDate: item.PubDate,
	}

	if t.FeedConfig.Excerpt && t.excerpter != nil {
		n.Excerpt = t.excerpter.Run(ctx, t.FeedName, item.Link)
	}

	if err := t.notifier.Notify(ctx, n); err != nil {
		slog.Warn("Failed to notify", "feed", t.FeedName, "title", item.Title, "error", err)
		return
	}

	t.Result.Notified++
}

func (t *ProcessFeedTask) finalize() error {
	if !t.Result.Newest.After(t.FeedConfig.LastSeen) {
		return nil
	}

	updated, err := t.store.Update(t.FeedName, t.Result.Newest)
	if err != nil {
		return fmt.Errorf("failed to update watermark: %w", err)
	}
	t.Result.Updated = updated

	return nil
}
