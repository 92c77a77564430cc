package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-notify/app/database"
)

var _ Notifier = (*Recorder)(nil)

type historyWriter interface {
	Record(ctx context.Context, n database.Notification) error
}

// Recorder journals every delivery attempt of the wrapped sink.
type Recorder struct {
	next    Notifier
	history historyWriter
}

func NewRecorder(next Notifier, history historyWriter) *Recorder {
	return &Recorder{next: next, history: history}
}

func (r *Recorder) Name() string {
	return nameOf(r.next)
}

func (r *Recorder) Notify(ctx context.Context, n Notification) error {
	sendErr := r.next.Notify(ctx, n)

	entry := database.Notification{
		CycleID:     n.CycleID,
		FeedName:    n.Site,
		Title:       n.Title,
		Link:        n.Link,
		PublishedAt: n.PubDate,
		NotifiedAt:  time.Now().UTC(),
		Sink:        r.Name(),
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}

	// The send deadline may already be spent; journaling gets its own.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := r.history.Record(recordCtx, entry); err != nil {
		slog.Warn("Failed to record notification", "feed", n.Site, "error", err)
	}

	return sendErr
}
