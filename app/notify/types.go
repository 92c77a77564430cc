package notify

import (
	"context"
	"time"
)

// Notification is what a sink receives for one new item.
type Notification struct {
	CycleID string
	Site    string
	Title   string
	Link    string
	Excerpt string
	PubDate time.Time
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Named sinks report the label stored in the history journal.
type Named interface {
	Name() string
}

func nameOf(n Notifier) string {
	if named, ok := n.(Named); ok {
		return named.Name()
	}
	return "custom"
}
