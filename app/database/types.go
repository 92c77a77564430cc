package database

import (
	"context"
	"time"
)

// Notification is one delivered (or attempted) notification.
type Notification struct {
	ID          string
	CycleID     string
	FeedName    string
	Title       string
	Link        string
	PublishedAt time.Time
	NotifiedAt  time.Time
	Sink        string
	Error       string
}

type FeedSummary struct {
	FeedName       string
	Count          int
	LastNotifiedAt time.Time
}

type HistoryRepository interface {
	Record(ctx context.Context, n Notification) error
	Recent(ctx context.Context, feedName string, limit int) ([]Notification, error)
	Summaries(ctx context.Context) ([]FeedSummary, error)
}
