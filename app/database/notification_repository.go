package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ HistoryRepository = (*NotificationRepository)(nil)

// NotificationRepository journals notifications so the status API can show
// what was sent and when.
type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Record(ctx context.Context, n Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.NotifiedAt.IsZero() {
		n.NotifiedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, cycle_id, feed_name, title, link, published_at, notified_at, sink, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.CycleID, n.FeedName, n.Title, n.Link, n.PublishedAt.Unix(), n.NotifiedAt.Unix(), n.Sink, n.Error)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

// Recent returns the latest notifications, newest first. An empty feedName
// matches every feed.
func (r *NotificationRepository) Recent(ctx context.Context, feedName string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, cycle_id, feed_name, title, link, published_at, notified_at, sink, error
		FROM notifications
		WHERE ? = '' OR feed_name = ?
		ORDER BY notified_at DESC, published_at DESC
		LIMIT ?
	`, feedName, feedName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		var publishedAt, notifiedAt int64

		err := rows.Scan(&n.ID, &n.CycleID, &n.FeedName, &n.Title, &n.Link, &publishedAt, &notifiedAt, &n.Sink, &n.Error)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		n.PublishedAt = time.Unix(publishedAt, 0).UTC()
		n.NotifiedAt = time.Unix(notifiedAt, 0).UTC()
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

func (r *NotificationRepository) Summaries(ctx context.Context) ([]FeedSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT feed_name, COUNT(*), MAX(notified_at)
		FROM notifications
		WHERE error = ''
		GROUP BY feed_name
		ORDER BY feed_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []FeedSummary
	for rows.Next() {
		var s FeedSummary
		var lastNotifiedAt int64

		if err := rows.Scan(&s.FeedName, &s.Count, &lastNotifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}

		s.LastNotifiedAt = time.Unix(lastNotifiedAt, 0).UTC()
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summaries: %w", err)
	}

	return summaries, nil
}
