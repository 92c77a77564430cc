package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

const (
	DefaultQueueSize   = 256
	DefaultSendTimeout = 10 * time.Second
)

var _ Notifier = (*Queue)(nil)

type QueueStats struct {
	Pending int   `json:"pending"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
}

// Queue hands notifications to a single sender goroutine in FIFO order so
// feed workers never wait on a slow sink.
type Queue struct {
	next        Notifier
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	items  chan Notification
	done   chan struct{}

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

func NewQueue(next Notifier, size int, sendTimeout time.Duration) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}

	q := &Queue{
		next:        next,
		sendTimeout: sendTimeout,
		items:       make(chan Notification, size),
		done:        make(chan struct{}),
	}
	go q.run()

	return q
}

func (q *Queue) Name() string {
	return nameOf(q.next)
}

// Notify enqueues n without blocking.
func (q *Queue) Notify(ctx context.Context, n Notification) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- n:
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting notifications and waits for the backlog to drain or
// for ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Pending: len(q.items),
		Sent:    q.sent.Load(),
		Failed:  q.failed.Load(),
		Dropped: q.dropped.Load(),
	}
}

func (q *Queue) run() {
	defer close(q.done)

	for n := range q.items {
		ctx, cancel := context.WithTimeout(context.Background(), q.sendTimeout)
		err := q.next.Notify(ctx, n)
		cancel()

		if err != nil {
			q.failed.Add(1)
			slog.Warn("Notification failed", "feed", n.Site, "title", n.Title, "sink", q.Name(), "error", err)
			continue
		}
		q.sent.Add(1)
	}
}
