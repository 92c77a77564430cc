package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/rss-notify/app/feed"
	"github.com/lysyi3m/rss-notify/app/notify"
)

type SchedulerOptions struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	UserAgent    string
}

type FeedStatus struct {
	Name      string    `json:"name"`
	LastRunAt time.Time `json:"last_run_at"`
	Duration  string    `json:"duration"`
	Newest    time.Time `json:"newest"`
	Notified  int       `json:"notified"`
	Filtered  int       `json:"filtered"`
	Undated   int       `json:"undated"`
	Stopped   bool      `json:"stopped_early"`
	Error     string    `json:"error,omitempty"`
}

type Stats struct {
	Cycles         int                   `json:"cycles"`
	LastCycleID    string                `json:"last_cycle_id,omitempty"`
	LastStartedAt  time.Time             `json:"last_started_at"`
	LastFinishedAt time.Time             `json:"last_finished_at"`
	LastError      string                `json:"last_error,omitempty"`
	Feeds          map[string]FeedStatus `json:"feeds"`
}

// CycleReport summarises one pass over every enabled feed.
type CycleReport struct {
	ID      string
	Results []Result
	Skipped int
	Failed  int
}

// Scheduler polls all feeds in cycles: load the feed list, run one worker per
// enabled feed, wait for all of them, sleep, repeat.
type Scheduler struct {
	store      FeedStore
	httpClient *http.Client
	notifier   notify.Notifier
	filterer   *feed.Filterer
	excerpter  *Excerpter
	opts       SchedulerOptions
	trigger    chan struct{}

	mu    sync.RWMutex
	stats Stats
}

func NewScheduler(st FeedStore, httpClient *http.Client, notifier notify.Notifier,
	filterer *feed.Filterer, excerpter *Excerpter, opts SchedulerOptions) *Scheduler {
	return &Scheduler{
		store:      st,
		httpClient: httpClient,
		notifier:   notifier,
		filterer:   filterer,
		excerpter:  excerpter,
		opts:       opts,
		trigger:    make(chan struct{}, 1),
		stats:      Stats{Feeds: make(map[string]FeedStatus)},
	}
}

// Run loops until ctx is cancelled. A cycle that cannot load the feed list is
// logged and retried after the usual sleep.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			slog.Error("Cycle failed", "error", err)
		}

		timer := time.NewTimer(s.opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-s.trigger:
			timer.Stop()
			slog.Debug("Cycle triggered early")
		case <-timer.C:
		}
	}
}

// Trigger asks a sleeping Run loop to start the next cycle now. Requests made
// while one is already pending collapse into it.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{ID: uuid.NewString()}
	startedAt := time.Now().UTC()

	s.mu.Lock()
	s.stats.Cycles++
	s.stats.LastCycleID = report.ID
	s.stats.LastStartedAt = startedAt
	s.mu.Unlock()

	configs, err := s.store.LoadAll()
	if err != nil {
		err = fmt.Errorf("failed to load feeds: %w", err)
		s.finishCycle(err)
		return nil, err
	}

	var (
		g         errgroup.Group
		resultsMu sync.Mutex
	)

	for _, feedConfig := range configs {
		if !feedConfig.Enabled {
			report.Skipped++
			continue
		}

		task := NewProcessFeedTask(report.ID, feedConfig, s.httpClient, s.store, s.notifier,
			s.filterer, s.excerpter, s.opts.UserAgent, s.opts.FetchTimeout)

		g.Go(func() error {
			task.Start()
			err := task.Execute(ctx)
			s.recordFeed(task, err)

			resultsMu.Lock()
			report.Results = append(report.Results, task.Result)
			if err != nil {
				report.Failed++
			}
			resultsMu.Unlock()

			if err != nil {
				slog.Error("Feed task failed", "type", task.GetType(), "id", task.GetID(), "feed", task.GetFeedName(), "error", err)
			}
			return err
		})
	}

	// Per-feed failures are already logged and counted; they never fail the cycle.
	_ = g.Wait()

	s.finishCycle(nil)

	slog.Info("Cycle completed",
		"cycle_id", report.ID,
		"feeds", len(report.Results),
		"failed", report.Failed,
		"disabled", report.Skipped,
		"duration", time.Since(startedAt))

	return report, nil
}

func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.Feeds = make(map[string]FeedStatus, len(s.stats.Feeds))
	for name, status := range s.stats.Feeds {
		stats.Feeds[name] = status
	}
	return stats
}

func (s *Scheduler) finishCycle(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.LastFinishedAt = time.Now().UTC()
	s.stats.LastError = ""
	if err != nil {
		s.stats.LastError = err.Error()
	}
}

func (s *Scheduler) recordFeed(task *ProcessFeedTask, err error) {
	status := FeedStatus{
		Name:      task.FeedName,
		LastRunAt: time.Now().UTC(),
		Duration:  task.GetDuration().String(),
		Newest:    task.Result.Newest,
		Notified:  task.Result.Notified,
		Filtered:  task.Result.Filtered,
		Undated:   task.Result.Undated,
		Stopped:   task.Result.Stopped,
	}
	if err != nil {
		status.Error = err.Error()
	}

	s.mu.Lock()
	s.stats.Feeds[task.FeedName] = status
	s.mu.Unlock()
}
