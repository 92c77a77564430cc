package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rss-notify/app/api"
	"github.com/lysyi3m/rss-notify/app/cfg"
	"github.com/lysyi3m/rss-notify/app/database"
	"github.com/lysyi3m/rss-notify/app/feed"
	"github.com/lysyi3m/rss-notify/app/notify"
	"github.com/lysyi3m/rss-notify/app/store"
	"github.com/lysyi3m/rss-notify/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg)

	if err := run(appCfg); err != nil {
		slog.Error("RSS Notify stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(appCfg *cfg.Cfg) {
	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if appCfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting RSS Notify", "version", appCfg.Version, "config", appCfg.ConfigPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feedStore := store.New(appCfg.ConfigPath)
	if configs, err := feedStore.LoadAll(); err != nil {
		slog.Warn("Feed configuration not readable yet, will retry every cycle", "error", err)
	} else {
		slog.Info("Loaded feed configurations", "count", len(configs))
	}

	sink, err := newSink(appCfg)
	if err != nil {
		return err
	}

	var history *database.NotificationRepository
	if appCfg.HistoryDB != "" {
		db, err := database.NewConnection(appCfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()

		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			return fmt.Errorf("failed to migrate history database: %w", err)
		}
		slog.Debug("History database ready", "path", appCfg.HistoryDB, "version", version, "dirty", dirty)

		history = database.NewNotificationRepository(db)
		sink = notify.NewRecorder(sink, history)
	}

	queue := notify.NewQueue(sink, appCfg.QueueSize, notify.DefaultSendTimeout)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := queue.Close(drainCtx); err != nil {
			slog.Warn("Pending notifications dropped on shutdown", "pending", queue.Stats().Pending, "error", err)
		}
	}()

	httpClient := &http.Client{}
	excerpter := tasks.NewExcerpter(httpClient, feed.NewContentExtractor(appCfg.ExcerptLength), appCfg.UserAgent, appCfg.FetchTimeout)

	scheduler := tasks.NewScheduler(feedStore, httpClient, queue, feed.NewFilterer(), excerpter, tasks.SchedulerOptions{
		Interval:     appCfg.Interval,
		FetchTimeout: appCfg.FetchTimeout,
		UserAgent:    appCfg.UserAgent,
	})

	if appCfg.Once {
		_, err := scheduler.RunCycle(ctx)
		return err
	}

	if appCfg.Watch {
		watcher := tasks.NewConfigWatcher(feedStore, scheduler)
		go func() {
			if err := watcher.Run(ctx, appCfg.ConfigPath); err != nil {
				slog.Warn("Config watcher stopped", "error", err)
			}
		}()
	}

	var httpServer *http.Server
	serverErrChan := make(chan error, 1)
	if appCfg.StatusAddr != "" {
		var historyReader api.HistoryReader
		if history != nil {
			historyReader = history
		}
		handler := api.NewHandler(feedStore, scheduler, historyReader, queue, appCfg.Version)

		httpServer = &http.Server{
			Addr:         appCfg.StatusAddr,
			Handler:      api.NewServer(handler, appCfg.APIAccessKey),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("Starting status server", "addr", appCfg.StatusAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	}

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Run(ctx)
	}()

	slog.Info("RSS Notify started", "interval", appCfg.Interval, "notifier", appCfg.Notifier)

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErrChan:
		runErr = err
		stop()
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP server shutdown error", "error", err)
		}
	}

	<-schedulerDone
	slog.Info("RSS Notify shutdown complete")

	return runErr
}

func newSink(appCfg *cfg.Cfg) (notify.Notifier, error) {
	switch appCfg.Notifier {
	case "telegram":
		tg, err := notify.NewTelegram(appCfg.TelegramToken, appCfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		return tg, nil
	case "log":
		return notify.NewLog(slog.Default()), nil
	default:
		return notify.NewDesktop(appCfg.AppName, appCfg.Icon), nil
	}
}
