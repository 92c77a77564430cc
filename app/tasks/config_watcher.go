package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultSettleDelay = 500 * time.Millisecond

// ConfigWatcher starts a cycle early when the list of feeds in the
// configuration file changes. Watermark rewrites leave the list as it was and
// are ignored.
type ConfigWatcher struct {
	store       FeedStore
	scheduler   interface{ Trigger() }
	settleDelay time.Duration
	fingerprint string
}

func NewConfigWatcher(st FeedStore, scheduler interface{ Trigger() }) *ConfigWatcher {
	return &ConfigWatcher{
		store:       st,
		scheduler:   scheduler,
		settleDelay: defaultSettleDelay,
	}
}

// Run watches the directory holding path, since editors and our own atomic
// writes replace the file rather than modifying it.
func (w *ConfigWatcher) Run(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.fingerprint, _ = w.currentFingerprint()
	target := filepath.Clean(path)

	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			settle = time.After(w.settleDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Config watcher error", "error", err)

		case <-settle:
			settle = nil
			w.check()
		}
	}
}

func (w *ConfigWatcher) check() {
	next, ok := w.currentFingerprint()
	if !ok || next == w.fingerprint {
		return
	}

	w.fingerprint = next
	slog.Info("Feed list changed, starting cycle early")
	w.scheduler.Trigger()
}

func (w *ConfigWatcher) currentFingerprint() (string, bool) {
	configs, err := w.store.LoadAll()
	if err != nil {
		slog.Debug("Config not readable yet", "error", err)
		return "", false
	}

	var b strings.Builder
	for _, c := range configs {
		b.WriteString(c.Name)
		b.WriteByte(0)
		b.WriteString(c.URL)
		b.WriteByte(0)
		b.WriteString(strconv.FormatBool(c.Enabled))
		b.WriteByte('\n')
	}
	return b.String(), true
}
