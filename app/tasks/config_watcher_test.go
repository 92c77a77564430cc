package tasks

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/rss-notify/app/store"
)

type countingTrigger struct {
	n atomic.Int32
}

func (c *countingTrigger) Trigger() {
	c.n.Add(1)
}

func TestConfigWatcher_TriggersOnFeedListChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".rssrc")
	require.NoError(t, os.WriteFile(path, []byte("sites:\n  - name: a\n    url: https://example.com/a\n"), 0o600))

	st := store.New(path)
	trigger := &countingTrigger{}
	w := NewConfigWatcher(st, trigger)
	w.settleDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, path)

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)

	// A watermark write keeps the feed list as it was.
	_, err := st.Update("a", time.Unix(500, 0))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), trigger.n.Load())

	require.NoError(t, os.WriteFile(path, []byte("sites:\n  - name: a\n    url: https://example.com/a\n    last_seen: 500\n  - name: b\n    url: https://example.com/b\n"), 0o600))
	require.Eventually(t, func() bool { return trigger.n.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestConfigWatcher_Fingerprint(t *testing.T) {
	st := &fakeStore{configs: []store.FeedConfig{{Name: "a", URL: "u", Enabled: true}}}
	trigger := &countingTrigger{}
	w := NewConfigWatcher(st, trigger)
	w.fingerprint, _ = w.currentFingerprint()

	st.configs[0].LastSeen = time.Unix(100, 0)
	w.check()
	assert.Equal(t, int32(0), trigger.n.Load(), "watermark change ignored")

	st.configs[0].Enabled = false
	w.check()
	assert.Equal(t, int32(1), trigger.n.Load(), "enabled flag change triggers")

	st.loadErr = assert.AnError
	w.check()
	assert.Equal(t, int32(1), trigger.n.Load(), "unreadable config ignored")
}
