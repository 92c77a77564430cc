package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/rss-notify/app/store"
)

func newTestScheduler(st FeedStore, n *captureNotifier, interval time.Duration) *Scheduler {
	return NewScheduler(st, http.DefaultClient, n, nil, nil, SchedulerOptions{
		Interval:     interval,
		FetchTimeout: 5 * time.Second,
		UserAgent:    "test",
	})
}

func TestScheduler_RunCycle(t *testing.T) {
	good := feedServer(t, rssBody(testItem{"fresh", at(500)}, testItem{"stale", at(100)}))
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	st := &fakeStore{configs: []store.FeedConfig{
		{Name: "good", URL: good.URL, LastSeen: time.Unix(200, 0), Enabled: true},
		{Name: "broken", URL: broken.URL, LastSeen: time.Unix(200, 0), Enabled: true},
		{Name: "off", URL: good.URL, Enabled: false},
	}}
	n := &captureNotifier{}
	s := newTestScheduler(st, n, time.Minute)

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err, "one failing feed never fails the cycle")

	assert.Len(t, report.Results, 2)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{"fresh"}, n.titles())
	require.Len(t, st.updates, 1)
	assert.Equal(t, "good", st.updates[0].name)

	stats := s.Stats()
	assert.Equal(t, 1, stats.Cycles)
	assert.Equal(t, report.ID, stats.LastCycleID)
	assert.Empty(t, stats.LastError)
	assert.Equal(t, 1, stats.Feeds["good"].Notified)
	assert.NotEmpty(t, stats.Feeds["broken"].Error)
}

func TestScheduler_LoadFailureIsReported(t *testing.T) {
	st := &fakeStore{loadErr: errors.New("permission denied")}
	s := newTestScheduler(st, &captureNotifier{}, time.Minute)

	_, err := s.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, s.Stats().LastError, "permission denied")
}

func TestScheduler_RunRetriesAfterLoadFailure(t *testing.T) {
	var loads atomic.Int32
	st := &flakyStore{fakeStore: &fakeStore{}, loads: &loads}
	s := newTestScheduler(st, &captureNotifier{}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return loads.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type flakyStore struct {
	*fakeStore
	loads *atomic.Int32
}

func (f *flakyStore) LoadAll() ([]store.FeedConfig, error) {
	if f.loads.Add(1) == 1 {
		return nil, errors.New("transient")
	}
	return f.fakeStore.LoadAll()
}

func TestScheduler_TriggerStartsCycleEarly(t *testing.T) {
	var loads atomic.Int32
	st := &flakyStore{fakeStore: &fakeStore{}, loads: &loads}
	s := newTestScheduler(st, &captureNotifier{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool { return loads.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Trigger()
	s.Trigger()
	require.Eventually(t, func() bool { return loads.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_ConcurrentFeedsShareOneDocument(t *testing.T) {
	const feeds = 8

	servers := make([]string, feeds)
	for i := 0; i < feeds; i++ {
		servers[i] = feedServer(t, rssBody(testItem{fmt.Sprintf("item-%d", i), at(int64(1000 + i))})).URL
	}

	var b strings.Builder
	b.WriteString("# managed by hand\nsites:\n")
	for i, url := range servers {
		fmt.Fprintf(&b, "  - name: feed-%d\n    url: %s\n    last_seen: 0\n", i, url)
	}
	path := filepath.Join(t.TempDir(), ".rssrc")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))

	st := store.New(path)
	n := &captureNotifier{}
	s := newTestScheduler(st, n, time.Minute)

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Failed)
	assert.Len(t, n.titles(), feeds)

	configs, err := st.LoadAll()
	require.NoError(t, err)
	require.Len(t, configs, feeds)
	for i, c := range configs {
		assert.Equal(t, int64(1000+i), c.LastSeen.Unix(), c.Name)
	}

	// A second cycle over unchanged feeds is silent.
	_, err = s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, n.titles(), feeds)
}
