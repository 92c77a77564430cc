package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/rss-notify/app/database"
	"github.com/lysyi3m/rss-notify/app/notify"
	"github.com/lysyi3m/rss-notify/app/store"
	"github.com/lysyi3m/rss-notify/app/tasks"
)

type mockFeeds struct {
	configs []store.FeedConfig
	err     error
}

func (m *mockFeeds) LoadAll() ([]store.FeedConfig, error) {
	return m.configs, m.err
}

type mockScheduler struct {
	triggered int
	stats     tasks.Stats
}

func (m *mockScheduler) Trigger() {
	m.triggered++
}

func (m *mockScheduler) Stats() tasks.Stats {
	return m.stats
}

type mockHistory struct {
	gotFeed  string
	gotLimit int
	entries  []database.Notification
	err      error
}

func (m *mockHistory) Recent(ctx context.Context, feedName string, limit int) ([]database.Notification, error) {
	m.gotFeed, m.gotLimit = feedName, limit
	return m.entries, m.err
}

func (m *mockHistory) Summaries(ctx context.Context) ([]database.FeedSummary, error) {
	return []database.FeedSummary{{FeedName: "golang", Count: 1}}, nil
}

type mockQueue struct{}

func (mockQueue) Stats() notify.QueueStats {
	return notify.QueueStats{Sent: 7}
}

const testKey = "secret"

func newTestServer(history HistoryReader) (*mockFeeds, *mockScheduler, http.Handler) {
	feeds := &mockFeeds{configs: []store.FeedConfig{
		{Name: "golang", URL: "https://go.dev/blog/feed.atom", LastSeen: time.Unix(300, 0).UTC(), Enabled: true},
		{Name: "hn", URL: "https://news.ycombinator.com/rss", Enabled: false, Timeout: 10 * time.Second},
	}}
	scheduler := &mockScheduler{stats: tasks.Stats{
		Cycles: 3,
		Feeds:  map[string]tasks.FeedStatus{"golang": {Name: "golang", Notified: 2}},
	}}

	handler := NewHandler(feeds, scheduler, history, mockQueue{}, "test-version")
	return feeds, scheduler, NewServer(handler, testKey)
}

func do(t *testing.T, h http.Handler, method, path string, withKey bool) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if withKey {
		req.Header.Set("X-API-Key", testKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	_, _, h := newTestServer(nil)

	rec, body := do(t, h, http.MethodGet, "/health", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["loaded_configurations"])
	assert.Equal(t, "test-version", body["version"])
}

func TestHealth_Degraded(t *testing.T) {
	feeds, _, h := newTestServer(nil)
	feeds.err = errors.New("no such file")

	rec, body := do(t, h, http.MethodGet, "/health", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestStats(t *testing.T) {
	_, _, h := newTestServer(nil)

	rec, body := do(t, h, http.MethodGet, "/stats", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), body["cycles"])

	notifications, ok := body["notifications"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(7), notifications["sent"])
}

func TestAPI_RequiresKey(t *testing.T) {
	_, _, h := newTestServer(nil)

	rec, _ := do(t, h, http.MethodGet, "/api/feeds", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	wrong := httptest.NewRecorder()
	h.ServeHTTP(wrong, req)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	bearer := httptest.NewRecorder()
	h.ServeHTTP(bearer, req)
	assert.Equal(t, http.StatusOK, bearer.Code)
}

func TestAPI_DisabledWithoutKey(t *testing.T) {
	handler := NewHandler(&mockFeeds{}, &mockScheduler{}, nil, nil, "v")
	h := NewServer(handler, "")

	rec, body := do(t, h, http.MethodGet, "/api/feeds", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, body, "plain text 404 from the router")

	rec, _ = do(t, h, http.MethodGet, "/api/feeds", true)
	assert.Equal(t, http.StatusNotFound, rec.Code, "a key does not unlock unmounted routes")
}

func TestAPI_ListFeeds(t *testing.T) {
	_, _, h := newTestServer(nil)

	rec, body := do(t, h, http.MethodGet, "/api/feeds", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["total"])

	feeds := body["feeds"].([]interface{})
	golang := feeds[0].(map[string]interface{})
	assert.Equal(t, "golang", golang["name"])
	assert.Equal(t, "1970-01-01T00:05:00Z", golang["last_seen"])
	assert.NotNil(t, golang["last_run"])

	hn := feeds[1].(map[string]interface{})
	assert.Equal(t, false, hn["enabled"])
	assert.Equal(t, "10s", hn["timeout"])
}

func TestAPI_History(t *testing.T) {
	history := &mockHistory{entries: []database.Notification{
		{ID: "1", FeedName: "golang", Title: "Go", Link: "https://go.dev", Sink: "desktop"},
	}}
	_, _, h := newTestServer(history)

	rec, body := do(t, h, http.MethodGet, "/api/history?feed=golang&limit=5", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "golang", history.gotFeed)
	assert.Equal(t, 5, history.gotLimit)
	assert.Equal(t, float64(1), body["total"])
	assert.Nil(t, body["summaries"], "summaries only for the unfiltered view")

	rec, body = do(t, h, http.MethodGet, "/api/history?limit=100000", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxHistoryLimit, history.gotLimit)
	assert.NotNil(t, body["summaries"])

	rec, _ = do(t, h, http.MethodGet, "/api/history?limit=abc", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_HistoryDisabled(t *testing.T) {
	_, _, h := newTestServer(nil)

	rec, _ := do(t, h, http.MethodGet, "/api/history", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_HistoryError(t *testing.T) {
	_, _, h := newTestServer(&mockHistory{err: errors.New("locked")})

	rec, _ := do(t, h, http.MethodGet, "/api/history", true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAPI_TriggerCycle(t *testing.T) {
	_, scheduler, h := newTestServer(nil)

	rec, body := do(t, h, http.MethodPost, "/api/cycle", true)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1, scheduler.triggered)
}
