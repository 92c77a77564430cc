package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const maxHistoryLimit = 500

// NewHandler wires the read-only status endpoints. history and queue may be
// nil when those features are turned off.
func NewHandler(feeds FeedLister, scheduler SchedulerInterface, history HistoryReader, queue QueueStatser, version string) *Handler {
	return &Handler{
		feeds:     feeds,
		scheduler: scheduler,
		history:   history,
		queue:     queue,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if configs, err := h.feeds.LoadAll(); err == nil {
		health["loaded_configurations"] = len(configs)
	} else {
		health["status"] = "degraded"
		health["config_error"] = err.Error()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := h.scheduler.Stats()

	response := gin.H{
		"cycles":           stats.Cycles,
		"last_cycle_id":    stats.LastCycleID,
		"last_started_at":  stats.LastStartedAt,
		"last_finished_at": stats.LastFinishedAt,
		"last_error":       stats.LastError,
		"feeds":            stats.Feeds,
	}

	if h.queue != nil {
		response["notifications"] = h.queue.Stats()
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs, err := h.feeds.LoadAll()
	if err != nil {
		slog.Error("Failed to load feed configurations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load configuration"})
		return
	}

	statuses := h.scheduler.Stats().Feeds
	feeds := make([]map[string]interface{}, 0, len(configs))

	for _, feedConfig := range configs {
		feedInfo := map[string]interface{}{
			"name":      feedConfig.Name,
			"url":       feedConfig.URL,
			"enabled":   feedConfig.Enabled,
			"last_seen": feedConfig.LastSeen,
			"excerpt":   feedConfig.Excerpt,
			"filters":   len(feedConfig.Filters),
		}
		if feedConfig.Timeout > 0 {
			feedInfo["timeout"] = feedConfig.Timeout.String()
		}
		if status, ok := statuses[feedConfig.Name]; ok {
			feedInfo["last_run"] = status
		}

		feeds = append(feeds, feedInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIGetHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification history is disabled"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	feedName := c.Query("feed")

	notifications, err := h.history.Recent(c.Request.Context(), feedName, limit)
	if err != nil {
		slog.Error("Database error", "operation", "recent_notifications", "feed", feedName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	items := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		item := gin.H{
			"id":           n.ID,
			"cycle_id":     n.CycleID,
			"feed":         n.FeedName,
			"title":        n.Title,
			"link":         n.Link,
			"published_at": n.PublishedAt,
			"notified_at":  n.NotifiedAt,
			"sink":         n.Sink,
		}
		if n.Error != "" {
			item["error"] = n.Error
		}
		items = append(items, item)
	}

	response := gin.H{
		"notifications": items,
		"total":         len(items),
	}

	if feedName == "" {
		if summaries, err := h.history.Summaries(c.Request.Context()); err == nil {
			response["summaries"] = summaries
		} else {
			slog.Warn("Failed to load history summaries", "error", err)
		}
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APITriggerCycle(c *gin.Context) {
	h.scheduler.Trigger()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Poll cycle requested",
	})
}
