package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/bili-feedgen/app/bilibili"
	"github.com/lysyi3m/bili-feedgen/app/database"
	"github.com/lysyi3m/bili-feedgen/app/feed"
	"github.com/lysyi3m/bili-feedgen/app/tasks"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// NewHandler wires the HTTP handlers. runRepo and scheduler may be nil, in
// which case the endpoints depending on them report the feature as disabled.
func NewHandler(configCache *feed.ConfigCache, renderer RendererInterface,
	runRepo database.RunRepository, scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		configCache: configCache,
		renderer:    renderer,
		runRepo:     runRepo,
		scheduler:   scheduler,
		version:     version,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Debug("Feed configuration not found", "feed", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	rendition, err := h.renderer.Render(c.Request.Context(), feedConfig)
	if err != nil {
		status := renderErrorStatus(err)
		slog.Error("Feed rendering failed", "feed", name, "status", status, "error", err)
		c.Status(status)
		return
	}

	c.Header("X-Feed-Entries", strconv.Itoa(len(rendition.Feed.Entries)))
	c.Header("X-Feed-Name", name)
	c.Header("X-Last-Updated", rendition.Feed.UpdatedAt.UTC().Format(time.RFC3339))

	c.Data(http.StatusOK, "application/atom+xml; charset=utf-8", rendition.Content)
}

func renderErrorStatus(err error) int {
	var apiErr *bilibili.APIError
	var malformedErr *feed.MalformedRecordError
	var emptyErr *feed.EmptyResultError

	switch {
	case errors.As(err, &emptyErr):
		return http.StatusNotFound
	case errors.As(err, &apiErr), errors.As(err, &malformedErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":                "ok",
		"version":               h.version,
		"timestamp":             time.Now().UTC().Format(time.RFC3339),
		"loaded_configurations": h.configCache.GetConfigCount(),
		"history":               h.runRepo != nil,
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	if h.runRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run history is disabled"})
		return
	}

	stats, err := h.runRepo.GetRunStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_run_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := gin.H{
		"runs":    stats.Total,
		"written": stats.Written,
		"skipped": stats.Skipped,
		"printed": stats.Printed,
		"failed":  stats.Failed,
		"feeds":   h.configCache.GetConfigCount(),
	}
	if stats.LastRun != nil {
		response["last_run_at"] = stats.LastRun.UTC().Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	feeds := make([]map[string]interface{}, 0, len(configs))

	for _, feedConfig := range configs {
		feedInfo := map[string]interface{}{
			"name":             feedConfig.Name,
			"member_id":        feedConfig.MemberID,
			"feed_url":         feedConfig.FeedURL,
			"output":           feedConfig.Output,
			"enabled":          feedConfig.Settings.Enabled,
			"count":            feedConfig.Settings.Count,
			"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
			"filters":          feedConfig.Filters,
		}

		if h.runRepo != nil {
			if runs, err := h.runRepo.GetRecentRuns(feedConfig.Name, 1); err == nil && len(runs) > 0 {
				feedInfo["last_run"] = runResponse(runs[0])
			}
		}

		feeds = append(feeds, feedInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIGetFeedRuns(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	if h.runRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run history is disabled"})
		return
	}

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(parsed, maxRunsLimit)
	}

	runs, err := h.runRepo.GetRecentRuns(name, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_runs", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	items := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		items = append(items, runResponse(run))
	}

	c.JSON(http.StatusOK, gin.H{
		"feed":  name,
		"runs":  items,
		"total": len(items),
	})
}

func (h *Handler) APIRefreshFeed(c *gin.Context) {
	name := c.Param("name")

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler is not running"})
		return
	}

	if feedConfig.Output == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "Feed has no output file, it is rendered on request only"})
		return
	}

	task, err := h.scheduler.NewGenerateFeedTask(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing generate task", "feed", name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue generate task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"feed":    name,
		"task": gin.H{
			"id":   task.GetID(),
			"type": task.GetType(),
		},
	})
}

func runResponse(run database.Run) gin.H {
	response := gin.H{
		"id":           run.ID,
		"result":       run.Result,
		"destination":  run.Destination,
		"fetched":      run.Fetched,
		"kept":         run.Kept,
		"content_hash": run.ContentHash,
		"started_at":   run.StartedAt.UTC().Format(time.RFC3339),
		"duration":     run.Duration.String(),
	}
	if run.Error != "" {
		response["error"] = run.Error
	}
	return response
}
