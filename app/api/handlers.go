package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/feed-vault/app/database"
	"github.com/lysyi3m/feed-vault/app/saver"
	"github.com/lysyi3m/feed-vault/app/settings"
	"github.com/lysyi3m/feed-vault/app/tasks"
)

const defaultRunsLimit = 50

// NewHandler builds the API handlers. Runs started over HTTP use ctx so
// they stop with the server. runs may be nil when history is disabled.
func NewHandler(ctx context.Context, store *settings.Store, updater UpdaterInterface,
	scheduler tasks.SchedulerInterface, runs database.RunRepository) *Handler {
	return &Handler{
		ctx:       ctx,
		settings:  store,
		updater:   updater,
		scheduler: scheduler,
		runs:      runs,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	st := h.settings.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"timestamp":       time.Now().In(time.Local).Format(time.RFC3339),
		"state":           h.updater.State().String(),
		"feeds":           len(st.Feeds),
		"active_feeds":    len(st.ActiveFeeds()),
		"update_interval": st.UpdateInterval,
	})
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	st := h.settings.Snapshot()

	feeds := make([]feedInfo, 0, len(st.Feeds))
	for _, f := range st.Feeds {
		policy := st.Resolve(f)
		feeds = append(feeds, feedInfo{
			Name:           f.Name,
			URL:            f.URL,
			Group:          policy.GroupName,
			Folder:         saver.FeedFolder(policy),
			Enabled:        f.Enabled,
			Archived:       f.Archived,
			Deleted:        f.Deleted,
			UpdateInterval: policy.UpdateInterval,
			Filters:        len(f.Filters),
			LastUpdated:    f.LastUpdated,
			LastChecked:    f.LastChecked,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

// APITriggerUpdate starts a run in the background. The optional url query
// parameter limits it to one feed.
func (h *Handler) APITriggerUpdate(c *gin.Context) {
	if h.updater.State() == tasks.StateRunning {
		c.JSON(http.StatusConflict, gin.H{"error": tasks.ErrRunInProgress.Error()})
		return
	}

	opts := tasks.RunOptions{FeedURL: c.Query("url")}
	if opts.FeedURL != "" {
		if _, ok := h.settings.Snapshot().FindFeed(opts.FeedURL); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
			return
		}
	}

	go func() {
		summary, err := h.updater.Run(h.ctx, opts)
		switch {
		case errors.Is(err, tasks.ErrRunInProgress):
			slog.Info("Requested update skipped, another run is active")
		case err != nil:
			slog.Error("Requested update failed", "error", err)
		default:
			slog.Info("Requested update finished", "run_id", summary.RunID, "saved", summary.Saved)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Feed update started",
	})
}

func (h *Handler) APIPurgeFeed(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}
	if _, ok := h.settings.Snapshot().FindFeed(url); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	err := h.updater.PurgeFeed(c.Request.Context(), url)
	if errors.Is(err, tasks.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("Feed purge failed", "url", url, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to purge feed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

func (h *Handler) APIListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run history is disabled"})
		return
	}

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = n
	}

	var (
		runs []database.FeedRun
		err  error
	)
	if url := c.Query("url"); url != "" {
		runs, err = h.runs.ListForFeed(url, limit)
	} else {
		runs, err = h.runs.ListRecent(limit)
	}
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

// APISetInterval stores the global update interval in minutes and restarts
// the timer with it. Zero disables periodic runs.
func (h *Handler) APISetInterval(c *gin.Context) {
	var req intervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if *req.Minutes < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Interval must not be negative"})
		return
	}

	err := h.settings.Update(func(st *settings.Settings) error {
		st.UpdateInterval = *req.Minutes
		return nil
	})
	if err != nil {
		slog.Error("Failed to save settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}

	h.scheduler.Reschedule(time.Duration(*req.Minutes) * time.Minute)

	c.JSON(http.StatusOK, gin.H{"success": true, "update_interval": *req.Minutes})
}
