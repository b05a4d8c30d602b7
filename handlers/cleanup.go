package handlers

import (
	"net/http"
	"strconv"
	"time"

	"mediagrab/middleware"
	"mediagrab/services"

	"github.com/gin-gonic/gin"
)

// CleanupHandler handles housekeeping endpoints
type CleanupHandler struct {
	store     *services.JobStore
	sessions  *services.SessionRegistry
	workspace *services.Workspace
}

// NewCleanupHandler creates a new cleanup handler
func NewCleanupHandler(store *services.JobStore, sessions *services.SessionRegistry, workspace *services.Workspace) *CleanupHandler {
	return &CleanupHandler{
		store:     store,
		sessions:  sessions,
		workspace: workspace,
	}
}

// Cleanup reaps working directories and records older than the given age.
// Records whose working directory has vanished are dropped too.
func (h *CleanupHandler) Cleanup(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}
	maxAge := time.Duration(days) * 24 * time.Hour
	cutoff := time.Now().Add(-maxAge)

	dirsRemoved := h.workspace.ReapOrphans(maxAge, func(jobID string) bool {
		job, ok := h.store.Get(jobID)
		return ok && job.CreatedAt.After(cutoff)
	})

	tasksRemoved := 0
	for _, job := range h.store.List("", 0) {
		stale := job.CreatedAt.Before(cutoff)
		if !stale && job.WorkDir != "" && !h.workspace.WorkDirExists(job.ID) {
			// Directory reaped out from under a finished record.
			stale = job.Status.Terminal()
		}
		if stale && h.store.Delete(job.ID) {
			tasksRemoved++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Cleanup completed",
		"files_deleted": dirsRemoved,
		"tasks_deleted": tasksRemoved,
	})
}

// CleanupSession releases everything owned by the caller's session.
func (h *CleanupHandler) CleanupSession(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	cleaned := h.sessions.Cleanup(sessionID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Session cleanup completed",
		"cleaned": cleaned,
	})
}
