package handlers

import (
	"net/http"
	"time"

	"mediagrab/services"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store *services.JobStore
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *services.JobStore) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthCheck returns the health status of the service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "mediagrab",
		"version":   "1.0.0",
		"tasks":     h.store.Count(),
		"timestamp": time.Now().Unix(),
	})
}

// APIInfo describes the HTTP surface
func (h *HealthHandler) APIInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "mediagrab API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"POST /convert":           "Convert a media URL to MP3",
			"POST /convert-video":     "Download a media URL as video",
			"GET /task/:id":           "Poll task status",
			"GET /tasks":              "List tasks, newest first",
			"DELETE /task/:id":        "Delete task and artifact",
			"GET /download/:id":       "Download the finished artifact",
			"POST /download-multiple": "Download several artifacts as a ZIP",
			"POST /cleanup":           "Age-based reap of stale tasks",
			"POST /cleanup-session":   "Release everything this session owns",
			"GET /video-info":         "Probe a source URL",
			"GET /search":             "Search the source site",
			"GET /qualities":          "List quality tiers",
			"GET /ws/tasks/:id":       "WebSocket progress for one task",
			"GET /ws/tasks":           "WebSocket progress for all tasks",
		},
	})
}
