package handlers

import (
	"net/http"
	"os/exec"

	"mediagrab/config"

	"github.com/gin-gonic/gin"
)

// SettingsHandler exposes the runtime-configurable transcoder settings
type SettingsHandler struct {
	settings *config.Settings
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings *config.Settings) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// CheckFFmpeg reports whether a usable ffmpeg binary is configured
func (h *SettingsHandler) CheckFFmpeg(c *gin.Context) {
	path := h.settings.FFmpegPath()
	if path == "" {
		c.JSON(http.StatusOK, gin.H{"available": false, "path": ""})
		return
	}
	if err := exec.Command(path, "-version").Run(); err != nil {
		c.JSON(http.StatusOK, gin.H{"available": false, "path": path, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": true, "path": path})
}

// SetFFmpegPath updates the ffmpeg binary path after validating it
func (h *SettingsHandler) SetFFmpegPath(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'path' is required"})
		return
	}
	if err := exec.Command(path, "-version").Run(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path does not point at a working ffmpeg binary", "details": err.Error()})
		return
	}

	h.settings.SetFFmpegPath(path)
	c.JSON(http.StatusOK, gin.H{"message": "FFmpeg path updated", "path": path})
}

// GetFFmpegPath returns the currently configured ffmpeg path
func (h *SettingsHandler) GetFFmpegPath(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"path": h.settings.FFmpegPath()})
}
