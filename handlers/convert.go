package handlers

import (
	"net/http"
	"strconv"

	"mediagrab/middleware"
	"mediagrab/services"
	"mediagrab/types"

	"github.com/gin-gonic/gin"
)

// ConvertHandler handles job submission and source inspection endpoints
type ConvertHandler struct {
	executor  *services.Executor
	sessions  *services.SessionRegistry
	extractor services.Extractor
}

// NewConvertHandler creates a new convert handler
func NewConvertHandler(executor *services.Executor, sessions *services.SessionRegistry, extractor services.Extractor) *ConvertHandler {
	return &ConvertHandler{
		executor:  executor,
		sessions:  sessions,
		extractor: extractor,
	}
}

// ConvertAudio queues an audio conversion job
func (h *ConvertHandler) ConvertAudio(c *gin.Context) {
	var req types.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if !services.ValidSourceURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL must be a valid YouTube URL"})
		return
	}
	quality := req.Quality
	if quality == "" {
		quality = types.AudioQualityMedium
	}
	if !quality.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown audio quality: " + string(quality)})
		return
	}

	h.submit(c, services.NewJobInput{
		SourceURL: req.URL,
		Quality:   string(quality),
		Kind:      types.MediaKindAudio,
		Title:     "Unknown",
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}, "Download task has been queued")
}

// ConvertVideo queues a video download job
func (h *ConvertHandler) ConvertVideo(c *gin.Context) {
	var req types.VideoConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if !services.ValidSourceURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL must be a valid YouTube URL"})
		return
	}
	quality := req.Quality
	if quality == "" {
		quality = types.VideoQuality720
	}
	if !quality.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown video quality: " + string(quality)})
		return
	}

	h.submit(c, services.NewJobInput{
		SourceURL: req.URL,
		Quality:   string(quality),
		Kind:      types.MediaKindVideo,
		Title:     "Unknown",
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}, "Video download task has been queued")
}

func (h *ConvertHandler) submit(c *gin.Context, input services.NewJobInput, message string) {
	input.SessionID = middleware.SessionID(c)

	job, err := h.executor.Submit(input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create download task: " + err.Error()})
		return
	}
	h.sessions.AttachJob(input.SessionID, job.ID)

	c.JSON(http.StatusAccepted, types.ConvertResponse{
		TaskID:  job.ID,
		Status:  string(job.Status),
		Message: message,
	})
}

// MediaInfo returns probe metadata for a source URL without downloading
func (h *ConvertHandler) MediaInfo(c *gin.Context) {
	sourceURL := c.Query("url")
	if sourceURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'url' is required"})
		return
	}
	if !services.ValidSourceURL(sourceURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL must be a valid YouTube URL"})
		return
	}

	info, err := h.extractor.Probe(c.Request.Context(), sourceURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to get video info", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

// Search runs a text search against the source site
func (h *ConvertHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'query' is required"})
		return
	}
	maxResults := 10
	if raw := c.Query("max_results"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			maxResults = n
		}
	}
	if maxResults > 50 {
		maxResults = 50
	}

	results, err := h.extractor.Search(c.Request.Context(), query, maxResults)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

// Qualities lists the available audio and video quality tiers
func (h *ConvertHandler) Qualities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"audio_qualities": gin.H{
			"low":    gin.H{"bitrate": "96kbps", "description": "Low quality, smaller file size"},
			"medium": gin.H{"bitrate": "128kbps", "description": "Medium quality, balanced"},
			"high":   gin.H{"bitrate": "192kbps", "description": "High quality, larger file size"},
			"ultra":  gin.H{"bitrate": "320kbps", "description": "Ultra quality, largest file size"},
		},
		"video_qualities": gin.H{
			"360p":  gin.H{"resolution": "360p", "description": "Low quality, smaller file size"},
			"480p":  gin.H{"resolution": "480p", "description": "Standard quality, balanced size"},
			"720p":  gin.H{"resolution": "720p", "description": "High quality HD, larger file size"},
			"1080p": gin.H{"resolution": "1080p", "description": "Ultra quality Full HD, largest file size"},
			"best":  gin.H{"resolution": "Best", "description": "Best available quality"},
		},
	})
}
