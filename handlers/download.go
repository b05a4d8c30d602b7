package handlers

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"

	"mediagrab/services"
	"mediagrab/types"

	"github.com/gin-gonic/gin"
)

// DownloadHandler serves finished artifacts
type DownloadHandler struct {
	store *services.JobStore
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(store *services.JobStore) *DownloadHandler {
	return &DownloadHandler{store: store}
}

// Download streams a completed task's artifact as an attachment. A task
// that has not completed yet, or whose file is gone, is a 404. Never a
// partial file.
func (h *DownloadHandler) Download(c *gin.Context) {
	taskID := c.Param("id")
	job, ok := h.store.Get(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if job.Status != types.JobStatusCompleted || job.ArtifactPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not ready"})
		return
	}

	info, err := os.Stat(job.ArtifactPath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	filename := job.ArtifactFilename
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", services.ContentType(job.ArtifactPath))
	c.Header("Content-Length", strconv.FormatInt(info.Size(), 10))
	c.File(job.ArtifactPath)
}

// DownloadMultiple streams a ZIP archive of the completed artifacts among
// the requested ids. Missing or incomplete tasks are silently skipped.
func (h *DownloadHandler) DownloadMultiple(c *gin.Context) {
	var req types.DownloadMultipleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	type entry struct {
		path     string
		filename string
	}
	var entries []entry
	for _, taskID := range req.TaskIDs {
		job, ok := h.store.Get(taskID)
		if !ok || job.Status != types.JobStatusCompleted || job.ArtifactPath == "" {
			continue
		}
		if _, err := os.Stat(job.ArtifactPath); err != nil {
			continue
		}
		// ArtifactFilename was built from a sanitized title at finalize
		// time, so it is safe as a zip entry name.
		entries = append(entries, entry{
			path:     job.ArtifactPath,
			filename: job.ArtifactFilename,
		})
	}
	if len(entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid completed tasks found"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="mediagrab_downloads.zip"`)
	c.Header("Content-Type", "application/zip")
	c.Status(http.StatusOK)

	zw := zip.NewWriter(c.Writer)
	defer zw.Close()

	seen := make(map[string]int)
	for _, e := range entries {
		name := e.filename
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%d_%s", n, name)
		}
		seen[e.filename]++

		f, err := os.Open(e.path)
		if err != nil {
			log.Printf("Could not open %s for zip: %v", e.path, err)
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			f.Close()
			log.Printf("Could not add %s to zip: %v", name, err)
			continue
		}
		if _, err := io.Copy(w, f); err != nil {
			log.Printf("Could not write %s to zip: %v", name, err)
		}
		f.Close()
	}
}
