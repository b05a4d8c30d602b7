package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"mediagrab/services"
	"mediagrab/types"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles task polling and management endpoints
type TaskHandler struct {
	store     *services.JobStore
	workspace *services.Workspace
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(store *services.JobStore, workspace *services.Workspace) *TaskHandler {
	return &TaskHandler{
		store:     store,
		workspace: workspace,
	}
}

// GetTask returns the polled status of one task
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID := c.Param("id")
	job, ok := h.store.Get(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, statusResponse(job))
}

// ListTasks returns tasks newest-first with an optional status filter
func (h *TaskHandler) ListTasks(c *gin.Context) {
	status := types.JobStatus(c.Query("status"))

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	jobs := h.store.List(status, limit)
	responses := make([]types.TaskStatusResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, statusResponse(job))
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": responses,
		"total": len(responses),
	})
}

// DeleteTask removes a task record and its working directory. Deleting a
// still-running task is advisory: the executor keeps going but its final
// update lands on nothing.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID := c.Param("id")
	if _, ok := h.store.Get(taskID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	if err := h.workspace.DeleteWorkDir(taskID); err != nil {
		log.Printf("Could not delete work dir for task %s: %v", taskID, err)
	}
	h.store.Delete(taskID)

	c.JSON(http.StatusOK, gin.H{"message": "Task and file deleted successfully"})
}

func statusResponse(job types.Job) types.TaskStatusResponse {
	resp := types.TaskStatusResponse{
		TaskID:    job.ID,
		Status:    string(job.Status),
		Progress:  job.Progress,
		Message:   job.Message,
		Title:     job.Title,
		Error:     job.Error,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
	}
	if job.Status == types.JobStatusCompleted && job.ArtifactFilename != "" {
		resp.DownloadURL = "/download/" + job.ID
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return resp
}
