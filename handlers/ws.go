package handlers

import (
	"log"
	"net/http"

	"mediagrab/services"
	"mediagrab/websocket"

	"github.com/gin-gonic/gin"
)

// WSHandler upgrades connections onto the progress hub
type WSHandler struct {
	store *services.JobStore
	hub   websocket.Hub
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(store *services.JobStore, hub websocket.Hub) *WSHandler {
	return &WSHandler{store: store, hub: hub}
}

// TaskProgress subscribes a client to one task's progress frames
func (h *WSHandler) TaskProgress(c *gin.Context) {
	taskID := c.Param("id")
	if _, ok := h.store.Get(taskID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	h.subscribe(c, taskID)
}

// AllProgress subscribes a client to every task's progress frames
func (h *WSHandler) AllProgress(c *gin.Context) {
	h.subscribe(c, websocket.SubscribeAll)
}

func (h *WSHandler) subscribe(c *gin.Context, taskID string) {
	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, taskID)
	h.hub.RegisterClient(client)
	client.StartPumps()
}
