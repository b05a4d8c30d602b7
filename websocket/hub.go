package websocket

import (
	"log"
	"sync"
	"time"

	"mediagrab/types"
)

// Hub fans job progress frames out to subscribed WebSocket clients. Polling
// the task endpoint stays the canonical contract; the hub is a convenience
// mirror and drops frames rather than block the executor.
type Hub interface {
	Run()
	BroadcastProgress(taskID, msgType, status, message string, progress float64)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
}

type hub struct {
	// Registered clients mapped by task id; "all" subscribers get every frame.
	clients map[string]map[*Client]bool

	broadcast  chan types.ProgressMessage
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() Hub {
	return &hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan types.ProgressMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main event loop.
func (h *hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.taskID] == nil {
				h.clients[client.taskID] = make(map[*Client]bool)
			}
			h.clients[client.taskID][client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client connected for task %s", client.taskID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.taskID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.taskID)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected for task %s", client.taskID)

		case message := <-h.broadcast:
			h.mu.RLock()
			h.deliver(h.clients[message.TaskID], message)
			if message.TaskID != SubscribeAll {
				h.deliver(h.clients[SubscribeAll], message)
			}
			h.mu.RUnlock()
		}
	}
}

// SubscribeAll is the pseudo task id for clients that want every update.
const SubscribeAll = "all"

func (h *hub) deliver(clients map[*Client]bool, message types.ProgressMessage) {
	for client := range clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(clients, client)
		}
	}
}

// BroadcastProgress sends a progress frame for a task. Never blocks.
func (h *hub) BroadcastProgress(taskID, msgType, status, message string, progress float64) {
	frame := types.ProgressMessage{
		TaskID:    taskID,
		Type:      msgType,
		Progress:  progress,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- frame:
	default:
		log.Printf("WebSocket broadcast channel full, dropping frame for task %s", taskID)
	}
}

// RegisterClient registers a new client with the hub.
func (h *hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient removes a client from the hub.
func (h *hub) UnregisterClient(client *Client) {
	h.unregister <- client
}
