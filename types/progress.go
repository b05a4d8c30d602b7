package types

import "time"

// ProgressMessage represents a WebSocket progress update frame
type ProgressMessage struct {
	TaskID    string    `json:"taskId"`
	Type      string    `json:"type"` // "progress", "status", "complete", "error"
	Progress  float64   `json:"progress"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
