package types

import "time"

// JobStatus represents the current status of a conversion job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether a status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// MediaKind represents the kind of media a job produces
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// Job represents a conversion job tracked by the store
type Job struct {
	ID               string     `json:"id"`
	Status           JobStatus  `json:"status"`
	Progress         float64    `json:"progress"`
	Message          string     `json:"message"`
	SourceURL        string     `json:"url"`
	Quality          string     `json:"quality"`
	Kind             MediaKind  `json:"kind"`
	StartTime        *int       `json:"-"`
	EndTime          *int       `json:"-"`
	Title            string     `json:"title,omitempty"`
	ArtifactPath     string     `json:"-"`
	ArtifactFilename string     `json:"filename,omitempty"`
	WorkDir          string     `json:"-"`
	Error            string     `json:"error,omitempty"`
	SessionID        string     `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}
