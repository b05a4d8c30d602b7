package types

// ConvertRequest is the body of POST /convert
type ConvertRequest struct {
	URL       string       `json:"url" binding:"required"`
	Quality   AudioQuality `json:"quality"`
	StartTime *int         `json:"start_time,omitempty"` // seconds
	EndTime   *int         `json:"end_time,omitempty"`   // seconds
}

// VideoConvertRequest is the body of POST /convert-video
type VideoConvertRequest struct {
	URL       string       `json:"url" binding:"required"`
	Quality   VideoQuality `json:"quality"`
	StartTime *int         `json:"start_time,omitempty"`
	EndTime   *int         `json:"end_time,omitempty"`
}

// ConvertResponse is returned when a job has been accepted
type ConvertResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TaskStatusResponse is the poll shape of GET /task/:id
type TaskStatusResponse struct {
	TaskID      string  `json:"task_id"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
	Message     string  `json:"message"`
	Title       string  `json:"title,omitempty"`
	DownloadURL string  `json:"download_url,omitempty"`
	Error       string  `json:"error,omitempty"`
	CreatedAt   string  `json:"created_at"`
	CompletedAt string  `json:"completed_at,omitempty"`
}

// MediaInfo holds probe metadata for a source URL
type MediaInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Duration    int    `json:"duration"`
	Uploader    string `json:"uploader"`
	ViewCount   int64  `json:"view_count"`
	UploadDate  string `json:"upload_date"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
	WebpageURL  string `json:"webpage_url,omitempty"`
}

// DownloadMultipleRequest is the body of POST /download-multiple
type DownloadMultipleRequest struct {
	TaskIDs []string `json:"task_ids" binding:"required"`
}
