package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediagrab/types"
	"mediagrab/websocket"
)

const (
	fetchMaxRetries = 2
	fetchRetryDelay = 2 * time.Second
)

// Executor runs job pipelines as background units of work. Each job gets
// one worker slot and its own working directory; the job store is the only
// shared mutable state between jobs.
type Executor struct {
	store      *JobStore
	workspace  *Workspace
	extractor  Extractor
	transcoder *Transcoder
	hub        websocket.Hub
	queue      chan string
	maxWorkers int
	retryDelay time.Duration
}

// NewExecutor creates an executor. The hub may be nil; progress then goes
// only to the job store.
func NewExecutor(store *JobStore, workspace *Workspace, extractor Extractor, transcoder *Transcoder, hub websocket.Hub, maxWorkers int) *Executor {
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	return &Executor{
		store:      store,
		workspace:  workspace,
		extractor:  extractor,
		transcoder: transcoder,
		hub:        hub,
		queue:      make(chan string, 100),
		maxWorkers: maxWorkers,
		retryDelay: fetchRetryDelay,
	}
}

// Start launches the worker pool.
func (e *Executor) Start() {
	for i := 0; i < e.maxWorkers; i++ {
		go e.worker()
	}
}

// Submit creates a queued job record and hands it to the worker pool. The
// record is rolled back when the queue cannot accept more work, so a failed
// submission never leaves a job behind.
func (e *Executor) Submit(input NewJobInput) (types.Job, error) {
	job := e.store.Create(input)
	select {
	case e.queue <- job.ID:
		return job, nil
	default:
		e.store.Delete(job.ID)
		return types.Job{}, errors.New("job queue is full")
	}
}

func (e *Executor) worker() {
	for jobID := range e.queue {
		e.run(jobID)
	}
}

// run advances one job through probe, fetch, locate, transcode and finalize.
func (e *Executor) run(jobID string) {
	job, ok := e.store.Get(jobID)
	if !ok || job.Status != types.JobStatusQueued {
		// Deleted while queued: advisory cancellation, nothing to do.
		return
	}

	ctx := context.Background()
	e.setStatus(jobID, types.JobStatusProcessing, "Starting download...")

	sourceURL := CleanSourceURL(job.SourceURL)

	// Probe is best-effort: a failure means a placeholder title, not a
	// failed job.
	title := job.Title
	if info, err := e.extractor.Probe(ctx, sourceURL); err == nil {
		title = info.Title
		e.store.Update(jobID, func(j *types.Job) { j.Title = info.Title })
	} else {
		log.Printf("Could not probe title for job %s: %v", jobID, err)
	}

	workDir, err := e.workspace.AllocateWorkDir(jobID)
	if err != nil {
		e.fail(jobID, fmt.Sprintf("could not allocate working directory: %v", err))
		return
	}
	e.store.Update(jobID, func(j *types.Job) { j.WorkDir = workDir })

	e.setProgress(jobID, 20, "Downloading media...")

	if err := e.fetchWithRetries(ctx, jobID, sourceURL, job, workDir); err != nil {
		e.fail(jobID, err.Error())
		return
	}
	e.setProgress(jobID, 70, "Download complete, processing...")

	extensions := audioExtensions
	if job.Kind == types.MediaKindVideo {
		extensions = videoExtensions
	}
	rawPath, found := e.workspace.FindArtifact(jobID, extensions)
	if !found {
		e.fail(jobID, "no output produced")
		return
	}

	if title == "" || title == "Unknown" {
		if embedded := ReadEmbeddedTitle(rawPath); embedded != "" {
			title = embedded
			e.store.Update(jobID, func(j *types.Job) { j.Title = embedded })
		}
	}
	base := SanitizeFilename(title)

	if job.Kind == types.MediaKindAudio {
		e.finalizeAudio(ctx, jobID, job, workDir, rawPath, base)
	} else {
		e.finalizeVideo(jobID, workDir, rawPath, base)
	}
}

func (e *Executor) fetchWithRetries(ctx context.Context, jobID, sourceURL string, job types.Job, workDir string) error {
	format := types.AudioQuality(job.Quality).FormatSelector()
	if job.Kind == types.MediaKindVideo {
		format = types.VideoQuality(job.Quality).FormatSelector()
	}

	opts := FetchOptions{
		OutputTemplate: filepath.Join(workDir, jobID+".%(ext)s"),
		Format:         format,
		StartTime:      job.StartTime,
		EndTime:        job.EndTime,
		Progress: func(percent float64) {
			// Map the raw download percentage into the 20-70 band.
			e.setProgress(jobID, 20+percent*0.5, fmt.Sprintf("Downloading: %.1f%%", percent))
		},
	}

	var lastErr error
	for attempt := 0; attempt <= fetchMaxRetries; attempt++ {
		lastErr = e.extractor.Fetch(ctx, sourceURL, opts)
		if lastErr == nil {
			return nil
		}
		log.Printf("Fetch attempt %d for job %s failed: %v", attempt+1, jobID, lastErr)
		if attempt < fetchMaxRetries {
			e.store.Update(jobID, func(j *types.Job) {
				j.Message = fmt.Sprintf("Download failed, retrying... (attempt %d)", attempt+2)
			})
			time.Sleep(e.retryDelay)
		}
	}
	return fmt.Errorf("download failed after %d attempts: %v", fetchMaxRetries+1, lastErr)
}

// finalizeAudio runs the conversion chain and completes the job. Conversion
// exhaustion is a degraded completion, never a failure: the original
// container is served and the error field carries an advisory note.
func (e *Executor) finalizeAudio(ctx context.Context, jobID string, job types.Job, workDir, rawPath, base string) {
	e.setProgress(jobID, 85, "Converting to MP3...")

	outPath, filename := ReserveFinalName(workDir, base, "mp3")
	err := e.transcoder.Run(ctx, rawPath, outPath, types.AudioQuality(job.Quality))
	if err == nil {
		if outPath != rawPath {
			if rmErr := os.Remove(rawPath); rmErr != nil {
				log.Printf("Could not delete intermediate file for job %s: %v", jobID, rmErr)
			}
		}
		e.complete(jobID, outPath, filename, "Conversion completed", "")
		return
	}

	// Degrade gracefully: deliver the original container.
	ext := strings.TrimPrefix(filepath.Ext(rawPath), ".")
	finalPath, finalName := ReserveFinalName(workDir, base, ext)
	if mvErr := os.Rename(rawPath, finalPath); mvErr != nil {
		e.fail(jobID, fmt.Sprintf("could not finalize artifact: %v", mvErr))
		return
	}
	message := fmt.Sprintf("Download completed but conversion to MP3 failed. Original %s file available.", strings.ToUpper(ext))
	e.complete(jobID, finalPath, finalName, message, "MP3 conversion failed, but original audio file is available")
}

func (e *Executor) finalizeVideo(jobID, workDir, rawPath, base string) {
	ext := strings.TrimPrefix(filepath.Ext(rawPath), ".")
	finalPath, finalName := ReserveFinalName(workDir, base, ext)
	if err := os.Rename(rawPath, finalPath); err != nil {
		e.fail(jobID, fmt.Sprintf("could not finalize artifact: %v", err))
		return
	}
	e.complete(jobID, finalPath, finalName, "Download completed", "")
}

func (e *Executor) complete(jobID, artifactPath, filename, message, advisoryErr string) {
	now := time.Now()
	updated := e.store.Update(jobID, func(j *types.Job) {
		j.Status = types.JobStatusCompleted
		j.Progress = 100
		j.Message = message
		j.ArtifactPath = artifactPath
		j.ArtifactFilename = filename
		j.Error = advisoryErr
		j.CompletedAt = &now
	})
	if !updated {
		// Record deleted mid-flight; completion is a no-op.
		return
	}
	e.broadcast(jobID, "complete", types.JobStatusCompleted, message, 100)
	log.Printf("Job %s completed: %s", jobID, filename)
}

// fail marks the job failed and reclaims its working directory.
func (e *Executor) fail(jobID, cause string) {
	if err := e.workspace.DeleteWorkDir(jobID); err != nil {
		log.Printf("Could not remove work dir for failed job %s: %v", jobID, err)
	}

	now := time.Now()
	updated := e.store.Update(jobID, func(j *types.Job) {
		j.Status = types.JobStatusFailed
		j.Message = "Download failed: " + cause
		j.Error = cause
		j.CompletedAt = &now
	})
	if !updated {
		return
	}
	e.broadcast(jobID, "error", types.JobStatusFailed, cause, 0)
	log.Printf("Job %s failed: %s", jobID, cause)
}

func (e *Executor) setStatus(jobID string, status types.JobStatus, message string) {
	e.store.Update(jobID, func(j *types.Job) {
		j.Status = status
		j.Message = message
	})
	e.broadcast(jobID, "status", status, message, 0)
}

// setProgress raises a job's progress. Updates are last-value-wins but
// clamped so sampled progress never decreases.
func (e *Executor) setProgress(jobID string, percent float64, message string) {
	var current float64
	e.store.Update(jobID, func(j *types.Job) {
		if percent > j.Progress {
			j.Progress = percent
		}
		j.Message = message
		current = j.Progress
	})
	e.broadcast(jobID, "progress", types.JobStatusProcessing, message, current)
}

func (e *Executor) broadcast(jobID, msgType string, status types.JobStatus, message string, progress float64) {
	if e.hub == nil {
		return
	}
	e.hub.BroadcastProgress(jobID, msgType, string(status), message, progress)
}
