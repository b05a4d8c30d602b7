package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// workDirPrefix names per-job directories under the data dir. Job ids are
// unique, so directory allocation is collision-free by construction.
const workDirPrefix = "job_"

// audioExtensions lists the container formats the extractor may produce for
// audio fetches, in preference order.
var audioExtensions = []string{"m4a", "webm", "mp3", "opus", "aac", "mp4"}

// videoExtensions lists the containers a video fetch may produce.
var videoExtensions = []string{"mp4", "mkv", "webm"}

var (
	invalidFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]`)
	whitespaceRuns       = regexp.MustCompile(`\s+`)
)

// Workspace allocates, locates and destroys per-job working directories
// under a single base directory.
type Workspace struct {
	baseDir string
}

// NewWorkspace creates the workspace, making sure the base directory exists.
func NewWorkspace(baseDir string) (*Workspace, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", baseDir, err)
	}
	return &Workspace{baseDir: baseDir}, nil
}

// BaseDir returns the workspace root.
func (w *Workspace) BaseDir() string {
	return w.baseDir
}

// WorkDirPath returns the working directory path for a job id.
func (w *Workspace) WorkDirPath(jobID string) string {
	return filepath.Join(w.baseDir, workDirPrefix+jobID)
}

// WorkDirExists reports whether a job's working directory is on disk.
func (w *Workspace) WorkDirExists(jobID string) bool {
	info, err := os.Stat(w.WorkDirPath(jobID))
	return err == nil && info.IsDir()
}

// AllocateWorkDir creates the working directory for a job.
func (w *Workspace) AllocateWorkDir(jobID string) (string, error) {
	dir := w.WorkDirPath(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create work dir %s: %w", dir, err)
	}
	return dir, nil
}

// DeleteWorkDir removes a job's working directory and everything in it.
// Idempotent: a missing directory is not an error.
func (w *Workspace) DeleteWorkDir(jobID string) error {
	return os.RemoveAll(w.WorkDirPath(jobID))
}

// FindArtifact locates the file a fetch produced for a job. It first checks
// <jobID>.<ext> for the expected extensions of the media kind, then falls
// back to any non-empty media file in the directory.
func (w *Workspace) FindArtifact(jobID string, extensions []string) (string, bool) {
	dir := w.WorkDirPath(jobID)

	for _, ext := range extensions {
		candidate := filepath.Join(dir, jobID+"."+ext)
		if info, err := os.Stat(candidate); err == nil && info.Size() > 0 {
			return candidate, true
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(entry.Name())), ".")
		if !containsExt(extensions, ext) && ext != "mkv" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return path, true
		}
	}
	return "", false
}

func containsExt(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

// SanitizeFilename strips path separators and shell-hostile characters,
// collapses whitespace runs, trims, and caps the result at 100 runes.
// An empty result becomes "Unknown".
func SanitizeFilename(raw string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(raw, "")
	sanitized = whitespaceRuns.ReplaceAllString(sanitized, " ")
	sanitized = strings.TrimSpace(sanitized)
	if runes := []rune(sanitized); len(runes) > 100 {
		sanitized = strings.TrimSpace(string(runes[:100]))
	}
	if sanitized == "" {
		return "Unknown"
	}
	return sanitized
}

// ReserveFinalName picks a filename in dir for the desired base name and
// extension. It never overwrites: when "name.ext" is taken it probes
// "name (1).ext", "name (2).ext" and so on until a free slot is found.
func ReserveFinalName(dir, base, ext string) (string, string) {
	filename := base + "." + ext
	path := filepath.Join(dir, filename)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, filename
		}
		filename = fmt.Sprintf("%s (%d).%s", base, counter, ext)
		path = filepath.Join(dir, filename)
	}
}

// ReapOrphans removes working directories that have no live job record or
// are older than maxAge. Individual failures are logged and do not abort
// the sweep. Returns the number of directories removed.
func (w *Workspace) ReapOrphans(maxAge time.Duration, isLive func(jobID string) bool) int {
	entries, err := os.ReadDir(w.baseDir)
	if err != nil {
		log.Printf("Orphan reap could not read %s: %v", w.baseDir, err)
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), workDirPrefix) {
			continue
		}
		jobID := strings.TrimPrefix(entry.Name(), workDirPrefix)

		stale := !isLive(jobID)
		if !stale {
			if info, err := entry.Info(); err == nil && info.ModTime().Before(cutoff) {
				stale = true
			}
		}
		if !stale {
			continue
		}

		if err := os.RemoveAll(filepath.Join(w.baseDir, entry.Name())); err != nil {
			log.Printf("Could not reap work dir %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed
}

// ContentType returns the MIME type to serve for an artifact path.
func ContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	case ".opus":
		return "audio/opus"
	case ".aac":
		return "audio/aac"
	case ".mp4":
		return "video/mp4"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}
