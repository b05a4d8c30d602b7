package config

import (
	"os"
	"os/exec"
	"sync"
)

// Settings holds runtime-mutable configuration. It is created once at
// startup and passed to the components that need it, so tests can swap it
// out without touching process state.
type Settings struct {
	mu         sync.RWMutex
	ffmpegPath string
}

// NewSettings creates settings seeded from the environment.
func NewSettings() *Settings {
	s := &Settings{}
	if p := os.Getenv("MEDIAGRAB_FFMPEG"); p != "" {
		s.ffmpegPath = p
	} else if p, err := exec.LookPath("ffmpeg"); err == nil {
		s.ffmpegPath = p
	}
	return s
}

// FFmpegPath returns the configured ffmpeg binary path, empty when none.
func (s *Settings) FFmpegPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ffmpegPath
}

// SetFFmpegPath updates the ffmpeg binary path.
func (s *Settings) SetFFmpegPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ffmpegPath = path
}
