package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotenv loads a .env file when one is present next to the binary.
func LoadDotenv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}
}

// GetDataDir returns the directory that holds per-job working directories.
func GetDataDir() string {
	if custom := os.Getenv("MEDIAGRAB_DATA_DIR"); custom != "" {
		return custom
	}
	return filepath.Join(".", "data")
}

// GetExtractorBinary returns the yt-dlp binary to invoke.
func GetExtractorBinary() string {
	if bin := os.Getenv("MEDIAGRAB_YTDLP"); bin != "" {
		return bin
	}
	return "yt-dlp"
}

// GetWorkerCount returns how many jobs may run concurrently.
func GetWorkerCount() int {
	if raw := os.Getenv("MEDIAGRAB_WORKERS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 4
}

// GetRetentionDays returns the default age threshold for the reaper.
func GetRetentionDays() int {
	if raw := os.Getenv("MEDIAGRAB_RETENTION_DAYS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 7
}
