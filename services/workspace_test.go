package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	return ws
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"reserved characters", `My: Video? <Test>`, "My Video Test"},
		{"path separators", `a/b\c`, "abc"},
		{"whitespace runs", "too   many \t spaces", "too many spaces"},
		{"leading and trailing space", "  padded  ", "padded"},
		{"empty", "", "Unknown"},
		{"only invalid characters", `\/*?:"<>|`, "Unknown"},
		{"pipes and quotes", `what|"now"`, "whatnow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.NotContains(t, got, "/")
			assert.NotContains(t, got, "\\")
		})
	}
}

func TestSanitizeFilenameTruncates(t *testing.T) {
	long := strings.Repeat("a", 250)
	got := SanitizeFilename(long)
	assert.Len(t, []rune(got), 100)
}

func TestReserveFinalNameNeverOverwrites(t *testing.T) {
	dir := t.TempDir()

	path1, name1 := ReserveFinalName(dir, "Title", "mp3")
	assert.Equal(t, "Title.mp3", name1)
	require.NoError(t, os.WriteFile(path1, []byte("x"), 0o644))

	path2, name2 := ReserveFinalName(dir, "Title", "mp3")
	assert.Equal(t, "Title (1).mp3", name2)
	require.NoError(t, os.WriteFile(path2, []byte("y"), 0o644))

	_, name3 := ReserveFinalName(dir, "Title", "mp3")
	assert.Equal(t, "Title (2).mp3", name3)

	data, err := os.ReadFile(path1)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data), "first file untouched")
}

func TestAllocateAndDeleteWorkDir(t *testing.T) {
	ws := newTestWorkspace(t)

	dir, err := ws.AllocateWorkDir("job-1")
	require.NoError(t, err)
	assert.True(t, ws.WorkDirExists("job-1"))
	assert.Equal(t, ws.WorkDirPath("job-1"), dir)

	require.NoError(t, ws.DeleteWorkDir("job-1"))
	assert.False(t, ws.WorkDirExists("job-1"))

	// Idempotent: deleting an already-missing directory is fine.
	require.NoError(t, ws.DeleteWorkDir("job-1"))
}

func TestFindArtifact(t *testing.T) {
	ws := newTestWorkspace(t)
	dir, err := ws.AllocateWorkDir("job-2")
	require.NoError(t, err)

	_, found := ws.FindArtifact("job-2", audioExtensions)
	assert.False(t, found, "empty work dir has no artifact")

	// Empty files are skipped.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "job-2.m4a"), nil, 0o644))
	_, found = ws.FindArtifact("job-2", audioExtensions)
	assert.False(t, found)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "job-2.m4a"), []byte("audio"), 0o644))
	path, found := ws.FindArtifact("job-2", audioExtensions)
	require.True(t, found)
	assert.Equal(t, filepath.Join(dir, "job-2.m4a"), path)
}

func TestFindArtifactFallsBackToAnyMediaFile(t *testing.T) {
	ws := newTestWorkspace(t)
	dir, err := ws.AllocateWorkDir("job-3")
	require.NoError(t, err)

	// Not named after the job id, but a real media file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "something.webm"), []byte("bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))

	path, found := ws.FindArtifact("job-3", audioExtensions)
	require.True(t, found)
	assert.Equal(t, filepath.Join(dir, "something.webm"), path)
}

func TestReapOrphans(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.AllocateWorkDir("live")
	require.NoError(t, err)
	_, err = ws.AllocateWorkDir("orphan")
	require.NoError(t, err)

	removed := ws.ReapOrphans(24*time.Hour, func(jobID string) bool {
		return jobID == "live"
	})

	assert.Equal(t, 1, removed)
	assert.True(t, ws.WorkDirExists("live"), "directory with a live record survives")
	assert.False(t, ws.WorkDirExists("orphan"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", ContentType("song.mp3"))
	assert.Equal(t, "audio/mp4", ContentType("song.M4A"))
	assert.Equal(t, "video/mp4", ContentType("clip.mp4"))
	assert.Equal(t, "video/x-matroska", ContentType("clip.mkv"))
	assert.Equal(t, "application/octet-stream", ContentType("mystery.bin"))
}
