package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mediagrab/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor is a fast in-process stand-in for the external tool.
type fakeExtractor struct {
	mu         sync.Mutex
	probeErr   error
	fetchErr   error
	title      string
	ext        string
	fetchCalls int
}

func (f *fakeExtractor) Probe(ctx context.Context, sourceURL string) (*types.MediaInfo, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	title := f.title
	if title == "" {
		title = "Test Track"
	}
	return &types.MediaInfo{ID: "vid", Title: title, Duration: 180}, nil
}

func (f *fakeExtractor) Fetch(ctx context.Context, sourceURL string, opts FetchOptions) error {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()

	if f.fetchErr != nil {
		return f.fetchErr
	}
	if opts.Progress != nil {
		opts.Progress(30)
		opts.Progress(90)
		opts.Progress(100)
	}

	ext := f.ext
	if ext == "" {
		ext = "m4a"
	}
	// "%(ext)s" in the template becomes the real extension.
	path := opts.OutputTemplate[:len(opts.OutputTemplate)-len(".%(ext)s")] + "." + ext
	return os.WriteFile(path, []byte("raw media bytes"), 0o644)
}

func (f *fakeExtractor) Search(ctx context.Context, query string, maxResults int) ([]types.MediaInfo, error) {
	return nil, nil
}

func (f *fakeExtractor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

// copyStrategy converts by copying, so tests need no real encoder.
type copyStrategy struct{}

func (copyStrategy) Name() string { return "copy" }
func (copyStrategy) Convert(_ context.Context, in, out string, _ types.AudioQuality) error {
	return copyFile(in, out)
}

// brokenStrategy always fails.
type brokenStrategy struct{}

func (brokenStrategy) Name() string { return "broken" }
func (brokenStrategy) Convert(_ context.Context, _, _ string, _ types.AudioQuality) error {
	return errors.New("encoder exploded")
}

type executorFixture struct {
	store     *JobStore
	workspace *Workspace
	extractor *fakeExtractor
	executor  *Executor
}

func newExecutorFixture(t *testing.T, extractor *fakeExtractor, strategies ...Strategy) *executorFixture {
	t.Helper()
	store := NewJobStore()
	ws := newTestWorkspace(t)
	if len(strategies) == 0 {
		strategies = []Strategy{copyStrategy{}}
	}
	exec := NewExecutor(store, ws, extractor, NewTranscoderWithStrategies(strategies...), nil, 2)
	exec.retryDelay = time.Millisecond
	exec.Start()
	return &executorFixture{store: store, workspace: ws, extractor: extractor, executor: exec}
}

func (f *executorFixture) waitTerminal(t *testing.T, jobID string, timeout time.Duration) types.Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if job, ok := f.store.Get(jobID); ok && job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state within %s", jobID, timeout)
	return types.Job{}
}

func TestExecutorSuccessPath(t *testing.T) {
	f := newExecutorFixture(t, &fakeExtractor{title: "My: Song?"})

	job, err := f.executor.Submit(newTestInput("https://youtu.be/ok"))
	require.NoError(t, err)

	done := f.waitTerminal(t, job.ID, 5*time.Second)
	assert.Equal(t, types.JobStatusCompleted, done.Status)
	assert.Equal(t, 100.0, done.Progress)
	assert.Empty(t, done.Error)
	assert.Equal(t, "My Song.mp3", done.ArtifactFilename, "title sanitized into the final name")
	assert.NotNil(t, done.CompletedAt)

	// Final artifact exists, intermediate raw file is gone.
	_, err = os.Stat(done.ArtifactPath)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(done.WorkDir, job.ID+".m4a"))
	assert.True(t, os.IsNotExist(err))
}

func TestExecutorProgressNeverDecreases(t *testing.T) {
	f := newExecutorFixture(t, &fakeExtractor{})

	job, err := f.executor.Submit(newTestInput("https://youtu.be/ok"))
	require.NoError(t, err)

	last := -1.0
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		current, ok := f.store.Get(job.ID)
		if ok {
			assert.GreaterOrEqual(t, current.Progress, last, "progress went backwards")
			last = current.Progress
			if current.Status.Terminal() {
				break
			}
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 100.0, last)
}

func TestExecutorProgressClampsRegressions(t *testing.T) {
	f := newExecutorFixture(t, &fakeExtractor{})
	job := f.store.Create(newTestInput("https://youtu.be/x"))

	f.executor.setProgress(job.ID, 60, "ahead")
	f.executor.setProgress(job.ID, 40, "behind")

	got, ok := f.store.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, 60.0, got.Progress, "lower value must not win")
	assert.Equal(t, "behind", got.Message, "message is last-value-wins")
}

func TestExecutorFetchExhaustionFailsJob(t *testing.T) {
	f := newExecutorFixture(t, &fakeExtractor{fetchErr: errors.New("network down")})

	job, err := f.executor.Submit(newTestInput("https://youtu.be/broken"))
	require.NoError(t, err)

	done := f.waitTerminal(t, job.ID, 5*time.Second)
	assert.Equal(t, types.JobStatusFailed, done.Status)
	assert.Contains(t, done.Error, "network down")
	assert.Equal(t, 3, f.extractor.calls(), "two retries after the first attempt")
	assert.False(t, f.workspace.WorkDirExists(job.ID), "failed job's work dir reclaimed")
}

func TestExecutorNoOutputIsFatal(t *testing.T) {
	// Fetch "succeeds" but writes nothing resembling media.
	extractor := &fakeExtractor{ext: "txt"}
	f := newExecutorFixture(t, extractor)

	job, err := f.executor.Submit(newTestInput("https://youtu.be/empty"))
	require.NoError(t, err)

	done := f.waitTerminal(t, job.ID, 5*time.Second)
	assert.Equal(t, types.JobStatusFailed, done.Status)
	assert.Equal(t, "no output produced", done.Error)
	assert.False(t, f.workspace.WorkDirExists(job.ID))
}

func TestExecutorDegradedCompletionWhenTranscodeFails(t *testing.T) {
	f := newExecutorFixture(t, &fakeExtractor{title: "Stubborn"}, brokenStrategy{})

	job, err := f.executor.Submit(newTestInput("https://youtu.be/stubborn"))
	require.NoError(t, err)

	done := f.waitTerminal(t, job.ID, 5*time.Second)
	assert.Equal(t, types.JobStatusCompleted, done.Status, "transcode exhaustion degrades, never fails")
	assert.NotEmpty(t, done.Error, "advisory error recorded")
	assert.Equal(t, "Stubborn.m4a", done.ArtifactFilename, "original container served")

	data, err := os.ReadFile(done.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "raw media bytes", string(data))
}

func TestExecutorProbeFailureIsNonFatal(t *testing.T) {
	f := newExecutorFixture(t, &fakeExtractor{probeErr: errors.New("metadata unavailable")})

	job, err := f.executor.Submit(newTestInput("https://youtu.be/untitled"))
	require.NoError(t, err)

	done := f.waitTerminal(t, job.ID, 5*time.Second)
	assert.Equal(t, types.JobStatusCompleted, done.Status)
	assert.Equal(t, "Unknown.mp3", done.ArtifactFilename, "placeholder title used")
}

func TestExecutorDeletedWhileQueuedIsSkipped(t *testing.T) {
	store := NewJobStore()
	ws := newTestWorkspace(t)
	extractor := &fakeExtractor{}
	exec := NewExecutor(store, ws, extractor, NewTranscoderWithStrategies(copyStrategy{}), nil, 1)
	exec.retryDelay = time.Millisecond
	// Workers not started yet, so the job sits in the queue.

	job, err := exec.Submit(newTestInput("https://youtu.be/gone"))
	require.NoError(t, err)
	require.True(t, store.Delete(job.ID))

	exec.Start()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, extractor.calls(), "deleted queued job never runs")
	assert.False(t, ws.WorkDirExists(job.ID))
}

func TestExecutorVideoJob(t *testing.T) {
	extractor := &fakeExtractor{title: "Clip", ext: "mp4"}
	f := newExecutorFixture(t, extractor)

	input := newTestInput("https://youtu.be/clip")
	input.Kind = types.MediaKindVideo
	input.Quality = string(types.VideoQuality720)

	job, err := f.executor.Submit(input)
	require.NoError(t, err)

	done := f.waitTerminal(t, job.ID, 5*time.Second)
	assert.Equal(t, types.JobStatusCompleted, done.Status)
	assert.Equal(t, "Clip.mp4", done.ArtifactFilename, "video keeps its container")
	assert.Empty(t, done.Error)
}
