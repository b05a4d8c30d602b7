package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"mediagrab/config"
	"mediagrab/handlers"
	"mediagrab/middleware"
	"mediagrab/services"
	"mediagrab/types"
	"mediagrab/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// stubExtractor answers probes and searches canned data and "downloads" by
// writing a small file where the real tool would.
type stubExtractor struct {
	probeErr error
	fetchErr error
	title    string
	ext      string
}

func (s *stubExtractor) Probe(ctx context.Context, sourceURL string) (*types.MediaInfo, error) {
	if s.probeErr != nil {
		return nil, s.probeErr
	}
	title := s.title
	if title == "" {
		title = "Stub Track"
	}
	return &types.MediaInfo{ID: "stub", Title: title, Duration: 240, Uploader: "Stub Channel"}, nil
}

func (s *stubExtractor) Fetch(ctx context.Context, sourceURL string, opts services.FetchOptions) error {
	if s.fetchErr != nil {
		return s.fetchErr
	}
	if opts.Progress != nil {
		opts.Progress(100)
	}
	ext := s.ext
	if ext == "" {
		ext = "m4a"
	}
	path := opts.OutputTemplate[:len(opts.OutputTemplate)-len(".%(ext)s")] + "." + ext
	return os.WriteFile(path, []byte("stub media"), 0o644)
}

func (s *stubExtractor) Search(ctx context.Context, query string, maxResults int) ([]types.MediaInfo, error) {
	return []types.MediaInfo{
		{ID: "r1", Title: "Result One"},
		{ID: "r2", Title: "Result Two"},
	}, nil
}

// copyConvert stands in for the ffmpeg chain.
type copyConvert struct{}

func (copyConvert) Name() string { return "copy" }
func (copyConvert) Convert(_ context.Context, in, out string, _ types.AudioQuality) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

type failConvert struct{}

func (failConvert) Name() string { return "fail" }
func (failConvert) Convert(_ context.Context, _, _ string, _ types.AudioQuality) error {
	return errors.New("conversion unavailable")
}

// testServer wires the full handler stack over fakes, mirroring the
// production route table.
type testServer struct {
	router    *gin.Engine
	store     *services.JobStore
	workspace *services.Workspace
	sessions  *services.SessionRegistry
	executor  *services.Executor
	hub       websocket.Hub
}

func newTestServer(t *testing.T, extractor services.Extractor, strategies ...services.Strategy) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	workspace, err := services.NewWorkspace(t.TempDir())
	require.NoError(t, err)

	store := services.NewJobStore()
	sessions := services.NewSessionRegistry(store, workspace)
	settings := config.NewSettings()

	if len(strategies) == 0 {
		strategies = []services.Strategy{copyConvert{}}
	}
	transcoder := services.NewTranscoderWithStrategies(strategies...)

	hub := websocket.NewHub()
	go hub.Run()

	executor := services.NewExecutor(store, workspace, extractor, transcoder, hub, 2)
	executor.Start()

	convertHandler := handlers.NewConvertHandler(executor, sessions, extractor)
	taskHandler := handlers.NewTaskHandler(store, workspace)
	downloadHandler := handlers.NewDownloadHandler(store)
	cleanupHandler := handlers.NewCleanupHandler(store, sessions, workspace)
	settingsHandler := handlers.NewSettingsHandler(settings)
	healthHandler := handlers.NewHealthHandler(store)
	wsHandler := handlers.NewWSHandler(store, hub)

	r := gin.New()
	r.Use(middleware.Session(sessions))

	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/api-info", healthHandler.APIInfo)
	r.GET("/qualities", convertHandler.Qualities)
	r.POST("/convert", convertHandler.ConvertAudio)
	r.POST("/convert-video", convertHandler.ConvertVideo)
	r.GET("/video-info", convertHandler.MediaInfo)
	r.GET("/search", convertHandler.Search)
	r.GET("/task/:id", taskHandler.GetTask)
	r.GET("/tasks", taskHandler.ListTasks)
	r.DELETE("/task/:id", taskHandler.DeleteTask)
	r.GET("/download/:id", downloadHandler.Download)
	r.POST("/download-multiple", downloadHandler.DownloadMultiple)
	r.POST("/cleanup", cleanupHandler.Cleanup)
	r.POST("/cleanup-session", cleanupHandler.CleanupSession)
	r.GET("/ffmpeg-path", settingsHandler.GetFFmpegPath)
	r.GET("/ws/tasks/:id", wsHandler.TaskProgress)
	r.GET("/ws/tasks", wsHandler.AllProgress)

	return &testServer{
		router:    r,
		store:     store,
		workspace: workspace,
		sessions:  sessions,
		executor:  executor,
		hub:       hub,
	}
}

// do runs one request through the router. Cookies from earlier responses can
// be replayed to stay inside a session.
func (ts *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// submitAndWait submits an audio job and polls until it reaches a terminal
// status, returning the final poll response and the session cookie.
func (ts *testServer) submitAndWait(t *testing.T, url string) (types.TaskStatusResponse, *http.Cookie) {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/convert", gin.H{"url": url})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted types.ConvertResponse
	decodeJSON(t, w, &accepted)
	require.NotEmpty(t, accepted.TaskID)

	cookie := sessionCookie(t, w)
	final := ts.waitTerminal(t, accepted.TaskID, 10*time.Second)
	return final, cookie
}

func (ts *testServer) waitTerminal(t *testing.T, taskID string, timeout time.Duration) types.TaskStatusResponse {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		w := ts.do(t, http.MethodGet, "/task/"+taskID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var status types.TaskStatusResponse
		decodeJSON(t, w, &status)
		if types.JobStatus(status.Status).Terminal() {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s did not finish within %s", taskID, timeout)
	return types.TaskStatusResponse{}
}

func audioInput(url string) services.NewJobInput {
	return services.NewJobInput{
		SourceURL: url,
		Quality:   string(types.AudioQualityMedium),
		Kind:      types.MediaKindAudio,
		Title:     "Unknown",
	}
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == middleware.SessionCookie {
			return cookie
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}
