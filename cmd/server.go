package cmd

import (
	"log"
	"os"
	"strconv"
	"time"

	"mediagrab/config"
	"mediagrab/handlers"
	"mediagrab/middleware"
	"mediagrab/services"
	"mediagrab/websocket"

	"github.com/gin-gonic/gin"
)

// StartWebServer starts the web server
func StartWebServer(port int) {
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	workspace, err := services.NewWorkspace(config.GetDataDir())
	if err != nil {
		log.Fatalf("Failed to prepare data directory: %v", err)
	}

	// Initialize services
	store := services.NewJobStore()
	sessions := services.NewSessionRegistry(store, workspace)
	settings := config.NewSettings()
	extractor := services.NewYtDlpExtractor(config.GetExtractorBinary())
	transcoder := services.NewTranscoder(settings, config.GetExtractorBinary())

	hub := websocket.NewHub()
	go hub.Run()

	executor := services.NewExecutor(store, workspace, extractor, transcoder, hub, config.GetWorkerCount())
	executor.Start()

	// Leftover work dirs from a previous run have no record and are swept
	// on startup.
	retention := time.Duration(config.GetRetentionDays()) * 24 * time.Hour
	if removed := workspace.ReapOrphans(retention, func(jobID string) bool {
		_, ok := store.Get(jobID)
		return ok
	}); removed > 0 {
		log.Printf("Startup reap removed %d leftover work dirs", removed)
	}

	// Initialize handlers
	convertHandler := handlers.NewConvertHandler(executor, sessions, extractor)
	taskHandler := handlers.NewTaskHandler(store, workspace)
	downloadHandler := handlers.NewDownloadHandler(store)
	cleanupHandler := handlers.NewCleanupHandler(store, sessions, workspace)
	settingsHandler := handlers.NewSettingsHandler(settings)
	healthHandler := handlers.NewHealthHandler(store)
	wsHandler := handlers.NewWSHandler(store, hub)

	// Setup router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logging())
	r.Use(middleware.CORS())
	r.Use(middleware.Session(sessions))

	setupRoutes(r, convertHandler, taskHandler, downloadHandler, cleanupHandler, settingsHandler, healthHandler, wsHandler)

	portStr := strconv.Itoa(port)
	if serverPort := os.Getenv("SERVER_PORT"); serverPort != "" {
		portStr = serverPort
	}

	log.Printf("mediagrab server starting on port %s", portStr)
	log.Printf("Data directory: %s", workspace.BaseDir())
	if err := r.Run(":" + portStr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRoutes configures all the HTTP routes
func setupRoutes(
	r *gin.Engine,
	convertHandler *handlers.ConvertHandler,
	taskHandler *handlers.TaskHandler,
	downloadHandler *handlers.DownloadHandler,
	cleanupHandler *handlers.CleanupHandler,
	settingsHandler *handlers.SettingsHandler,
	healthHandler *handlers.HealthHandler,
	wsHandler *handlers.WSHandler,
) {
	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/api-info", healthHandler.APIInfo)
	r.GET("/qualities", convertHandler.Qualities)

	// Submission
	r.POST("/convert", convertHandler.ConvertAudio)
	r.POST("/convert-video", convertHandler.ConvertVideo)

	// Source inspection
	r.GET("/video-info", convertHandler.MediaInfo)
	r.GET("/search", convertHandler.Search)

	// Task lifecycle
	r.GET("/task/:id", taskHandler.GetTask)
	r.GET("/tasks", taskHandler.ListTasks)
	r.DELETE("/task/:id", taskHandler.DeleteTask)

	// Artifacts
	r.GET("/download/:id", downloadHandler.Download)
	r.POST("/download-multiple", downloadHandler.DownloadMultiple)

	// Housekeeping
	r.POST("/cleanup", cleanupHandler.Cleanup)
	r.POST("/cleanup-session", cleanupHandler.CleanupSession)

	// Transcoder settings
	r.GET("/check-ffmpeg", settingsHandler.CheckFFmpeg)
	r.POST("/set-ffmpeg-path", settingsHandler.SetFFmpegPath)
	r.GET("/ffmpeg-path", settingsHandler.GetFFmpegPath)

	// WebSocket progress mirror
	r.GET("/ws/tasks/:id", wsHandler.TaskProgress)
	r.GET("/ws/tasks", wsHandler.AllProgress)
}
