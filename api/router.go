package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/kara-dl-go/api/handlers"
	"github.com/yourusername/kara-dl-go/api/middleware"
	"github.com/yourusername/kara-dl-go/internal/app"
	"github.com/yourusername/kara-dl-go/pkg/logger"
)

// RouterDeps holds everything the HTTP surface talks to
type RouterDeps struct {
	QueueMgr    *app.QueueManager
	DownloadMgr *app.DownloadManager
	Blacklist   *app.BlacklistService
	Bulk        *app.BulkDownloader
	Events      *app.EventHub
	Logger      *zap.Logger
	MultiLogger *logger.MultiLogger

	// Gatherer backs the metrics endpoint; nil disables it
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(deps.Logger, deps.MultiLogger))
	router.Use(middleware.Recovery(deps.Logger, deps.MultiLogger))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(deps.QueueMgr, deps.DownloadMgr)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	if deps.Gatherer != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if deps.Events != nil {
		wsHandler := handlers.NewQueueWebSocketHandler(deps.Events, deps.Logger)
		router.GET("/ws/queue", wsHandler.HandleWebSocket)
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(deps.QueueMgr, deps.Bulk, deps.Logger)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.AddDownloads)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.DELETE("", downloadHandler.EmptyDownloads)
			downloads.GET("/pending", downloadHandler.ListPending)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.POST("/recovery", downloadHandler.Recover)
			downloads.POST("/sync", downloadHandler.Sync)
			downloads.GET("/:uuid", downloadHandler.GetDownload)
			downloads.PUT("/:uuid/status", downloadHandler.UpdateStatus)
			downloads.POST("/:uuid/retry", downloadHandler.RetryDownload)
			downloads.DELETE("/:uuid", downloadHandler.DeleteDownload)
		}

		blacklistHandler := handlers.NewBlacklistHandler(deps.Blacklist, deps.Logger)
		criteria := v1.Group("/blacklist/criteria")
		{
			criteria.GET("", blacklistHandler.ListCriteria)
			criteria.POST("", blacklistHandler.AddCriterion)
			criteria.DELETE("/:id", blacklistHandler.RemoveCriterion)
		}

		if deps.MultiLogger != nil {
			logHandler := handlers.NewLogHandler(deps.MultiLogger.GetLogsDir())
			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/export", logHandler.ExportLogs)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
