package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/archivist-go/api/handlers"
	"github.com/yourusername/archivist-go/api/middleware"
	"github.com/yourusername/archivist-go/internal/app"
)

// SetupRouter sets up the HTTP control plane for runs
func SetupRouter(runMgr *app.RunManager, log *zap.Logger, logsDir string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	healthHandler := handlers.NewHealthHandler(runMgr)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		runHandler := handlers.NewRunHandler(runMgr, log)
		logHandler := handlers.NewLogHandler(logsDir, runMgr)

		runs := v1.Group("/runs")
		{
			runs.POST("", runHandler.StartRun)
			runs.GET("", runHandler.ListRuns)
			runs.GET("/:id", runHandler.GetRun)
			runs.POST("/:id/cancel", runHandler.CancelRun)
			runs.GET("/:id/logs", logHandler.GetRunLogs)
		}

		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "not found"})
	})

	return router
}
