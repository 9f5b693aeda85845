package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func NewRouter(h *Handler, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(RecoveryMiddleware(log))
	r.Use(LoggingMiddleware(log))
	r.Use(CORSMiddleware())

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		proc := v1.Group("/processing")
		{
			proc.POST("/start", h.Start)
			proc.POST("/rollback", h.Rollback)
			proc.POST("/:task_id/pause", h.Pause)
			proc.POST("/:task_id/resume", h.Resume)
			proc.POST("/:task_id/cancel", h.Cancel)
			proc.POST("/:task_id/reset", h.Reset)
		}

		tasks := v1.Group("/tasks")
		{
			tasks.GET("", h.ListTasks)
			tasks.GET("/:task_id", h.GetTask)
			tasks.GET("/:task_id/progress", h.GetProgress)
			tasks.GET("/:task_id/events", h.Events)
		}

		v1.GET("/projects/:project_id/batches", h.ListBatches)
	}

	return r
}
