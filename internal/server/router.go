package server

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/sailing-innocent/SailZen/internal/http/handlers"
)

type RouterConfig struct {
	HealthHandler     *httpH.HealthHandler
	SessionHandler    *httpH.SessionHandler
	AnnotationHandler *httpH.AnnotationHandler
	ChangeSetHandler  *httpH.ChangeSetHandler
	ReviewHandler     *httpH.ReviewHandler
	EntityHandler     *httpH.EntityHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api/v1")
	{
		if cfg.SessionHandler != nil {
			api.POST("/collab/sessions", cfg.SessionHandler.Open)
			api.GET("/collab/sessions", cfg.SessionHandler.ListActive)
			api.GET("/collab/sessions/:id", cfg.SessionHandler.Get)
			api.PUT("/collab/sessions/:id/state", cfg.SessionHandler.Advance)
			api.POST("/collab/sessions/:id/close", cfg.SessionHandler.Close)
			api.POST("/collab/sessions/:id/suggestions", cfg.SessionHandler.Suggestions)
			api.GET("/collab/sessions/:id/diff", cfg.SessionHandler.Diff)
			api.POST("/collab/sessions/:id/commit", cfg.SessionHandler.Commit)
		}

		if cfg.AnnotationHandler != nil {
			api.PUT("/collab/annotation-items/:id/status", cfg.AnnotationHandler.SetItemStatus)
			api.GET("/collab/batches/:id/items", cfg.AnnotationHandler.BatchItems)
		}

		if cfg.ChangeSetHandler != nil {
			api.GET("/change-sets", cfg.ChangeSetHandler.List)
			api.GET("/change-sets/:id", cfg.ChangeSetHandler.Get)
			api.GET("/change-sets/:id/items", cfg.ChangeSetHandler.Items)
			api.PUT("/change-sets/:id/apply", cfg.ChangeSetHandler.Apply)
		}

		if cfg.ReviewHandler != nil {
			api.POST("/review-tasks", cfg.ReviewHandler.Create)
			api.GET("/review-tasks", cfg.ReviewHandler.Pending)
			api.GET("/review-tasks/:id", cfg.ReviewHandler.Get)
			api.POST("/review-tasks/:id/approve", cfg.ReviewHandler.Approve)
			api.POST("/review-tasks/:id/reject", cfg.ReviewHandler.Reject)
		}

		if cfg.EntityHandler != nil {
			api.GET("/entities", cfg.EntityHandler.FindByName)
			api.GET("/entities/:id", cfg.EntityHandler.Get)
			api.GET("/entities/:id/mentions", cfg.EntityHandler.Mentions)
		}
	}

	return r
}
