package app

import (
	"github.com/sailing-innocent/SailZen/internal/server"
)

func wireServer(h Handlers) *server.Server {
	return server.NewServer(server.RouterConfig{
		HealthHandler:     h.Health,
		SessionHandler:    h.Session,
		AnnotationHandler: h.Annotation,
		ChangeSetHandler:  h.ChangeSet,
		ReviewHandler:     h.Review,
		EntityHandler:     h.Entity,
	})
}
