package app

import (
	"gorm.io/gorm"

	httpH "github.com/sailing-innocent/SailZen/internal/http/handlers"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Session    *httpH.SessionHandler
	Annotation *httpH.AnnotationHandler
	ChangeSet  *httpH.ChangeSetHandler
	Review     *httpH.ReviewHandler
	Entity     *httpH.EntityHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(),
		Session:    httpH.NewSessionHandler(log, db, s.Session, s.Annotation, s.ChangeSet, s.Extractor),
		Annotation: httpH.NewAnnotationHandler(db, s.Annotation),
		ChangeSet:  httpH.NewChangeSetHandler(s.ChangeSet),
		Review:     httpH.NewReviewHandler(db, s.Review),
		Entity:     httpH.NewEntityHandler(s.Entity),
	}
}
