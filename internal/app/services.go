package app

import (
	"strings"

	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
	"github.com/sailing-innocent/SailZen/internal/services"
)

type Services struct {
	Session    services.SessionService
	Annotation services.AnnotationService
	ChangeSet  services.ChangeSetService
	Review     services.ReviewService
	Entity     services.EntityService
	Extractor  services.ExtractionClient
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("Wiring services...")

	var extractor services.ExtractionClient
	switch strings.ToLower(cfg.ExtractorProvider) {
	case "openai":
		client, err := services.NewOpenAIExtractionClient(log)
		if err != nil {
			return Services{}, err
		}
		extractor = client
	case "none":
		// Suggestion endpoints respond 503 when no extractor is wired.
	default:
		extractor = services.NewMockExtractionClient(log)
	}

	changeSet := services.NewChangeSetService(
		db, log,
		r.ChangeSet, r.ChangeItem,
		r.AnnotationBatch, r.AnnotationItem,
		r.Entity, r.EntityAlias, r.EntityMention,
	)

	return Services{
		Session:    services.NewSessionService(db, log, r.CollabSession, r.DocumentNode, r.Entity, r.TextSpan, r.EntityMention),
		Annotation: services.NewAnnotationService(db, log, r.AnnotationBatch, r.AnnotationItem, r.DocumentNode, r.TextSpan),
		ChangeSet:  changeSet,
		Review:     services.NewReviewService(db, log, r.ReviewTask, changeSet, r.ChangeSet),
		Entity:     services.NewEntityService(db, log, r.Entity, r.EntityAlias, r.EntityMention),
		Extractor:  extractor,
	}, nil
}
