package app

import (
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/data/repos"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

type Repos struct {
	CollabSession   repos.CollabSessionRepo
	AnnotationBatch repos.AnnotationBatchRepo
	AnnotationItem  repos.AnnotationItemRepo
	ChangeSet       repos.ChangeSetRepo
	ChangeItem      repos.ChangeItemRepo
	ReviewTask      repos.ReviewTaskRepo
	Entity          repos.EntityRepo
	EntityAlias     repos.EntityAliasRepo
	EntityMention   repos.EntityMentionRepo
	DocumentNode    repos.DocumentNodeRepo
	TextSpan        repos.TextSpanRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		CollabSession:   repos.NewCollabSessionRepo(db, log),
		AnnotationBatch: repos.NewAnnotationBatchRepo(db, log),
		AnnotationItem:  repos.NewAnnotationItemRepo(db, log),
		ChangeSet:       repos.NewChangeSetRepo(db, log),
		ChangeItem:      repos.NewChangeItemRepo(db, log),
		ReviewTask:      repos.NewReviewTaskRepo(db, log),
		Entity:          repos.NewEntityRepo(db, log),
		EntityAlias:     repos.NewEntityAliasRepo(db, log),
		EntityMention:   repos.NewEntityMentionRepo(db, log),
		DocumentNode:    repos.NewDocumentNodeRepo(db, log),
		TextSpan:        repos.NewTextSpanRepo(db, log),
	}
}
