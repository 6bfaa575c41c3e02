package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/data/repos"
	"github.com/sailing-innocent/SailZen/internal/data/repos/testutil"
	"github.com/sailing-innocent/SailZen/internal/domain"
)

// fixture wires the full service stack over one rolled-back transaction so
// integration tests never leak rows.
type fixture struct {
	tx *gorm.DB

	sessions    SessionService
	annotations AnnotationService
	changesets  ChangeSetService
	reviews     ReviewService
	entityRead  EntityService

	sessionRepo repos.CollabSessionRepo
	batchRepo   repos.AnnotationBatchRepo
	itemRepo    repos.AnnotationItemRepo
	csRepo      repos.ChangeSetRepo
	ciRepo      repos.ChangeItemRepo
	taskRepo    repos.ReviewTaskRepo
	entityRepo  repos.EntityRepo
	aliasRepo   repos.EntityAliasRepo
	mentionRepo repos.EntityMentionRepo
	spanRepo    repos.TextSpanRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	log := testutil.Logger(t)

	f := &fixture{
		tx:          tx,
		sessionRepo: repos.NewCollabSessionRepo(tx, log),
		batchRepo:   repos.NewAnnotationBatchRepo(tx, log),
		itemRepo:    repos.NewAnnotationItemRepo(tx, log),
		csRepo:      repos.NewChangeSetRepo(tx, log),
		ciRepo:      repos.NewChangeItemRepo(tx, log),
		taskRepo:    repos.NewReviewTaskRepo(tx, log),
		entityRepo:  repos.NewEntityRepo(tx, log),
		aliasRepo:   repos.NewEntityAliasRepo(tx, log),
		mentionRepo: repos.NewEntityMentionRepo(tx, log),
		spanRepo:    repos.NewTextSpanRepo(tx, log),
	}
	nodeRepo := repos.NewDocumentNodeRepo(tx, log)

	f.sessions = NewSessionService(tx, log, f.sessionRepo, nodeRepo, f.entityRepo, f.spanRepo, f.mentionRepo)
	f.annotations = NewAnnotationService(tx, log, f.batchRepo, f.itemRepo, nodeRepo, f.spanRepo)
	f.changesets = NewChangeSetService(tx, log, f.csRepo, f.ciRepo, f.batchRepo, f.itemRepo, f.entityRepo, f.aliasRepo, f.mentionRepo)
	f.reviews = NewReviewService(tx, log, f.taskRepo, f.changesets, f.csRepo)
	f.entityRead = NewEntityService(tx, log, f.entityRepo, f.aliasRepo, f.mentionRepo)
	return f
}

func (f *fixture) seedEdition(t *testing.T) *domain.Edition {
	t.Helper()
	now := time.Now().UTC()
	edition := &domain.Edition{
		ID:        uuid.New(),
		Label:     "test edition",
		Language:  "en",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.tx.Create(edition).Error; err != nil {
		t.Fatalf("seed edition: %v", err)
	}
	return edition
}

func (f *fixture) seedNode(t *testing.T, editionID uuid.UUID, parentID *uuid.UUID, sortIndex int, rawText string) *domain.DocumentNode {
	t.Helper()
	now := time.Now().UTC()
	node := &domain.DocumentNode{
		ID:        uuid.New(),
		EditionID: editionID,
		ParentID:  parentID,
		NodeType:  "paragraph",
		SortIndex: sortIndex,
		Depth:     1,
		RawText:   rawText,
		Path:      "/1",
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.tx.Create(node).Error; err != nil {
		t.Fatalf("seed node: %v", err)
	}
	return node
}

func (f *fixture) seedEntity(t *testing.T, editionID uuid.UUID, name, entityType string) *domain.Entity {
	t.Helper()
	now := time.Now().UTC()
	entity := &domain.Entity{
		ID:            uuid.New(),
		EditionID:     &editionID,
		EntityType:    entityType,
		CanonicalName: name,
		Scope:         domain.EntityScopeEdition,
		Status:        domain.EntityStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.tx.Create(entity).Error; err != nil {
		t.Fatalf("seed entity: %v", err)
	}
	return entity
}
