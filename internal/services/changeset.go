package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/data/repos"
	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

type CreateChangeSetInput struct {
	EditionID *uuid.UUID
	SessionID *uuid.UUID
	Source    string
	Reason    string
	CreatedBy string
}

type ChangeSetService interface {
	Create(ctx context.Context, tx *gorm.DB, input CreateChangeSetInput) (*domain.ChangeSet, error)
	Get(ctx context.Context, tx *gorm.DB, changesetID uuid.UUID) (*domain.ChangeSet, error)
	Items(ctx context.Context, tx *gorm.DB, changesetID uuid.UUID) ([]*domain.ChangeItem, error)
	List(ctx context.Context, tx *gorm.DB, editionID, sessionID *uuid.UUID, limit int) ([]*domain.ChangeSet, error)
	FromApprovedBatch(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, sessionID *uuid.UUID, createdBy string) (*domain.ChangeSet, error)
	Apply(ctx context.Context, changesetID uuid.UUID) (*domain.ChangeSet, error)
}

type changeSetService struct {
	db         *gorm.DB
	log        *logger.Logger
	changesets repos.ChangeSetRepo
	items      repos.ChangeItemRepo
	batches    repos.AnnotationBatchRepo
	annItems   repos.AnnotationItemRepo
	entities   repos.EntityRepo
	aliases    repos.EntityAliasRepo
	mentions   repos.EntityMentionRepo
}

func NewChangeSetService(
	db *gorm.DB,
	baseLog *logger.Logger,
	changesets repos.ChangeSetRepo,
	items repos.ChangeItemRepo,
	batches repos.AnnotationBatchRepo,
	annItems repos.AnnotationItemRepo,
	entities repos.EntityRepo,
	aliases repos.EntityAliasRepo,
	mentions repos.EntityMentionRepo,
) ChangeSetService {
	return &changeSetService{
		db:         db,
		log:        baseLog.With("service", "ChangeSetService"),
		changesets: changesets,
		items:      items,
		batches:    batches,
		annItems:   annItems,
		entities:   entities,
		aliases:    aliases,
		mentions:   mentions,
	}
}

func (s *changeSetService) Create(ctx context.Context, tx *gorm.DB, input CreateChangeSetInput) (*domain.ChangeSet, error) {
	if input.Source == "" {
		input.Source = domain.ChangeSetSourceManual
	}
	changeset := &domain.ChangeSet{
		ID:        uuid.New(),
		EditionID: input.EditionID,
		SessionID: input.SessionID,
		Source:    input.Source,
		Reason:    input.Reason,
		Status:    domain.ChangeSetStatusPending,
		CreatedBy: input.CreatedBy,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.changesets.Create(ctx, tx, changeset); err != nil {
		return nil, fmt.Errorf("create change set: %w", err)
	}
	return changeset, nil
}

func (s *changeSetService) Get(ctx context.Context, tx *gorm.DB, changesetID uuid.UUID) (*domain.ChangeSet, error) {
	changeset, err := s.changesets.GetByID(ctx, tx, changesetID)
	if err != nil {
		return nil, fmt.Errorf("get change set: %w", err)
	}
	if changeset == nil {
		return nil, apperr.NotFoundf("change set %s not found", changesetID)
	}
	return changeset, nil
}

func (s *changeSetService) Items(ctx context.Context, tx *gorm.DB, changesetID uuid.UUID) ([]*domain.ChangeItem, error) {
	if _, err := s.Get(ctx, tx, changesetID); err != nil {
		return nil, err
	}
	return s.items.ListByChangeSetID(ctx, tx, changesetID)
}

func (s *changeSetService) List(ctx context.Context, tx *gorm.DB, editionID, sessionID *uuid.UUID, limit int) ([]*domain.ChangeSet, error) {
	return s.changesets.List(ctx, tx, editionID, sessionID, limit)
}

// FromApprovedBatch turns the approved items of a batch into one pending
// change set. Items keep their approval order via seq_no; a brand-new entity's
// insert always precedes the mention that references it by placeholder.
func (s *changeSetService) FromApprovedBatch(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, sessionID *uuid.UUID, createdBy string) (*domain.ChangeSet, error) {
	batch, err := s.batches.GetByID(ctx, tx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if batch == nil {
		return nil, apperr.NotFoundf("annotation batch %s not found", batchID)
	}

	approved, err := s.annItems.ListByBatchID(ctx, tx, batchID, domain.ItemStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list approved items: %w", err)
	}
	if len(approved) == 0 {
		return nil, apperr.InvalidStatef("batch %s has no approved items", batchID)
	}

	changeset, err := s.Create(ctx, tx, CreateChangeSetInput{
		EditionID: &batch.EditionID,
		SessionID: sessionID,
		Source:    domain.ChangeSetSourceCollaborationCommit,
		Reason:    fmt.Sprintf("approved annotations from batch %s", batchID),
		CreatedBy: createdBy,
	})
	if err != nil {
		return nil, err
	}

	seq := 0
	for _, item := range approved {
		switch item.TargetType {
		case domain.TargetTypeEntity:
			n, err := s.appendEntityChanges(ctx, tx, changeset, item, seq)
			if err != nil {
				return nil, err
			}
			seq += n
		default:
			s.log.Warn("skipping unsupported annotation target type", "target_type", item.TargetType, "item_id", item.ID)
		}
	}

	s.log.Info("change set generated", "change_set_id", changeset.ID, "batch_id", batchID, "items", seq)
	return changeset, nil
}

// appendEntityChanges writes the change items for one approved entity
// proposal and returns how many were created.
func (s *changeSetService) appendEntityChanges(ctx context.Context, tx *gorm.DB, changeset *domain.ChangeSet, item *domain.AnnotationItem, seq int) (int, error) {
	var existing *domain.Entity
	if item.TargetID != nil {
		var err error
		existing, err = s.entities.GetByID(ctx, tx, *item.TargetID)
		if err != nil {
			return 0, fmt.Errorf("get entity: %w", err)
		}
	}

	if existing != nil {
		change := &domain.ChangeItem{
			ID:          uuid.New(),
			ChangeSetID: changeset.ID,
			SeqNo:       seq,
			TargetTable: domain.ChangeTableEntities,
			TargetID:    &existing.ID,
			Operation:   domain.ChangeOpUpdate,
			OldValue: datatypes.JSONMap{
				"canonical_name": existing.CanonicalName,
				"entity_type":    existing.EntityType,
				"description":    existing.Description,
			},
			NewValue: entityValues(item.Payload),
			SpanID:   item.SpanID,
		}
		if _, err := s.items.Create(ctx, tx, change); err != nil {
			return 0, fmt.Errorf("create change item: %w", err)
		}
		return 1, nil
	}

	created := 0
	insert := &domain.ChangeItem{
		ID:          uuid.New(),
		ChangeSetID: changeset.ID,
		SeqNo:       seq,
		TargetTable: domain.ChangeTableEntities,
		Operation:   domain.ChangeOpInsert,
		NewValue:    entityValues(item.Payload),
		SpanID:      item.SpanID,
		Notes:       fmt.Sprintf("new entity from annotation %s", item.ID),
	}
	if aliases, ok := item.Payload["aliases"]; ok {
		insert.NewValue["aliases"] = aliases
	}
	if _, err := s.items.Create(ctx, tx, insert); err != nil {
		return 0, fmt.Errorf("create change item: %w", err)
	}
	created++

	if item.SpanID != nil {
		name, _ := item.Payload["canonical_name"].(string)
		mention := &domain.ChangeItem{
			ID:          uuid.New(),
			ChangeSetID: changeset.ID,
			SeqNo:       seq + created,
			TargetTable: domain.ChangeTableEntityMentions,
			Operation:   domain.ChangeOpInsert,
			NewValue: datatypes.JSONMap{
				domain.PlaceholderKey: name,
				"span_id":             item.SpanID.String(),
				"mention_type":        domain.MentionTypeExplicit,
			},
			SpanID: item.SpanID,
		}
		if _, err := s.items.Create(ctx, tx, mention); err != nil {
			return 0, fmt.Errorf("create change item: %w", err)
		}
		created++
	}
	return created, nil
}

// entityValues copies the entity columns out of an annotation payload,
// leaving out keys that were never proposed so apply does not blank fields.
func entityValues(payload datatypes.JSONMap) datatypes.JSONMap {
	values := datatypes.JSONMap{}
	for _, key := range []string{"canonical_name", "entity_type", "description"} {
		if v, ok := payload[key]; ok {
			values[key] = v
		}
	}
	return values
}
