package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
	"github.com/sailing-innocent/SailZen/internal/pkg/pointers"
)

// entityRef names the entity a mention change refers to: either a concrete
// identifier or a placeholder name resolved against entities created earlier
// in the same apply pass.
type entityRef struct {
	id      uuid.UUID
	pending string
}

func (r entityRef) resolve(created map[string]uuid.UUID) (uuid.UUID, error) {
	if r.pending == "" {
		return r.id, nil
	}
	if id, ok := created[r.pending]; ok {
		return id, nil
	}
	return uuid.Nil, apperr.InvalidStatef("cannot resolve entity placeholder %q", r.pending)
}

func mentionEntityRef(newValue datatypes.JSONMap) (entityRef, error) {
	if name, ok := newValue[domain.PlaceholderKey].(string); ok && name != "" {
		return entityRef{pending: name}, nil
	}
	if raw, ok := newValue["entity_id"].(string); ok && raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return entityRef{}, apperr.InvalidStatef("mention change carries invalid entity_id %q", raw)
		}
		return entityRef{id: id}, nil
	}
	return entityRef{}, apperr.InvalidStatef("mention change carries neither entity id nor placeholder")
}

// Apply executes a pending change set inside one transaction. On any failure
// the transaction rolls back every partial write, then the failed status and
// error message are recorded in a separate write that survives.
func (s *changeSetService) Apply(ctx context.Context, changesetID uuid.UUID) (*domain.ChangeSet, error) {
	changeset, err := s.Get(ctx, nil, changesetID)
	if err != nil {
		return nil, err
	}
	if changeset.Status != domain.ChangeSetStatusPending {
		return nil, apperr.InvalidStatef("change set %s is %s, only pending sets can be applied", changesetID, changeset.Status)
	}

	applyErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := s.items.ListByChangeSetID(ctx, tx, changesetID)
		if err != nil {
			return fmt.Errorf("list change items: %w", err)
		}

		createdEntities := make(map[string]uuid.UUID)
		for _, item := range items {
			if err := s.applyItem(ctx, tx, changeset, item, createdEntities); err != nil {
				return fmt.Errorf("apply change item %d: %w", item.SeqNo, err)
			}
		}

		now := time.Now().UTC()
		changeset.Status = domain.ChangeSetStatusApplied
		changeset.AppliedAt = &now
		changeset.ErrorMessage = ""
		return s.changesets.Save(ctx, tx, changeset)
	})

	if applyErr != nil {
		changeset.Status = domain.ChangeSetStatusFailed
		changeset.AppliedAt = nil
		changeset.ErrorMessage = applyErr.Error()
		if saveErr := s.changesets.Save(ctx, nil, changeset); saveErr != nil {
			s.log.Error("failed to record change set failure", "change_set_id", changesetID, "error", saveErr)
		}
		s.log.Error("change set apply failed", "change_set_id", changesetID, "error", applyErr)
		if apperr.KindOf(applyErr) != "" {
			return nil, applyErr
		}
		return nil, apperr.ApplyFailure(applyErr)
	}

	s.log.Info("change set applied", "change_set_id", changesetID)
	return changeset, nil
}

func (s *changeSetService) applyItem(ctx context.Context, tx *gorm.DB, changeset *domain.ChangeSet, item *domain.ChangeItem, created map[string]uuid.UUID) error {
	switch {
	case item.TargetTable == domain.ChangeTableEntities && item.Operation == domain.ChangeOpInsert:
		return s.applyEntityInsert(ctx, tx, changeset, item, created)
	case item.TargetTable == domain.ChangeTableEntities && item.Operation == domain.ChangeOpUpdate:
		return s.applyEntityUpdate(ctx, tx, item)
	case item.TargetTable == domain.ChangeTableEntityMentions && item.Operation == domain.ChangeOpInsert:
		return s.applyMentionInsert(ctx, tx, item, created)
	default:
		s.log.Warn("no handler for change item", "target_table", item.TargetTable, "operation", item.Operation, "item_id", item.ID)
		return nil
	}
}

func (s *changeSetService) applyEntityInsert(ctx context.Context, tx *gorm.DB, changeset *domain.ChangeSet, item *domain.ChangeItem, created map[string]uuid.UUID) error {
	name, _ := item.NewValue["canonical_name"].(string)
	entityType, _ := item.NewValue["entity_type"].(string)
	if name == "" || entityType == "" {
		return apperr.InvalidStatef("entity insert missing canonical_name or entity_type")
	}
	description, _ := item.NewValue["description"].(string)

	now := time.Now().UTC()
	entity := &domain.Entity{
		ID:            uuid.New(),
		EditionID:     changeset.EditionID,
		EntityType:    entityType,
		CanonicalName: name,
		Description:   description,
		OriginSpanID:  item.SpanID,
		Scope:         domain.EntityScopeEdition,
		Status:        domain.EntityStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.entities.Create(ctx, tx, entity); err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}

	if aliasStrings := stringSlice(item.NewValue["aliases"]); len(aliasStrings) > 0 {
		aliases := make([]*domain.EntityAlias, 0, len(aliasStrings))
		for _, a := range aliasStrings {
			aliases = append(aliases, &domain.EntityAlias{
				ID:       uuid.New(),
				EntityID: entity.ID,
				Alias:    a,
			})
		}
		if _, err := s.aliases.Create(ctx, tx, aliases); err != nil {
			return fmt.Errorf("insert aliases: %w", err)
		}
	}

	// Record where the row went so the audit trail and later placeholder
	// references both work.
	item.TargetID = &entity.ID
	if err := s.items.Save(ctx, tx, item); err != nil {
		return fmt.Errorf("record inserted entity id: %w", err)
	}
	created[name] = entity.ID
	return nil
}

func (s *changeSetService) applyEntityUpdate(ctx context.Context, tx *gorm.DB, item *domain.ChangeItem) error {
	if item.TargetID == nil {
		return apperr.InvalidStatef("entity update has no target id")
	}
	entity, err := s.entities.GetByID(ctx, tx, *item.TargetID)
	if err != nil {
		return fmt.Errorf("get entity: %w", err)
	}
	if entity == nil {
		return apperr.NotFoundf("entity %s not found", *item.TargetID)
	}

	if v, ok := item.NewValue["canonical_name"].(string); ok && v != "" {
		entity.CanonicalName = v
	}
	if v, ok := item.NewValue["entity_type"].(string); ok && v != "" {
		entity.EntityType = v
	}
	if v, ok := item.NewValue["description"]; ok {
		if desc, ok := v.(string); ok {
			entity.Description = desc
		}
	}
	entity.UpdatedAt = time.Now().UTC()
	if err := s.entities.Save(ctx, tx, entity); err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	return nil
}

func (s *changeSetService) applyMentionInsert(ctx context.Context, tx *gorm.DB, item *domain.ChangeItem, created map[string]uuid.UUID) error {
	ref, err := mentionEntityRef(item.NewValue)
	if err != nil {
		return err
	}
	entityID, err := ref.resolve(created)
	if err != nil {
		return err
	}

	spanID := item.SpanID
	if raw, ok := item.NewValue["span_id"].(string); ok && raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return apperr.InvalidStatef("mention change carries invalid span_id %q", raw)
		}
		spanID = &parsed
	}
	if spanID == nil {
		return apperr.InvalidStatef("mention change has no span")
	}

	existing, err := s.mentions.FindByEntityAndSpan(ctx, tx, entityID, *spanID)
	if err != nil {
		return fmt.Errorf("check mention: %w", err)
	}
	if existing != nil {
		return nil
	}

	mentionType, _ := item.NewValue["mention_type"].(string)
	if mentionType == "" {
		mentionType = domain.MentionTypeExplicit
	}
	mention := &domain.EntityMention{
		ID:          uuid.New(),
		EntityID:    entityID,
		SpanID:      *spanID,
		MentionType: mentionType,
		CreatedAt:   time.Now().UTC(),
	}
	if conf, ok := item.NewValue["confidence"].(float64); ok {
		mention.Confidence = pointers.Ptr(conf)
	}
	if _, err := s.mentions.Create(ctx, tx, mention); err != nil {
		return fmt.Errorf("insert mention: %w", err)
	}

	item.TargetID = &mention.ID
	if err := s.items.Save(ctx, tx, item); err != nil {
		return fmt.Errorf("record inserted mention id: %w", err)
	}
	return nil
}

// stringSlice coerces a decoded JSON array into strings, dropping anything
// that is not one.
func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
