package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

type EntityRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entity *domain.Entity) (*domain.Entity, error)
	GetByID(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) (*domain.Entity, error)
	FindByName(ctx context.Context, tx *gorm.DB, editionID *uuid.UUID, canonicalName string) ([]*domain.Entity, error)
	Save(ctx context.Context, tx *gorm.DB, entity *domain.Entity) error
}

type entityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntityRepo(db *gorm.DB, baseLog *logger.Logger) EntityRepo {
	return &entityRepo{db: db, log: baseLog.With("repo", "EntityRepo")}
}

func (r *entityRepo) Create(ctx context.Context, tx *gorm.DB, entity *domain.Entity) (*domain.Entity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *entityRepo) GetByID(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) (*domain.Entity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var entity domain.Entity
	if err := transaction.WithContext(ctx).
		Where("id = ?", entityID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

func (r *entityRepo) FindByName(ctx context.Context, tx *gorm.DB, editionID *uuid.UUID, canonicalName string) ([]*domain.Entity, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).Where("canonical_name = ?", canonicalName)
	if editionID != nil {
		query = query.Where("edition_id = ?", *editionID)
	}
	var results []*domain.Entity
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *entityRepo) Save(ctx context.Context, tx *gorm.DB, entity *domain.Entity) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(entity).Error
}

type EntityAliasRepo interface {
	Create(ctx context.Context, tx *gorm.DB, aliases []*domain.EntityAlias) ([]*domain.EntityAlias, error)
	ListByEntityID(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) ([]*domain.EntityAlias, error)
}

type entityAliasRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntityAliasRepo(db *gorm.DB, baseLog *logger.Logger) EntityAliasRepo {
	return &entityAliasRepo{db: db, log: baseLog.With("repo", "EntityAliasRepo")}
}

func (r *entityAliasRepo) Create(ctx context.Context, tx *gorm.DB, aliases []*domain.EntityAlias) ([]*domain.EntityAlias, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(aliases) == 0 {
		return []*domain.EntityAlias{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&aliases).Error; err != nil {
		return nil, err
	}
	return aliases, nil
}

func (r *entityAliasRepo) ListByEntityID(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) ([]*domain.EntityAlias, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.EntityAlias
	if err := transaction.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type EntityMentionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, mention *domain.EntityMention) (*domain.EntityMention, error)
	FindByEntityAndSpan(ctx context.Context, tx *gorm.DB, entityID, spanID uuid.UUID) (*domain.EntityMention, error)
	ListByEntityID(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) ([]*domain.EntityMention, error)
	ListBySpanIDs(ctx context.Context, tx *gorm.DB, spanIDs []uuid.UUID) ([]*domain.EntityMention, error)
}

type entityMentionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntityMentionRepo(db *gorm.DB, baseLog *logger.Logger) EntityMentionRepo {
	return &entityMentionRepo{db: db, log: baseLog.With("repo", "EntityMentionRepo")}
}

func (r *entityMentionRepo) Create(ctx context.Context, tx *gorm.DB, mention *domain.EntityMention) (*domain.EntityMention, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(mention).Error; err != nil {
		return nil, err
	}
	return mention, nil
}

func (r *entityMentionRepo) FindByEntityAndSpan(ctx context.Context, tx *gorm.DB, entityID, spanID uuid.UUID) (*domain.EntityMention, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var mention domain.EntityMention
	if err := transaction.WithContext(ctx).
		Where("entity_id = ? AND span_id = ?", entityID, spanID).
		First(&mention).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mention, nil
}

func (r *entityMentionRepo) ListByEntityID(ctx context.Context, tx *gorm.DB, entityID uuid.UUID) ([]*domain.EntityMention, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.EntityMention
	if err := transaction.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *entityMentionRepo) ListBySpanIDs(ctx context.Context, tx *gorm.DB, spanIDs []uuid.UUID) ([]*domain.EntityMention, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.EntityMention
	if len(spanIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("span_id IN ?", spanIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
