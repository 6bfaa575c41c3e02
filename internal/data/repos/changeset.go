package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

type ChangeSetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, changeset *domain.ChangeSet) (*domain.ChangeSet, error)
	GetByID(ctx context.Context, tx *gorm.DB, changesetID uuid.UUID) (*domain.ChangeSet, error)
	List(ctx context.Context, tx *gorm.DB, editionID, sessionID *uuid.UUID, limit int) ([]*domain.ChangeSet, error)
	Save(ctx context.Context, tx *gorm.DB, changeset *domain.ChangeSet) error
}

type changeSetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChangeSetRepo(db *gorm.DB, baseLog *logger.Logger) ChangeSetRepo {
	return &changeSetRepo{db: db, log: baseLog.With("repo", "ChangeSetRepo")}
}

func (r *changeSetRepo) Create(ctx context.Context, tx *gorm.DB, changeset *domain.ChangeSet) (*domain.ChangeSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(changeset).Error; err != nil {
		return nil, err
	}
	return changeset, nil
}

func (r *changeSetRepo) GetByID(ctx context.Context, tx *gorm.DB, changesetID uuid.UUID) (*domain.ChangeSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var changeset domain.ChangeSet
	if err := transaction.WithContext(ctx).
		Where("id = ?", changesetID).
		First(&changeset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &changeset, nil
}

func (r *changeSetRepo) List(ctx context.Context, tx *gorm.DB, editionID, sessionID *uuid.UUID, limit int) ([]*domain.ChangeSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).Model(&domain.ChangeSet{})
	if editionID != nil {
		query = query.Where("edition_id = ?", *editionID)
	}
	if sessionID != nil {
		query = query.Where("session_id = ?", *sessionID)
	}
	if limit <= 0 {
		limit = 100
	}
	var results []*domain.ChangeSet
	if err := query.Order("created_at DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *changeSetRepo) Save(ctx context.Context, tx *gorm.DB, changeset *domain.ChangeSet) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(changeset).Error
}

type ChangeItemRepo interface {
	Create(ctx context.Context, tx *gorm.DB, item *domain.ChangeItem) (*domain.ChangeItem, error)
	ListByChangeSetID(ctx context.Context, tx *gorm.DB, changesetID uuid.UUID) ([]*domain.ChangeItem, error)
	Save(ctx context.Context, tx *gorm.DB, item *domain.ChangeItem) error
}

type changeItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChangeItemRepo(db *gorm.DB, baseLog *logger.Logger) ChangeItemRepo {
	return &changeItemRepo{db: db, log: baseLog.With("repo", "ChangeItemRepo")}
}

func (r *changeItemRepo) Create(ctx context.Context, tx *gorm.DB, item *domain.ChangeItem) (*domain.ChangeItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// ListByChangeSetID returns items in stored generation order; apply depends
// on this ordering to resolve placeholders.
func (r *changeItemRepo) ListByChangeSetID(ctx context.Context, tx *gorm.DB, changesetID uuid.UUID) ([]*domain.ChangeItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.ChangeItem
	if err := transaction.WithContext(ctx).
		Where("change_set_id = ?", changesetID).
		Order("seq_no ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *changeItemRepo) Save(ctx context.Context, tx *gorm.DB, item *domain.ChangeItem) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(item).Error
}
