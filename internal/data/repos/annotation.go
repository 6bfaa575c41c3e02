package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

type AnnotationBatchRepo interface {
	Create(ctx context.Context, tx *gorm.DB, batch *domain.AnnotationBatch) (*domain.AnnotationBatch, error)
	GetByID(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (*domain.AnnotationBatch, error)
	ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, batchType string) ([]*domain.AnnotationBatch, error)
	Save(ctx context.Context, tx *gorm.DB, batch *domain.AnnotationBatch) error
}

type annotationBatchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnnotationBatchRepo(db *gorm.DB, baseLog *logger.Logger) AnnotationBatchRepo {
	return &annotationBatchRepo{db: db, log: baseLog.With("repo", "AnnotationBatchRepo")}
}

func (r *annotationBatchRepo) Create(ctx context.Context, tx *gorm.DB, batch *domain.AnnotationBatch) (*domain.AnnotationBatch, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *annotationBatchRepo) GetByID(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (*domain.AnnotationBatch, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var batch domain.AnnotationBatch
	if err := transaction.WithContext(ctx).
		Where("id = ?", batchID).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (r *annotationBatchRepo) ListBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, batchType string) ([]*domain.AnnotationBatch, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).Where("session_id = ?", sessionID)
	if batchType != "" {
		query = query.Where("batch_type = ?", batchType)
	}
	var results []*domain.AnnotationBatch
	if err := query.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *annotationBatchRepo) Save(ctx context.Context, tx *gorm.DB, batch *domain.AnnotationBatch) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(batch).Error
}

type AnnotationItemRepo interface {
	Create(ctx context.Context, tx *gorm.DB, item *domain.AnnotationItem) (*domain.AnnotationItem, error)
	GetByID(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*domain.AnnotationItem, error)
	ListByBatchID(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, status string) ([]*domain.AnnotationItem, error)
	Save(ctx context.Context, tx *gorm.DB, item *domain.AnnotationItem) error
}

type annotationItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnnotationItemRepo(db *gorm.DB, baseLog *logger.Logger) AnnotationItemRepo {
	return &annotationItemRepo{db: db, log: baseLog.With("repo", "AnnotationItemRepo")}
}

func (r *annotationItemRepo) Create(ctx context.Context, tx *gorm.DB, item *domain.AnnotationItem) (*domain.AnnotationItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *annotationItemRepo) GetByID(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*domain.AnnotationItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var item domain.AnnotationItem
	if err := transaction.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *annotationItemRepo) ListByBatchID(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, status string) ([]*domain.AnnotationItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).Where("batch_id = ?", batchID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var results []*domain.AnnotationItem
	if err := query.Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *annotationItemRepo) Save(ctx context.Context, tx *gorm.DB, item *domain.AnnotationItem) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(item).Error
}
