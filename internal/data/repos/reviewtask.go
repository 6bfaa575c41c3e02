package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

type ReviewTaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, task *domain.ReviewTask) (*domain.ReviewTask, error)
	GetByID(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) (*domain.ReviewTask, error)
	ListPending(ctx context.Context, tx *gorm.DB, reviewer string) ([]*domain.ReviewTask, error)
	Save(ctx context.Context, tx *gorm.DB, task *domain.ReviewTask) error
}

type reviewTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewTaskRepo(db *gorm.DB, baseLog *logger.Logger) ReviewTaskRepo {
	return &reviewTaskRepo{db: db, log: baseLog.With("repo", "ReviewTaskRepo")}
}

func (r *reviewTaskRepo) Create(ctx context.Context, tx *gorm.DB, task *domain.ReviewTask) (*domain.ReviewTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

func (r *reviewTaskRepo) GetByID(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) (*domain.ReviewTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var task domain.ReviewTask
	if err := transaction.WithContext(ctx).
		Where("id = ?", taskID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *reviewTaskRepo) ListPending(ctx context.Context, tx *gorm.DB, reviewer string) ([]*domain.ReviewTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).Where("status = ?", domain.ReviewStatusPending)
	if reviewer != "" {
		query = query.Where("reviewer = ?", reviewer)
	}
	var results []*domain.ReviewTask
	if err := query.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *reviewTaskRepo) Save(ctx context.Context, tx *gorm.DB, task *domain.ReviewTask) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(task).Error
}
