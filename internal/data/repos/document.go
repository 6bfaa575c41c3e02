package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

type DocumentNodeRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID) (*domain.DocumentNode, error)
	ListSiblings(ctx context.Context, tx *gorm.DB, parentID, excludeID uuid.UUID, limit int) ([]*domain.DocumentNode, error)
}

type documentNodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentNodeRepo(db *gorm.DB, baseLog *logger.Logger) DocumentNodeRepo {
	return &documentNodeRepo{db: db, log: baseLog.With("repo", "DocumentNodeRepo")}
}

func (r *documentNodeRepo) GetByID(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID) (*domain.DocumentNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var node domain.DocumentNode
	if err := transaction.WithContext(ctx).
		Where("id = ?", nodeID).
		First(&node).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}

func (r *documentNodeRepo) ListSiblings(ctx context.Context, tx *gorm.DB, parentID, excludeID uuid.UUID, limit int) ([]*domain.DocumentNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.DocumentNode
	query := transaction.WithContext(ctx).
		Where("parent_id = ? AND id <> ?", parentID, excludeID).
		Order("sort_index ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type TextSpanRepo interface {
	Create(ctx context.Context, tx *gorm.DB, span *domain.TextSpan) (*domain.TextSpan, error)
	GetByID(ctx context.Context, tx *gorm.DB, spanID uuid.UUID) (*domain.TextSpan, error)
	FindByNodeRange(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID, startChar, endChar int) (*domain.TextSpan, error)
	ListByNodeID(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID) ([]*domain.TextSpan, error)
}

type textSpanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTextSpanRepo(db *gorm.DB, baseLog *logger.Logger) TextSpanRepo {
	return &textSpanRepo{db: db, log: baseLog.With("repo", "TextSpanRepo")}
}

func (r *textSpanRepo) Create(ctx context.Context, tx *gorm.DB, span *domain.TextSpan) (*domain.TextSpan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(span).Error; err != nil {
		return nil, err
	}
	return span, nil
}

func (r *textSpanRepo) GetByID(ctx context.Context, tx *gorm.DB, spanID uuid.UUID) (*domain.TextSpan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var span domain.TextSpan
	if err := transaction.WithContext(ctx).
		Where("id = ?", spanID).
		First(&span).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &span, nil
}

func (r *textSpanRepo) FindByNodeRange(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID, startChar, endChar int) (*domain.TextSpan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var span domain.TextSpan
	if err := transaction.WithContext(ctx).
		Where("node_id = ? AND start_char = ? AND end_char = ?", nodeID, startChar, endChar).
		First(&span).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &span, nil
}

func (r *textSpanRepo) ListByNodeID(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID) ([]*domain.TextSpan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*domain.TextSpan
	if err := transaction.WithContext(ctx).
		Where("node_id = ?", nodeID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
