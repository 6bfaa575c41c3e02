package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

type CollabSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *domain.CollabSession) (*domain.CollabSession, error)
	GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*domain.CollabSession, error)
	FindLiveByTarget(ctx context.Context, tx *gorm.DB, targetType string, targetID uuid.UUID) (*domain.CollabSession, error)
	ListLive(ctx context.Context, tx *gorm.DB, editionID *uuid.UUID, createdBy string) ([]*domain.CollabSession, error)
	Save(ctx context.Context, tx *gorm.DB, session *domain.CollabSession) error
}

type collabSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCollabSessionRepo(db *gorm.DB, baseLog *logger.Logger) CollabSessionRepo {
	return &collabSessionRepo{db: db, log: baseLog.With("repo", "CollabSessionRepo")}
}

func (r *collabSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *domain.CollabSession) (*domain.CollabSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *collabSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*domain.CollabSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var session domain.CollabSession
	if err := transaction.WithContext(ctx).
		Where("id = ?", sessionID).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *collabSessionRepo) FindLiveByTarget(ctx context.Context, tx *gorm.DB, targetType string, targetID uuid.UUID) (*domain.CollabSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var session domain.CollabSession
	if err := transaction.WithContext(ctx).
		Where("target_type = ? AND target_id = ? AND state IN ?", targetType, targetID, domain.LiveSessionStates).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *collabSessionRepo) ListLive(ctx context.Context, tx *gorm.DB, editionID *uuid.UUID, createdBy string) ([]*domain.CollabSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).
		Where("state IN ?", domain.LiveSessionStates)
	if editionID != nil {
		query = query.Where("edition_id = ?", *editionID)
	}
	if createdBy != "" {
		query = query.Where("created_by = ?", createdBy)
	}
	var results []*domain.CollabSession
	if err := query.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *collabSessionRepo) Save(ctx context.Context, tx *gorm.DB, session *domain.CollabSession) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(session).Error
}
