package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/data/repos"
	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

type ReviewService interface {
	CreateTask(ctx context.Context, tx *gorm.DB, changesetID uuid.UUID, reviewer string) (*domain.ReviewTask, error)
	Get(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) (*domain.ReviewTask, error)
	Pending(ctx context.Context, tx *gorm.DB, reviewer string) ([]*domain.ReviewTask, error)
	Approve(ctx context.Context, taskID uuid.UUID, comments string, autoApply bool) (*domain.ReviewTask, error)
	Reject(ctx context.Context, taskID uuid.UUID, comments string) (*domain.ReviewTask, error)
}

type reviewService struct {
	db           *gorm.DB
	log          *logger.Logger
	tasks        repos.ReviewTaskRepo
	changesets   ChangeSetService
	changesetsDB repos.ChangeSetRepo
}

func NewReviewService(db *gorm.DB, baseLog *logger.Logger, tasks repos.ReviewTaskRepo, changesets ChangeSetService, changesetsDB repos.ChangeSetRepo) ReviewService {
	return &reviewService{
		db:           db,
		log:          baseLog.With("service", "ReviewService"),
		tasks:        tasks,
		changesets:   changesets,
		changesetsDB: changesetsDB,
	}
}

func (s *reviewService) CreateTask(ctx context.Context, tx *gorm.DB, changesetID uuid.UUID, reviewer string) (*domain.ReviewTask, error) {
	if reviewer == "" {
		return nil, apperr.InvalidStatef("reviewer is required")
	}
	changeset, err := s.changesets.Get(ctx, tx, changesetID)
	if err != nil {
		return nil, err
	}
	if changeset.Status != domain.ChangeSetStatusPending {
		return nil, apperr.InvalidStatef("change set %s is %s, only pending sets can be reviewed", changesetID, changeset.Status)
	}

	task := &domain.ReviewTask{
		ID:          uuid.New(),
		ChangeSetID: changesetID,
		Reviewer:    reviewer,
		Status:      domain.ReviewStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.tasks.Create(ctx, tx, task); err != nil {
		return nil, fmt.Errorf("create review task: %w", err)
	}
	s.log.Info("review task created", "task_id", task.ID, "change_set_id", changesetID, "reviewer", reviewer)
	return task, nil
}

func (s *reviewService) Get(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) (*domain.ReviewTask, error) {
	task, err := s.tasks.GetByID(ctx, tx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get review task: %w", err)
	}
	if task == nil {
		return nil, apperr.NotFoundf("review task %s not found", taskID)
	}
	return task, nil
}

func (s *reviewService) Pending(ctx context.Context, tx *gorm.DB, reviewer string) ([]*domain.ReviewTask, error) {
	return s.tasks.ListPending(ctx, tx, reviewer)
}

// Approve records the decision, then optionally applies the change set. The
// approval stands even when the apply fails; the task and the apply error are
// both returned so the caller can report the failure without undoing the
// decision.
func (s *reviewService) Approve(ctx context.Context, taskID uuid.UUID, comments string, autoApply bool) (*domain.ReviewTask, error) {
	task, err := s.decide(ctx, taskID, domain.ReviewDecisionApprove, domain.ReviewStatusApproved, comments)
	if err != nil {
		return nil, err
	}

	if autoApply {
		if _, err := s.changesets.Apply(ctx, task.ChangeSetID); err != nil {
			s.log.Error("auto-apply after approval failed", "task_id", task.ID, "change_set_id", task.ChangeSetID, "error", err)
			return task, err
		}
	}
	return task, nil
}

// Reject marks the task and pushes the change set to failed so it can never
// be applied afterwards.
func (s *reviewService) Reject(ctx context.Context, taskID uuid.UUID, comments string) (*domain.ReviewTask, error) {
	task, err := s.decide(ctx, taskID, domain.ReviewDecisionReject, domain.ReviewStatusRejected, comments)
	if err != nil {
		return nil, err
	}

	changeset, err := s.changesets.Get(ctx, nil, task.ChangeSetID)
	if err != nil {
		return nil, err
	}
	reason := comments
	if reason == "" {
		reason = "no reason provided"
	}
	if changeset.Status == domain.ChangeSetStatusPending {
		changeset.Status = domain.ChangeSetStatusFailed
		changeset.ErrorMessage = fmt.Sprintf("rejected by reviewer: %s", reason)
		if err := s.changesetsDB.Save(ctx, nil, changeset); err != nil {
			return nil, fmt.Errorf("save change set: %w", err)
		}
	}

	s.log.Info("review task rejected", "task_id", task.ID, "change_set_id", task.ChangeSetID)
	return task, nil
}

func (s *reviewService) decide(ctx context.Context, taskID uuid.UUID, decision, status, comments string) (*domain.ReviewTask, error) {
	task, err := s.Get(ctx, nil, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.ReviewStatusPending {
		return nil, apperr.InvalidStatef("review task %s is %s, only pending tasks can be decided", taskID, task.Status)
	}

	now := time.Now().UTC()
	task.Status = status
	task.Decision = decision
	task.DecidedAt = &now
	if comments != "" {
		task.Comments = comments
	}
	if err := s.tasks.Save(ctx, nil, task); err != nil {
		return nil, fmt.Errorf("save review task: %w", err)
	}
	return task, nil
}
