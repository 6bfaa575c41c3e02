package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/data/repos"
	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

// OpenSessionInput carries everything needed to acquire an edit lock on one
// target.
type OpenSessionInput struct {
	EditionID  uuid.UUID
	TargetType string
	TargetID   uuid.UUID
	CreatedBy  string
	LockScope  string
	Metadata   datatypes.JSONMap
}

// ContextEntity is a short entity reference shown alongside the target text.
type ContextEntity struct {
	ID            uuid.UUID `json:"id"`
	CanonicalName string    `json:"canonical_name"`
	EntityType    string    `json:"entity_type"`
}

// TargetContext is the working material prepared for an annotation pass: the
// target's own text, surrounding sibling text and the entities already known
// around it.
type TargetContext struct {
	SessionID   uuid.UUID       `json:"session_id"`
	TargetType  string          `json:"target_type"`
	TargetID    uuid.UUID       `json:"target_id"`
	Title       string          `json:"title,omitempty"`
	Label       string          `json:"label,omitempty"`
	Text        string          `json:"text"`
	ContextText string          `json:"context_text,omitempty"`
	Entities    []ContextEntity `json:"entities"`
}

type SessionService interface {
	Open(ctx context.Context, tx *gorm.DB, input OpenSessionInput) (*domain.CollabSession, error)
	Get(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*domain.CollabSession, error)
	ListActive(ctx context.Context, tx *gorm.DB, editionID *uuid.UUID, createdBy string) ([]*domain.CollabSession, error)
	Advance(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, state, reason string) (*domain.CollabSession, error)
	Close(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, reason string) (*domain.CollabSession, error)
	PrepareContext(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, surrounding int) (*TargetContext, error)
}

type sessionService struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.CollabSessionRepo
	nodes    repos.DocumentNodeRepo
	entities repos.EntityRepo
	spans    repos.TextSpanRepo
	mentions repos.EntityMentionRepo
}

func NewSessionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessions repos.CollabSessionRepo,
	nodes repos.DocumentNodeRepo,
	entities repos.EntityRepo,
	spans repos.TextSpanRepo,
	mentions repos.EntityMentionRepo,
) SessionService {
	return &sessionService{
		db:       db,
		log:      baseLog.With("service", "SessionService"),
		sessions: sessions,
		nodes:    nodes,
		entities: entities,
		spans:    spans,
		mentions: mentions,
	}
}

var validTargetTypes = map[string]bool{
	domain.TargetTypeNode:     true,
	domain.TargetTypeEntity:   true,
	domain.TargetTypeRelation: true,
	domain.TargetTypeEvent:    true,
	domain.TargetTypeSpan:     true,
}

var validSessionStates = map[string]bool{
	domain.SessionStateActive:     true,
	domain.SessionStateHasDraft:   true,
	domain.SessionStateCommitted:  true,
	domain.SessionStateClosed:     true,
	domain.SessionStateNeedsMerge: true,
}

// Open acquires the exclusive lock on (target_type, target_id). The friendly
// conflict check runs first; the partial unique index on live sessions is the
// real guarantee under concurrency.
func (s *sessionService) Open(ctx context.Context, tx *gorm.DB, input OpenSessionInput) (*domain.CollabSession, error) {
	if !validTargetTypes[input.TargetType] {
		return nil, apperr.InvalidStatef("unknown target type %q", input.TargetType)
	}
	if input.CreatedBy == "" {
		return nil, apperr.InvalidStatef("created_by is required")
	}

	existing, err := s.sessions.FindLiveByTarget(ctx, tx, input.TargetType, input.TargetID)
	if err != nil {
		return nil, fmt.Errorf("check live session: %w", err)
	}
	if existing != nil {
		return nil, apperr.Conflictf(
			"target %s/%s is locked by session %s (held by %s)",
			input.TargetType, input.TargetID, existing.ID, existing.CreatedBy,
		)
	}

	lockScope := input.LockScope
	if lockScope == "" {
		lockScope = domain.LockScopeNode
	}

	now := time.Now().UTC()
	session := &domain.CollabSession{
		ID:         uuid.New(),
		EditionID:  input.EditionID,
		TargetType: input.TargetType,
		TargetID:   input.TargetID,
		LockScope:  lockScope,
		State:      domain.SessionStateActive,
		Metadata:   input.Metadata,
		CreatedBy:  input.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.sessions.Create(ctx, tx, session); err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflictf("target %s/%s is locked by another session", input.TargetType, input.TargetID)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info("session opened", "session_id", session.ID, "target_type", session.TargetType, "target_id", session.TargetID, "created_by", session.CreatedBy)
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*domain.CollabSession, error) {
	session, err := s.sessions.GetByID(ctx, tx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, apperr.NotFoundf("session %s not found", sessionID)
	}
	return session, nil
}

func (s *sessionService) ListActive(ctx context.Context, tx *gorm.DB, editionID *uuid.UUID, createdBy string) ([]*domain.CollabSession, error) {
	return s.sessions.ListLive(ctx, tx, editionID, createdBy)
}

// Advance moves the session to any declared state. Lock release is implied by
// leaving the live states; entering closed stamps the closed timestamp.
func (s *sessionService) Advance(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, state, reason string) (*domain.CollabSession, error) {
	if !validSessionStates[state] {
		return nil, apperr.InvalidStatef("unknown session state %q", state)
	}
	session, err := s.Get(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session.State = state
	session.StateReason = reason
	session.UpdatedAt = now
	if state == domain.SessionStateClosed && session.ClosedAt == nil {
		session.ClosedAt = &now
	}
	if err := s.sessions.Save(ctx, tx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.log.Info("session advanced", "session_id", session.ID, "state", state)
	return session, nil
}

// Close releases the lock; it forces the closed state regardless of where the
// session currently sits.
func (s *sessionService) Close(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, reason string) (*domain.CollabSession, error) {
	return s.Advance(ctx, tx, sessionID, domain.SessionStateClosed, reason)
}

// PrepareContext assembles the text and known entities around the session's
// target. Only node and entity targets produce material today; other target
// types return an empty context rather than failing the annotation pass.
func (s *sessionService) PrepareContext(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, surrounding int) (*TargetContext, error) {
	session, err := s.Get(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}

	tc := &TargetContext{
		SessionID:  session.ID,
		TargetType: session.TargetType,
		TargetID:   session.TargetID,
		Entities:   []ContextEntity{},
	}

	switch session.TargetType {
	case domain.TargetTypeNode:
		if err := s.fillNodeContext(ctx, tx, session, surrounding, tc); err != nil {
			return nil, err
		}
	case domain.TargetTypeEntity:
		if err := s.fillEntityContext(ctx, tx, session, tc); err != nil {
			return nil, err
		}
	default:
		s.log.Warn("no context preparation for target type", "target_type", session.TargetType, "session_id", session.ID)
	}

	return tc, nil
}

func (s *sessionService) fillNodeContext(ctx context.Context, tx *gorm.DB, session *domain.CollabSession, surrounding int, tc *TargetContext) error {
	node, err := s.nodes.GetByID(ctx, tx, session.TargetID)
	if err != nil {
		return fmt.Errorf("get node: %w", err)
	}
	if node == nil {
		return apperr.NotFoundf("node %s not found", session.TargetID)
	}

	tc.Title = node.Title
	tc.Label = node.Label
	tc.Text = node.RawText

	if surrounding > 0 && node.ParentID != nil {
		siblings, err := s.nodes.ListSiblings(ctx, tx, *node.ParentID, node.ID, surrounding*2)
		if err != nil {
			return fmt.Errorf("list siblings: %w", err)
		}
		parts := make([]string, 0, len(siblings))
		for _, sib := range siblings {
			if sib.RawText != "" {
				parts = append(parts, sib.RawText)
			}
		}
		tc.ContextText = strings.Join(parts, "\n")
	}

	spans, err := s.spans.ListByNodeID(ctx, tx, node.ID)
	if err != nil {
		return fmt.Errorf("list spans: %w", err)
	}
	spanIDs := make([]uuid.UUID, 0, len(spans))
	for _, sp := range spans {
		spanIDs = append(spanIDs, sp.ID)
	}
	mentions, err := s.mentions.ListBySpanIDs(ctx, tx, spanIDs)
	if err != nil {
		return fmt.Errorf("list mentions: %w", err)
	}

	seen := make(map[uuid.UUID]bool)
	for _, m := range mentions {
		if seen[m.EntityID] {
			continue
		}
		seen[m.EntityID] = true
		entity, err := s.entities.GetByID(ctx, tx, m.EntityID)
		if err != nil {
			return fmt.Errorf("get entity: %w", err)
		}
		if entity == nil {
			continue
		}
		tc.Entities = append(tc.Entities, ContextEntity{
			ID:            entity.ID,
			CanonicalName: entity.CanonicalName,
			EntityType:    entity.EntityType,
		})
	}
	return nil
}

func (s *sessionService) fillEntityContext(ctx context.Context, tx *gorm.DB, session *domain.CollabSession, tc *TargetContext) error {
	entity, err := s.entities.GetByID(ctx, tx, session.TargetID)
	if err != nil {
		return fmt.Errorf("get entity: %w", err)
	}
	if entity == nil {
		return apperr.NotFoundf("entity %s not found", session.TargetID)
	}

	tc.Title = entity.CanonicalName
	tc.Label = entity.EntityType
	tc.Text = entity.Description
	tc.Entities = append(tc.Entities, ContextEntity{
		ID:            entity.ID,
		CanonicalName: entity.CanonicalName,
		EntityType:    entity.EntityType,
	})
	return nil
}

// isUniqueViolation matches both the postgres and sqlite flavours of a unique
// index failure without importing driver error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique index")
}
