package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/data/repos"
	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
	"github.com/sailing-innocent/SailZen/internal/pkg/pointers"
)

// DefaultItemConfidence is assigned when the extraction source did not score
// a proposal.
const DefaultItemConfidence = 0.8

type CreateBatchInput struct {
	EditionID  uuid.UUID
	SessionID  *uuid.UUID
	BatchType  string
	Source     string
	Notes      string
	CreatedBy  string
	Confidence datatypes.JSONMap
}

type CreateItemInput struct {
	BatchID    uuid.UUID
	TargetType string
	TargetID   *uuid.UUID
	SpanID     *uuid.UUID
	Payload    datatypes.JSONMap
	Confidence *float64
}

type AnnotationService interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, input CreateBatchInput) (*domain.AnnotationBatch, error)
	GetBatch(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (*domain.AnnotationBatch, error)
	SessionBatches(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, batchType string) ([]*domain.AnnotationBatch, error)
	UpdateBatchStatus(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, status string) (*domain.AnnotationBatch, error)
	CreateItem(ctx context.Context, tx *gorm.DB, input CreateItemInput) (*domain.AnnotationItem, error)
	SetItemStatus(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, status string) (*domain.AnnotationItem, error)
	BatchItems(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, status string) ([]*domain.AnnotationItem, error)
	ApprovedItems(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) ([]*domain.AnnotationItem, error)
	IngestProposals(ctx context.Context, tx *gorm.DB, batchID, nodeID uuid.UUID, proposals []EntityProposal) ([]*domain.AnnotationItem, error)
}

type annotationService struct {
	db      *gorm.DB
	log     *logger.Logger
	batches repos.AnnotationBatchRepo
	items   repos.AnnotationItemRepo
	nodes   repos.DocumentNodeRepo
	spans   repos.TextSpanRepo
}

func NewAnnotationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	batches repos.AnnotationBatchRepo,
	items repos.AnnotationItemRepo,
	nodes repos.DocumentNodeRepo,
	spans repos.TextSpanRepo,
) AnnotationService {
	return &annotationService{
		db:      db,
		log:     baseLog.With("service", "AnnotationService"),
		batches: batches,
		items:   items,
		nodes:   nodes,
		spans:   spans,
	}
}

var validBatchStatuses = map[string]bool{
	domain.BatchStatusDraft:     true,
	domain.BatchStatusPending:   true,
	domain.BatchStatusApproved:  true,
	domain.BatchStatusRejected:  true,
	domain.BatchStatusCommitted: true,
}

var validItemStatuses = map[string]bool{
	domain.ItemStatusPending:  true,
	domain.ItemStatusApproved: true,
	domain.ItemStatusRejected: true,
}

func (s *annotationService) CreateBatch(ctx context.Context, tx *gorm.DB, input CreateBatchInput) (*domain.AnnotationBatch, error) {
	if input.BatchType == "" {
		return nil, apperr.InvalidStatef("batch_type is required")
	}

	now := time.Now().UTC()
	batch := &domain.AnnotationBatch{
		ID:         uuid.New(),
		EditionID:  input.EditionID,
		SessionID:  input.SessionID,
		BatchType:  input.BatchType,
		Source:     input.Source,
		Status:     domain.BatchStatusDraft,
		Confidence: input.Confidence,
		Notes:      input.Notes,
		CreatedBy:  input.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.batches.Create(ctx, tx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	s.log.Info("annotation batch created", "batch_id", batch.ID, "batch_type", batch.BatchType, "source", batch.Source)
	return batch, nil
}

func (s *annotationService) GetBatch(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (*domain.AnnotationBatch, error) {
	batch, err := s.batches.GetByID(ctx, tx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if batch == nil {
		return nil, apperr.NotFoundf("annotation batch %s not found", batchID)
	}
	return batch, nil
}

func (s *annotationService) SessionBatches(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, batchType string) ([]*domain.AnnotationBatch, error) {
	return s.batches.ListBySessionID(ctx, tx, sessionID, batchType)
}

func (s *annotationService) UpdateBatchStatus(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, status string) (*domain.AnnotationBatch, error) {
	if !validBatchStatuses[status] {
		return nil, apperr.InvalidStatef("unknown batch status %q", status)
	}
	batch, err := s.GetBatch(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	batch.Status = status
	batch.UpdatedAt = time.Now().UTC()
	if err := s.batches.Save(ctx, tx, batch); err != nil {
		return nil, fmt.Errorf("save batch: %w", err)
	}
	return batch, nil
}

func (s *annotationService) CreateItem(ctx context.Context, tx *gorm.DB, input CreateItemInput) (*domain.AnnotationItem, error) {
	if _, err := s.GetBatch(ctx, tx, input.BatchID); err != nil {
		return nil, err
	}
	if len(input.Payload) == 0 {
		return nil, apperr.InvalidStatef("item payload is required")
	}

	item := &domain.AnnotationItem{
		ID:         uuid.New(),
		BatchID:    input.BatchID,
		TargetType: input.TargetType,
		TargetID:   input.TargetID,
		SpanID:     input.SpanID,
		Payload:    input.Payload,
		Confidence: input.Confidence,
		Status:     domain.ItemStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.items.Create(ctx, tx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

// SetItemStatus moves a single proposal through approval. The payload never
// changes here; only the status does.
func (s *annotationService) SetItemStatus(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, status string) (*domain.AnnotationItem, error) {
	if !validItemStatuses[status] {
		return nil, apperr.InvalidStatef("unknown item status %q", status)
	}
	item, err := s.items.GetByID(ctx, tx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, apperr.NotFoundf("annotation item %s not found", itemID)
	}
	item.Status = status
	if err := s.items.Save(ctx, tx, item); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}
	return item, nil
}

func (s *annotationService) BatchItems(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, status string) ([]*domain.AnnotationItem, error) {
	if _, err := s.GetBatch(ctx, tx, batchID); err != nil {
		return nil, err
	}
	return s.items.ListByBatchID(ctx, tx, batchID, status)
}

func (s *annotationService) ApprovedItems(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) ([]*domain.AnnotationItem, error) {
	return s.items.ListByBatchID(ctx, tx, batchID, domain.ItemStatusApproved)
}

// IngestProposals turns extraction proposals into pending items, anchoring
// each to a span at the first occurrence of its mention text. Spans are
// find-or-create at the exact character range so repeated ingestion shares
// them.
func (s *annotationService) IngestProposals(ctx context.Context, tx *gorm.DB, batchID, nodeID uuid.UUID, proposals []EntityProposal) ([]*domain.AnnotationItem, error) {
	batch, err := s.GetBatch(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	node, err := s.nodes.GetByID(ctx, tx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	if node == nil {
		return nil, apperr.NotFoundf("node %s not found", nodeID)
	}

	items := make([]*domain.AnnotationItem, 0, len(proposals))
	for _, p := range proposals {
		if p.CanonicalName == "" || p.EntityType == "" {
			continue
		}

		var spanID *uuid.UUID
		mention := p.FirstMentionText
		if mention == "" {
			mention = p.CanonicalName
		}
		if start, end, ok := locateMention(node.RawText, mention); ok {
			span, err := s.findOrCreateSpan(ctx, tx, node, start, end, mention)
			if err != nil {
				return nil, err
			}
			spanID = &span.ID
		}

		confidence := p.Confidence
		if confidence <= 0 {
			confidence = DefaultItemConfidence
		}

		payload := datatypes.JSONMap{
			"canonical_name":     p.CanonicalName,
			"entity_type":        p.EntityType,
			"first_mention_text": mention,
		}
		if len(p.Aliases) > 0 {
			aliases := make([]interface{}, 0, len(p.Aliases))
			for _, a := range p.Aliases {
				aliases = append(aliases, a)
			}
			payload["aliases"] = aliases
		}

		item := &domain.AnnotationItem{
			ID:         uuid.New(),
			BatchID:    batch.ID,
			TargetType: domain.TargetTypeEntity,
			SpanID:     spanID,
			Payload:    payload,
			Confidence: pointers.Ptr(confidence),
			Status:     domain.ItemStatusPending,
			CreatedAt:  time.Now().UTC(),
		}
		if _, err := s.items.Create(ctx, tx, item); err != nil {
			return nil, fmt.Errorf("create item: %w", err)
		}
		items = append(items, item)
	}

	s.log.Info("ingested extraction proposals", "batch_id", batch.ID, "node_id", nodeID, "items", len(items))
	return items, nil
}

func (s *annotationService) findOrCreateSpan(ctx context.Context, tx *gorm.DB, node *domain.DocumentNode, start, end int, snippet string) (*domain.TextSpan, error) {
	span, err := s.spans.FindByNodeRange(ctx, tx, node.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("find span: %w", err)
	}
	if span != nil {
		return span, nil
	}
	span = &domain.TextSpan{
		ID:          uuid.New(),
		NodeID:      node.ID,
		SpanType:    domain.SpanTypeExplicit,
		StartChar:   start,
		EndChar:     end,
		TextSnippet: snippet,
		CreatedBy:   "system",
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.spans.Create(ctx, tx, span); err != nil {
		return nil, fmt.Errorf("create span: %w", err)
	}
	return span, nil
}

// locateMention finds the first occurrence of mention in text and returns
// rune offsets, matching how spans index character positions.
func locateMention(text, mention string) (start, end int, ok bool) {
	if mention == "" {
		return 0, 0, false
	}
	idx := strings.Index(text, mention)
	if idx < 0 {
		return 0, 0, false
	}
	start = utf8.RuneCountInString(text[:idx])
	end = start + utf8.RuneCountInString(mention)
	return start, end, true
}
