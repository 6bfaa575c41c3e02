package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/http/response"
	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
	"github.com/sailing-innocent/SailZen/internal/services"
)

type SessionHandler struct {
	log         *logger.Logger
	db          *gorm.DB
	sessions    services.SessionService
	annotations services.AnnotationService
	changesets  services.ChangeSetService
	extractor   services.ExtractionClient
}

func NewSessionHandler(
	log *logger.Logger,
	db *gorm.DB,
	sessions services.SessionService,
	annotations services.AnnotationService,
	changesets services.ChangeSetService,
	extractor services.ExtractionClient,
) *SessionHandler {
	return &SessionHandler{
		log:         log.With("handler", "SessionHandler"),
		db:          db,
		sessions:    sessions,
		annotations: annotations,
		changesets:  changesets,
		extractor:   extractor,
	}
}

type openSessionRequest struct {
	EditionID  uuid.UUID         `json:"edition_id" binding:"required"`
	TargetType string            `json:"target_type" binding:"required"`
	TargetID   uuid.UUID         `json:"target_id" binding:"required"`
	CreatedBy  string            `json:"created_by" binding:"required"`
	LockScope  string            `json:"lock_scope"`
	Metadata   datatypes.JSONMap `json:"metadata"`
}

// POST /api/v1/collab/sessions
func (h *SessionHandler) Open(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	var session *domain.CollabSession
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = h.sessions.Open(c.Request.Context(), tx, services.OpenSessionInput{
			EditionID:  req.EditionID,
			TargetType: req.TargetType,
			TargetID:   req.TargetID,
			CreatedBy:  req.CreatedBy,
			LockScope:  req.LockScope,
			Metadata:   req.Metadata,
		})
		return err
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondCreated(c, session)
}

// GET /api/v1/collab/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	session, err := h.sessions.Get(c.Request.Context(), nil, sessionID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, session)
}

// GET /api/v1/collab/sessions
func (h *SessionHandler) ListActive(c *gin.Context) {
	var editionID *uuid.UUID
	if raw := c.Query("edition_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		editionID = &parsed
	}
	sessions, err := h.sessions.ListActive(c.Request.Context(), nil, editionID, c.Query("created_by"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": sessions})
}

type advanceSessionRequest struct {
	State  string `json:"state" binding:"required"`
	Reason string `json:"reason"`
}

// PUT /api/v1/collab/sessions/:id/state
func (h *SessionHandler) Advance(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req advanceSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	var session *domain.CollabSession
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = h.sessions.Advance(c.Request.Context(), tx, sessionID, req.State, req.Reason)
		return err
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, session)
}

type closeSessionRequest struct {
	Reason string `json:"reason"`
}

// POST /api/v1/collab/sessions/:id/close
func (h *SessionHandler) Close(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req closeSessionRequest
	_ = c.ShouldBindJSON(&req)

	var session *domain.CollabSession
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = h.sessions.Close(c.Request.Context(), tx, sessionID, req.Reason)
		return err
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, session)
}

type suggestionsRequest struct {
	CreatedBy   string `json:"created_by"`
	Surrounding int    `json:"surrounding"`
}

// POST /api/v1/collab/sessions/:id/suggestions
//
// Runs extraction outside any transaction (it is a slow external call), then
// writes the batch, its items and the session's draft state in one.
func (h *SessionHandler) Suggestions(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req suggestionsRequest
	_ = c.ShouldBindJSON(&req)
	if req.Surrounding <= 0 {
		req.Surrounding = 1
	}

	if h.extractor == nil {
		response.FromError(c, apperr.Unavailablef("no extraction source configured"))
		return
	}

	ctx := c.Request.Context()
	session, err := h.sessions.Get(ctx, nil, sessionID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if session.TargetType != domain.TargetTypeNode {
		response.FromError(c, apperr.InvalidStatef("suggestions require a node target, session targets %s", session.TargetType))
		return
	}
	if !session.Live() {
		response.FromError(c, apperr.InvalidStatef("session %s is %s", session.ID, session.State))
		return
	}

	targetCtx, err := h.sessions.PrepareContext(ctx, nil, sessionID, req.Surrounding)
	if err != nil {
		response.FromError(c, err)
		return
	}
	proposals, err := h.extractor.Extract(ctx, targetCtx.Text, targetCtx.ContextText)
	if err != nil {
		response.FromError(c, err)
		return
	}

	var batch *domain.AnnotationBatch
	var items []*domain.AnnotationItem
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		batch, err = h.annotations.CreateBatch(ctx, tx, services.CreateBatchInput{
			EditionID: session.EditionID,
			SessionID: &session.ID,
			BatchType: domain.BatchTypeLLMSuggestion,
			Source:    h.extractor.Model(),
			CreatedBy: req.CreatedBy,
		})
		if err != nil {
			return err
		}
		items, err = h.annotations.IngestProposals(ctx, tx, batch.ID, session.TargetID, proposals)
		if err != nil {
			return err
		}
		_, err = h.sessions.Advance(ctx, tx, sessionID, domain.SessionStateHasDraft, "suggestions generated")
		return err
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.RespondOK(c, gin.H{
		"batch": batch,
		"items": items,
	})
}

// countItemStatuses buckets items into the three review outcomes; anything
// not yet decided counts as pending.
func countItemStatuses(items []*domain.AnnotationItem) (pending, approved, rejected int) {
	for _, item := range items {
		switch item.Status {
		case domain.ItemStatusApproved:
			approved++
		case domain.ItemStatusRejected:
			rejected++
		default:
			pending++
		}
	}
	return pending, approved, rejected
}

type batchDiff struct {
	BatchID   uuid.UUID                `json:"batch_id"`
	BatchType string                   `json:"batch_type"`
	Status    string                   `json:"status"`
	Pending   int                      `json:"pending"`
	Approved  int                      `json:"approved"`
	Rejected  int                      `json:"rejected"`
	Items     []*domain.AnnotationItem `json:"items"`
}

// GET /api/v1/collab/sessions/:id/diff
//
// Aggregates every batch of the session with per-status counts, the working
// view a reviewer approves and rejects from.
func (h *SessionHandler) Diff(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx := c.Request.Context()
	session, err := h.sessions.Get(ctx, nil, sessionID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	batches, err := h.annotations.SessionBatches(ctx, nil, sessionID, "")
	if err != nil {
		response.FromError(c, err)
		return
	}

	diffs := make([]batchDiff, 0, len(batches))
	totalPending, totalApproved, totalRejected := 0, 0, 0
	for _, batch := range batches {
		items, err := h.annotations.BatchItems(ctx, nil, batch.ID, "")
		if err != nil {
			response.FromError(c, err)
			return
		}
		d := batchDiff{
			BatchID:   batch.ID,
			BatchType: batch.BatchType,
			Status:    batch.Status,
			Items:     items,
		}
		d.Pending, d.Approved, d.Rejected = countItemStatuses(items)
		totalPending += d.Pending
		totalApproved += d.Approved
		totalRejected += d.Rejected
		diffs = append(diffs, d)
	}

	response.RespondOK(c, gin.H{
		"session_id": session.ID,
		"state":      session.State,
		"batches":    diffs,
		"totals": gin.H{
			"pending":  totalPending,
			"approved": totalApproved,
			"rejected": totalRejected,
		},
	})
}

type commitRequest struct {
	BatchID   uuid.UUID `json:"batch_id" binding:"required"`
	CreatedBy string    `json:"created_by"`
}

// POST /api/v1/collab/sessions/:id/commit
//
// Derives a change set from the batch's approved items, marks the batch
// committed and moves the session out of its live states, all atomically.
func (h *SessionHandler) Commit(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	ctx := c.Request.Context()
	var changeset *domain.ChangeSet
	err = h.db.Transaction(func(tx *gorm.DB) error {
		session, err := h.sessions.Get(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !session.Live() {
			return apperr.InvalidStatef("session %s is %s, only live sessions can commit", session.ID, session.State)
		}

		changeset, err = h.changesets.FromApprovedBatch(ctx, tx, req.BatchID, &session.ID, req.CreatedBy)
		if err != nil {
			return err
		}
		if _, err := h.annotations.UpdateBatchStatus(ctx, tx, req.BatchID, domain.BatchStatusCommitted); err != nil {
			return err
		}
		_, err = h.sessions.Advance(ctx, tx, sessionID, domain.SessionStateCommitted, "batch committed")
		return err
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"change_set": changeset})
}
