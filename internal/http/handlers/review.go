package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/domain"
	"github.com/sailing-innocent/SailZen/internal/http/response"
	"github.com/sailing-innocent/SailZen/internal/services"
)

type ReviewHandler struct {
	db      *gorm.DB
	reviews services.ReviewService
}

func NewReviewHandler(db *gorm.DB, reviews services.ReviewService) *ReviewHandler {
	return &ReviewHandler{db: db, reviews: reviews}
}

type createReviewTaskRequest struct {
	ChangeSetID uuid.UUID `json:"change_set_id" binding:"required"`
	Reviewer    string    `json:"reviewer" binding:"required"`
}

// POST /api/v1/review-tasks
func (h *ReviewHandler) Create(c *gin.Context) {
	var req createReviewTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	var task *domain.ReviewTask
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = h.reviews.CreateTask(c.Request.Context(), tx, req.ChangeSetID, req.Reviewer)
		return err
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondCreated(c, task)
}

// GET /api/v1/review-tasks
func (h *ReviewHandler) Pending(c *gin.Context) {
	tasks, err := h.reviews.Pending(c.Request.Context(), nil, c.Query("reviewer"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"tasks": tasks})
}

// GET /api/v1/review-tasks/:id
func (h *ReviewHandler) Get(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	task, err := h.reviews.Get(c.Request.Context(), nil, taskID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, task)
}

type approveRequest struct {
	Comments  string `json:"comments"`
	AutoApply *bool  `json:"auto_apply"`
}

// POST /api/v1/review-tasks/:id/approve
//
// Approval is recorded before the optional apply; an apply failure surfaces
// as the response error while the approval stands.
func (h *ReviewHandler) Approve(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req approveRequest
	_ = c.ShouldBindJSON(&req)
	autoApply := true
	if req.AutoApply != nil {
		autoApply = *req.AutoApply
	}

	task, err := h.reviews.Approve(c.Request.Context(), taskID, req.Comments, autoApply)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, task)
}

type rejectRequest struct {
	Comments string `json:"comments"`
}

// POST /api/v1/review-tasks/:id/reject
func (h *ReviewHandler) Reject(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req rejectRequest
	_ = c.ShouldBindJSON(&req)

	task, err := h.reviews.Reject(c.Request.Context(), taskID, req.Comments)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, task)
}
