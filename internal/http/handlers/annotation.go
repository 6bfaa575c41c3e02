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

type AnnotationHandler struct {
	db          *gorm.DB
	annotations services.AnnotationService
}

func NewAnnotationHandler(db *gorm.DB, annotations services.AnnotationService) *AnnotationHandler {
	return &AnnotationHandler{db: db, annotations: annotations}
}

type itemStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PUT /api/v1/collab/annotation-items/:id/status
func (h *AnnotationHandler) SetItemStatus(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var req itemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	var item *domain.AnnotationItem
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		item, err = h.annotations.SetItemStatus(c.Request.Context(), tx, itemID, req.Status)
		return err
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, item)
}

// GET /api/v1/collab/batches/:id/items
func (h *AnnotationHandler) BatchItems(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	items, err := h.annotations.BatchItems(c.Request.Context(), nil, batchID, c.Query("status"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}
