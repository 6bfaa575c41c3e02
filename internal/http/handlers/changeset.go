package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sailing-innocent/SailZen/internal/http/response"
	"github.com/sailing-innocent/SailZen/internal/services"
)

type ChangeSetHandler struct {
	changesets services.ChangeSetService
}

func NewChangeSetHandler(changesets services.ChangeSetService) *ChangeSetHandler {
	return &ChangeSetHandler{changesets: changesets}
}

// GET /api/v1/change-sets
func (h *ChangeSetHandler) List(c *gin.Context) {
	var editionID, sessionID *uuid.UUID
	if raw := c.Query("edition_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		editionID = &parsed
	}
	if raw := c.Query("session_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		sessionID = &parsed
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	changesets, err := h.changesets.List(c.Request.Context(), nil, editionID, sessionID, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"change_sets": changesets})
}

// GET /api/v1/change-sets/:id
func (h *ChangeSetHandler) Get(c *gin.Context) {
	changesetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	changeset, err := h.changesets.Get(c.Request.Context(), nil, changesetID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, changeset)
}

// GET /api/v1/change-sets/:id/items
func (h *ChangeSetHandler) Items(c *gin.Context) {
	changesetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	items, err := h.changesets.Items(c.Request.Context(), nil, changesetID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

// PUT /api/v1/change-sets/:id/apply
//
// Apply manages its own transaction so a failure can roll back the item
// writes and still record the failed status.
func (h *ChangeSetHandler) Apply(c *gin.Context) {
	changesetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	changeset, err := h.changesets.Apply(c.Request.Context(), changesetID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, changeset)
}
