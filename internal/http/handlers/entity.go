package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sailing-innocent/SailZen/internal/http/response"
	"github.com/sailing-innocent/SailZen/internal/services"
)

type EntityHandler struct {
	entities services.EntityService
}

func NewEntityHandler(entities services.EntityService) *EntityHandler {
	return &EntityHandler{entities: entities}
}

// GET /api/v1/entities/:id
func (h *EntityHandler) Get(c *gin.Context) {
	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	entity, err := h.entities.Get(c.Request.Context(), nil, entityID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, entity)
}

// GET /api/v1/entities?name=...&edition_id=...
func (h *EntityHandler) FindByName(c *gin.Context) {
	var editionID *uuid.UUID
	if raw := c.Query("edition_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		editionID = &parsed
	}
	entities, err := h.entities.FindByName(c.Request.Context(), nil, editionID, c.Query("name"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entities": entities})
}

// GET /api/v1/entities/:id/mentions
func (h *EntityHandler) Mentions(c *gin.Context) {
	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	mentions, err := h.entities.Mentions(c.Request.Context(), nil, entityID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"mentions": mentions})
}
